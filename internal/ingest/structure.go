package ingest

import "strings"

// headerScanLimit caps how deep the header search goes.
const headerScanLimit = 50

var (
	positionAliases = []string{"Pos.", "Pos"}
	nameAliases     = []string{"Bezeichnung", "Name", "Benennung"}

	// companion labels that, next to the name label, identify a header row
	headerCompanions = []string{"menge", "einheit", "|ep|", "|gp|"}
)

// sheetStructure maps 0-based column indices to header labels.
type sheetStructure struct {
	headerRow int
	headers   map[int]string
	posCol    int // -1 when absent
	nameCol   int
}

// detectStructure locates the header row and resolves the mandatory name
// column and the optional position column.
func detectStructure(grid *sheetGrid) (*sheetStructure, error) {
	headerRow := detectHeaderRow(grid)
	if headerRow < 0 {
		return nil, ErrNoHeaderRow
	}

	headers := make(map[int]string)
	for c := 0; c < grid.colCount(); c++ {
		if t := grid.cell(headerRow, c); t != "" {
			headers[c] = t
		}
	}
	if len(headers) == 0 {
		return nil, ErrNoHeaderRow
	}

	st := &sheetStructure{
		headerRow: headerRow,
		headers:   headers,
		posCol:    findHeader(headers, positionAliases...),
		nameCol:   findHeader(headers, nameAliases...),
	}
	if st.nameCol < 0 {
		return nil, ErrNameColumnAbsent
	}
	return st, nil
}

// detectHeaderRow scores each of the first headerScanLimit rows: the joined
// lower-cased cell text must contain the name label and at least one companion
// label. Falls back to the row with the most non-empty cells.
func detectHeaderRow(grid *sheetGrid) int {
	last := grid.rowCount()
	if last > headerScanLimit {
		last = headerScanLimit
	}

	for r := 0; r < last; r++ {
		var parts []string
		for c := 0; c < grid.colCount(); c++ {
			if v := grid.cell(r, c); v != "" {
				parts = append(parts, strings.ToLower(v))
			}
		}
		text := "|" + strings.Join(parts, "|") + "|"
		if !strings.Contains(text, "bezeichnung") {
			continue
		}
		for _, companion := range headerCompanions {
			if strings.Contains(text, companion) {
				return r
			}
		}
	}

	bestRow, bestCount := -1, 0
	for r := 0; r < last; r++ {
		count := 0
		for c := 0; c < grid.colCount(); c++ {
			if grid.cell(r, c) != "" {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestRow = r
		}
	}
	return bestRow
}

// findHeader returns the lowest column whose label equals one of the aliases,
// case-insensitively, or -1.
func findHeader(headers map[int]string, aliases ...string) int {
	maxCol := -1
	for c := range headers {
		if c > maxCol {
			maxCol = c
		}
	}
	for c := 0; c <= maxCol; c++ {
		label, ok := headers[c]
		if !ok {
			continue
		}
		for _, alias := range aliases {
			if strings.EqualFold(label, alias) {
				return c
			}
		}
	}
	return -1
}
