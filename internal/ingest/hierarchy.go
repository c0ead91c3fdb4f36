package ingest

import (
	"context"
	"regexp"
	"strings"
)

var positionCodePattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// positionLevel classifies a position code: dotted-integer codes map to
// dot-count+1, anything else (including empty) to -1, which marks the row as
// a continuation rather than a new item.
func positionLevel(pos string) int {
	pos = strings.TrimSpace(pos)
	if pos == "" || !positionCodePattern.MatchString(pos) {
		return -1
	}
	return strings.Count(pos, ".") + 1
}

// parseRows walks all rows below the header, threading category context and
// folding continuation rows into the preceding item. Rows must be visited in
// physical order; both the category context and the folding depend on it.
func parseRows(ctx context.Context, grid *sheetGrid, st *sheetStructure) ([]PreviewRow, error) {
	var (
		out         []PreviewRow
		currentMain *string
		currentSub  *string
	)

	last := grid.rowCount()
	for r := st.headerRow + 1; r < last; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pos := ""
		if st.posCol >= 0 {
			pos = grid.cell(r, st.posCol)
		}
		name := grid.cellMergeAware(r, st.nameCol)

		if pos == "" && strings.TrimSpace(name) == "" {
			continue
		}

		level := positionLevel(pos)
		if st.posCol < 0 {
			// Without a position column every populated row is a line item.
			level = 3
		}

		switch {
		case level == 1:
			currentMain = firstLine(name)
			currentSub = nil
			continue
		case level == 2:
			currentSub = firstLine(name)
			continue
		case level >= 3:
			item, next := foldItem(grid, st, r, last, pos, name)
			item.MainCategory = currentMain
			item.SubCategory = currentSub
			out = append(out, item)
			r = next - 1
		}
	}
	return out, nil
}

// foldItem builds one logical item anchored at row r, greedily consuming the
// following rows whose position code is empty. Returns the item and the index
// of the first unconsumed row.
func foldItem(grid *sheetGrid, st *sheetStructure, r, last int, pos, name string) (PreviewRow, int) {
	lines := splitLines(name)
	var nameLine *string
	var descLines []string
	if len(lines) > 0 {
		nameLine = &lines[0]
		descLines = append(descLines, lines[1:]...)
	}

	sku := extractSKU(name)

	next := r + 1
	if st.posCol < 0 {
		// No position column: nothing marks a continuation, so every
		// populated row stands alone.
		last = next
	}
	for ; next < last; next++ {
		contPos := ""
		if st.posCol >= 0 {
			contPos = grid.cell(next, st.posCol)
		}
		if contPos != "" {
			break
		}
		contText := grid.cellMergeAware(next, st.nameCol)
		if strings.TrimSpace(contText) == "" {
			continue
		}
		descLines = append(descLines, splitLines(contText)...)
		if sku == nil {
			sku = extractSKU(contText)
		}
	}

	size := extractSize(descLines)
	description := cleanDescription(descLines)

	raw := make(map[string]string)
	for c, label := range st.headers {
		if v := grid.cell(r, c); v != "" {
			raw[label] = v
		}
	}

	item := PreviewRow{
		RowIndex:    r + 1, // 1-based, as displayed by spreadsheets
		Name:        nameLine,
		Description: description,
		SKU:         sku,
		Size:        size,
		Raw:         raw,
	}
	if p := strings.TrimSpace(pos); p != "" {
		item.Position = &p
	}
	return item, next
}

// splitLines splits on CR/LF, trims each line and drops empty ones.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }) {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func firstLine(s string) *string {
	lines := splitLines(s)
	if len(lines) == 0 {
		return nil
	}
	return &lines[0]
}
