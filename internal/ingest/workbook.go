package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// mergeRange is a merged cell block in 0-based coordinates, inclusive.
type mergeRange struct {
	r1, c1, r2, c2 int
	anchor         string
}

// sheetGrid is an in-memory snapshot of the first worksheet: trimmed cell
// values plus merge ranges so continuation rows can read merge-anchor text.
type sheetGrid struct {
	name   string
	rows   [][]string
	merges []mergeRange
}

// openWorkbook loads the first worksheet of an xlsx byte stream.
func openWorkbook(data []byte) (*sheetGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWorksheet, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ingest: read rows: %w", err)
	}
	for i := range rows {
		for j := range rows[i] {
			rows[i][j] = strings.TrimSpace(rows[i][j])
		}
	}

	grid := &sheetGrid{name: name, rows: rows}

	merges, err := f.GetMergeCells(name)
	if err != nil {
		return nil, fmt.Errorf("ingest: read merges: %w", err)
	}
	for _, mg := range merges {
		c1, r1, err := excelize.CellNameToCoordinates(mg.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(mg.GetEndAxis())
		if err != nil {
			continue
		}
		grid.merges = append(grid.merges, mergeRange{
			r1:     r1 - 1,
			c1:     c1 - 1,
			r2:     r2 - 1,
			c2:     c2 - 1,
			anchor: strings.TrimSpace(mg.GetCellValue()),
		})
	}
	return grid, nil
}

func (g *sheetGrid) rowCount() int {
	return len(g.rows)
}

func (g *sheetGrid) colCount() int {
	max := 0
	for _, row := range g.rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// cell returns the trimmed value at 0-based row/column, empty when out of range.
func (g *sheetGrid) cell(r, c int) string {
	if r < 0 || r >= len(g.rows) {
		return ""
	}
	row := g.rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}

// cellMergeAware returns the cell value, falling back to the anchor of a merge
// range covering the cell when the cell itself is blank.
func (g *sheetGrid) cellMergeAware(r, c int) string {
	if v := g.cell(r, c); v != "" {
		return v
	}
	for _, mg := range g.merges {
		if r >= mg.r1 && r <= mg.r2 && c >= mg.c1 && c <= mg.c2 {
			if mg.anchor != "" {
				return mg.anchor
			}
			return g.cell(mg.r1, mg.c1)
		}
	}
	return ""
}
