package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridOf(rows [][]string) *sheetGrid {
	return &sheetGrid{name: "Tabelle1", rows: rows}
}

func TestDetectStructureFindsLabelledHeader(t *testing.T) {
	grid := gridOf([][]string{
		{"Leistungsverzeichnis Sanitär"},
		{"", ""},
		{"Pos.", "Bezeichnung", "Menge", "Einheit", "|EP|", "|GP|"},
		{"1", "Rohrleitungen"},
	})

	st, err := detectStructure(grid)
	require.NoError(t, err)
	assert.Equal(t, 2, st.headerRow)
	assert.Equal(t, 0, st.posCol)
	assert.Equal(t, 1, st.nameCol)
	assert.Equal(t, "Menge", st.headers[2])
}

func TestDetectStructureHeaderAliasesAreCaseInsensitive(t *testing.T) {
	grid := gridOf([][]string{
		{"pos", "benennung", "menge"},
	})

	st, err := detectStructure(grid)
	require.NoError(t, err)
	assert.Equal(t, 0, st.posCol)
	assert.Equal(t, 1, st.nameCol)
}

func TestDetectStructureFallsBackToDensestRow(t *testing.T) {
	// No row mentions Bezeichnung together with a companion label, so the
	// row with the most populated cells wins.
	grid := gridOf([][]string{
		{"Angebot"},
		{"Nr", "Name", "Menge", "Preis"},
		{"1", "Kupferrohr"},
	})

	st, err := detectStructure(grid)
	require.NoError(t, err)
	assert.Equal(t, 1, st.headerRow)
	assert.Equal(t, -1, st.posCol)
	assert.Equal(t, 1, st.nameCol)
}

func TestDetectStructureRejectsMissingNameColumn(t *testing.T) {
	grid := gridOf([][]string{
		{"Pos.", "Artikel", "Menge"},
		{"1", "Kupferrohr", "5"},
	})

	_, err := detectStructure(grid)
	assert.ErrorIs(t, err, ErrNameColumnAbsent)
}

func TestDetectStructureEmptyGrid(t *testing.T) {
	_, err := detectStructure(gridOf(nil))
	assert.ErrorIs(t, err, ErrNoHeaderRow)
}

func TestDetectHeaderRowIgnoresRowsBeyondScanLimit(t *testing.T) {
	rows := make([][]string, headerScanLimit+2)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	rows[headerScanLimit+1] = []string{"Pos.", "Bezeichnung", "Menge"}

	grid := gridOf(rows)
	got := detectHeaderRow(grid)
	assert.NotEqual(t, headerScanLimit+1, got)
}
