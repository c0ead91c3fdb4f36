package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestNormalizedTextJoinsFieldsInOrder(t *testing.T) {
	row := PreviewRow{
		SKU:          strPtr("CU-18"),
		Name:         strPtr("Kupferrohr"),
		Description:  strPtr("weichgelötet"),
		Size:         strPtr("DN 15"),
		MainCategory: strPtr("Sanitär"),
		SubCategory:  strPtr("Rohrleitungen"),
	}

	got := NormalizedText(row)
	assert.Equal(t, "cu-18 kupferrohr weichgelötet dn 15 sanitär rohrleitungen", got)
}

func TestNormalizedTextSkipsAbsentFields(t *testing.T) {
	row := PreviewRow{
		Name: strPtr("Absperrventil"),
		Size: strPtr("DN 15"),
	}
	assert.Equal(t, "absperrventil dn 15", NormalizedText(row))
}

func TestNormalizedTextLowercasesGermanText(t *testing.T) {
	row := PreviewRow{Name: strPtr("GROSSE Überwurfmutter")}
	assert.Equal(t, "grosse überwurfmutter", NormalizedText(row))
}

func TestNormalizedTextEmptyRow(t *testing.T) {
	assert.Equal(t, "", NormalizedText(PreviewRow{}))
	assert.Equal(t, "", NormalizedText(PreviewRow{Name: strPtr("  ")}))
}
