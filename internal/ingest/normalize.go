package ingest

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerFolder = cases.Lower(language.German)

// NormalizedText builds the lowercase search substrate for a row: sku, name,
// description, size, main category, sub category, in that order, absent
// fields skipped. It must be rebuilt whenever any contributing field changes.
func NormalizedText(row PreviewRow) string {
	fields := []*string{
		row.SKU,
		row.Name,
		row.Description,
		row.Size,
		row.MainCategory,
		row.SubCategory,
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == nil {
			continue
		}
		v := strings.TrimSpace(*f)
		if v == "" {
			continue
		}
		parts = append(parts, lowerFolder.String(v))
	}
	return strings.Join(parts, " ")
}
