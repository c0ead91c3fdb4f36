package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFileName(t *testing.T) {
	base, ext := splitFileName("angebot.xlsx")
	assert.Equal(t, "angebot", base)
	assert.Equal(t, ".xlsx", ext)

	base, ext = splitFileName("angebot.v2.xlsx")
	assert.Equal(t, "angebot.v2", base)
	assert.Equal(t, ".xlsx", ext)

	base, ext = splitFileName("angebot")
	assert.Equal(t, "angebot", base)
	assert.Equal(t, "", ext)
}

func TestDisambiguateFileName(t *testing.T) {
	assert.Equal(t, "angebot.xlsx",
		DisambiguateFileName("angebot", ".xlsx", nil))

	assert.Equal(t, "angebot (1).xlsx",
		DisambiguateFileName("angebot", ".xlsx", []string{"angebot.xlsx"}))

	assert.Equal(t, "angebot (2).xlsx",
		DisambiguateFileName("angebot", ".xlsx", []string{"angebot.xlsx", "angebot (1).xlsx"}))

	// Gaps are not refilled; the next suffix is one above the highest taken.
	assert.Equal(t, "angebot (8).xlsx",
		DisambiguateFileName("angebot", ".xlsx", []string{"angebot.xlsx", "angebot (7).xlsx"}))

	// Unsuffixed name free again: reuse it even when suffixed names exist.
	assert.Equal(t, "angebot.xlsx",
		DisambiguateFileName("angebot", ".xlsx", []string{"angebot (1).xlsx"}))
}

func TestDisambiguateFileNameEscapesRegexMeta(t *testing.T) {
	existing := []string{"preis (v1).xlsx", "preis (v1) (1).xlsx"}
	assert.Equal(t, "preis (v1) (2).xlsx",
		DisambiguateFileName("preis (v1)", ".xlsx", existing))
}
