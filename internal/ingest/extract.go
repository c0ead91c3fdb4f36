package ingest

import (
	"regexp"
	"strings"
)

// skuLabelPattern matches German article-number labels ("Artikelnr: X-1",
// "Art.-Nr.: 42") followed by an alphanumeric token.
var skuLabelPattern = regexp.MustCompile(`(?is)\b(Artikel(?:nr|nummer)?|Art\.-?Nr)\.?\s*:\s*([A-Za-z0-9\-/_.]+)`)

// skuLinePattern matches a whole line carrying only the article-number label,
// used to strip redundant lines from descriptions.
var skuLinePattern = regexp.MustCompile(`(?i)^\b(Artikel(?:nr|nummer)?|Art\.-?Nr)\.?:`)

// extractSKU returns the first article-number token found in the text, nil
// when absent.
func extractSKU(text string) *string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	m := skuLabelPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	sku := strings.TrimSpace(m[2])
	return &sku
}

// sizeRule is one (pattern, normalizer) pair. Rules run top-down per line and
// the first match anywhere wins, so rule order encodes extraction priority.
type sizeRule struct {
	pattern   *regexp.Regexp
	normalize func(m []string) string
}

var sizeRules = []sizeRule{
	// Nennweite: 12 → verbatim value
	{
		pattern:   regexp.MustCompile(`(?i)^\s*Nennweite\s*:\s*(\S.*?)\s*$`),
		normalize: func(m []string) string { return strings.TrimSpace(m[1]) },
	},
	// DN 15, DN15, DN 15/20 → "DN 15", "DN 15/20"
	{
		pattern:   regexp.MustCompile(`(?i)^\s*DN\s*([0-9]+(?:\s*/\s*[0-9]+)?)\s*$`),
		normalize: func(m []string) string { return "DN " + strings.TrimSpace(m[1]) },
	},
	// Ø 18, Ø18mm; the diameter symbol sometimes renders as a plain 'O'
	{
		pattern:   regexp.MustCompile(`(?i)^\s*[ØO]\s*([0-9]+(?:\.[0-9]+)?(?:\s*mm)?)\s*$`),
		normalize: func(m []string) string { return strings.TrimSpace(m[1]) },
	},
	// Composite dimensions: 12*12*15, 12 x 12 x 15
	{
		pattern:   regexp.MustCompile(`\b\d+(?:\.\d+)?(?:\s*[x*]\s*\d+(?:\.\d+)?){1,3}\b`),
		normalize: func(m []string) string { return strings.ReplaceAll(m[0], " ", "") },
	},
}

// extractSize runs the prioritized size rules over the candidate lines: a
// match on a higher rule always beats any match on a lower one, and within a
// rule the earliest line wins. Lines mentioning the manufacturer or starting
// with a thread spec are known false-positive carriers and are skipped.
func extractSize(lines []string) *string {
	candidates := make([]string, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "hersteller") || strings.HasPrefix(lower, "gewinde") {
			continue
		}
		candidates = append(candidates, line)
	}
	for _, rule := range sizeRules {
		for _, line := range candidates {
			if m := rule.pattern.FindStringSubmatch(line); m != nil {
				v := rule.normalize(m)
				return &v
			}
		}
	}
	return nil
}

// cleanDescription drops article-number label lines (redundant with the
// extracted SKU) and joins the rest. An all-blank result is absent, not empty.
func cleanDescription(lines []string) *string {
	var kept []string
	for _, line := range lines {
		if skuLinePattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	joined := strings.TrimSpace(strings.Join(kept, "\n"))
	if joined == "" {
		return nil
	}
	return &joined
}
