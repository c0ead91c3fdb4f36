package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// splitFileName splits "offer.xlsx" into ("offer", ".xlsx").
func splitFileName(name string) (base, ext string) {
	ext = filepath.Ext(name)
	base = strings.TrimSuffix(name, ext)
	return base, ext
}

// DisambiguateFileName returns baseName+ext unchanged when unused, otherwise
// the smallest "base (n)ext" beyond the highest suffix already taken.
func DisambiguateFileName(baseName, ext string, existing []string) string {
	plain := baseName + ext
	taken := false
	for _, n := range existing {
		if n == plain {
			taken = true
			break
		}
	}
	if !taken {
		return plain
	}

	suffixed := regexp.MustCompile(`^` + regexp.QuoteMeta(baseName) + ` \((\d+)\)` + regexp.QuoteMeta(ext) + `$`)
	max := 0
	for _, n := range existing {
		m := suffixed.FindStringSubmatch(n)
		if m == nil {
			continue
		}
		if k, err := strconv.Atoi(m[1]); err == nil && k > max {
			max = k
		}
	}
	return fmt.Sprintf("%s (%d)%s", baseName, max+1, ext)
}
