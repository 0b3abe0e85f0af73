package orchestrator

import "strings"

// structurallyEquivalent implements the "textual fallback" of spec section
// 4.6, step D's last check: when the byte fingerprint differs but the
// preprocessor output is the same multiset of non-blank lines (tolerating
// repositioned declarations, per spec section 4.6 bullet 6), the cached
// object is still accepted rather than triggering a recompile.
//
// This compares whole lines as opaque units rather than diffing bytes or
// tokens, on the premise that preprocessor output is line-oriented text
// where reordering (e.g. from unstable declaration ordering upstream) is
// the dominant source of byte-level churn that doesn't actually change the
// generated code.
func structurallyEquivalent(old, new []byte) bool {
	oldLines := significantLines(old)
	newLines := significantLines(new)
	if len(oldLines) != len(newLines) {
		return false
	}

	counts := make(map[string]int, len(oldLines))
	for _, line := range oldLines {
		counts[line]++
	}
	for _, line := range newLines {
		counts[line]--
		if counts[line] < 0 {
			return false
		}
	}
	for _, count := range counts {
		if count != 0 {
			return false
		}
	}
	return true
}

// significantLines splits buf into lines, trims surrounding whitespace, and
// drops blank lines, which carry no structural meaning.
func significantLines(buf []byte) []string {
	raw := strings.Split(string(buf), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
