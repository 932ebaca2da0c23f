package mmu

import "strings"

// ClassifyLine maps one received firmware line to an MMU status. The line is
// only inspected, never altered; callers pass it on unchanged whether or not
// it matched.
func ClassifyLine(line string) (Status, bool) {
	for _, p := range linePatterns {
		if strings.Contains(line, p.substr) {
			return p.status, true
		}
	}
	return "", false
}
