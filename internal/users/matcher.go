package users

import (
	"fmt"
	"regexp"
	"strings"
)

// newThanksMatcher compiles the configured thanks vocabulary into a
// single case-insensitive whole-word alternation. Built once at
// startup; empty and duplicate entries are configuration errors.
func newThanksMatcher(words []string) (*regexp.Regexp, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("thanks vocabulary is empty")
	}

	seen := make(map[string]bool, len(words))
	escaped := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			return nil, fmt.Errorf("thanks vocabulary contains an empty entry")
		}
		key := strings.ToLower(w)
		if seen[key] {
			return nil, fmt.Errorf("duplicate thanks vocabulary entry: %q", w)
		}
		seen[key] = true
		escaped = append(escaped, regexp.QuoteMeta(w))
	}

	re, err := regexp.Compile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile thanks matcher: %w", err)
	}
	return re, nil
}
