package execute

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// TitleMatcher matches column titles against glob patterns
type TitleMatcher struct {
	patterns []glob.Glob
}

// NewTitleMatcher compiles patterns. An empty list matches nothing.
func NewTitleMatcher(patterns []string) (*TitleMatcher, error) {
	tm := &TitleMatcher{}

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid title pattern '%s': %w", pattern, err)
		}
		tm.patterns = append(tm.patterns, g)
	}

	return tm, nil
}

// Match returns true if the trimmed title matches any pattern
func (tm *TitleMatcher) Match(title string) bool {
	if tm == nil {
		return false
	}
	title = strings.TrimSpace(title)
	for _, pattern := range tm.patterns {
		if pattern.Match(title) {
			return true
		}
	}
	return false
}
