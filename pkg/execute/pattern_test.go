package execute

import (
	"testing"
)

func TestTitleMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		title    string
		want     bool
	}{
		{
			name:     "exact title",
			patterns: []string{"转卡信息工号*"},
			title:    "转卡信息工号*",
			want:     true,
		},
		{
			name:     "star wildcard",
			patterns: []string{"转卡信息*"},
			title:    "转卡信息工号",
			want:     true,
		},
		{
			name:     "surrounding whitespace ignored",
			patterns: []string{"工号"},
			title:    "  工号 ",
			want:     true,
		},
		{
			name:     "no match",
			patterns: []string{"转卡信息*"},
			title:    "金额",
			want:     false,
		},
		{
			name:     "no patterns",
			patterns: nil,
			title:    "金额",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, err := NewTitleMatcher(tt.patterns)
			if err != nil {
				t.Fatalf("NewTitleMatcher() error = %v", err)
			}
			if got := tm.Match(tt.title); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestNewTitleMatcher_InvalidPattern(t *testing.T) {
	if _, err := NewTitleMatcher([]string{"[unclosed"}); err == nil {
		t.Error("NewTitleMatcher() expected error for invalid pattern")
	}
}

func TestTitleMatcher_Nil(t *testing.T) {
	var tm *TitleMatcher
	if tm.Match("x") {
		t.Error("nil matcher should match nothing")
	}
}
