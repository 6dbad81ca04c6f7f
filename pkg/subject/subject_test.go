package subject

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formreplay/pkg/config"
)

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.reply, f.err
}

var candidates = []string{"差旅费", "差旅费-住宿", "办公用品", "交通费"}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{name: "exact", reply: "办公用品", want: "办公用品"},
		{name: "quoted with whitespace", reply: "  \"交通费\"\n", want: "交通费"},
		{name: "list marker", reply: "- 差旅费-住宿", want: "差旅费-住宿"},
		{name: "longest contained candidate", reply: "The answer is 差旅费-住宿.", want: "差旅费-住宿"},
		{name: "reply inside candidate", reply: "办公", want: "办公用品"},
		{name: "none", reply: "NONE", wantErr: ErrNoMatch},
		{name: "none lowercase", reply: "none", wantErr: ErrNoMatch},
		{name: "empty", reply: "   ", wantErr: ErrNoMatch},
		{name: "unrelated", reply: "furniture", wantErr: ErrNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{reply: tt.reply}
			m := NewWithCompleter(fc, 0, nil)

			got, err := m.Match(context.Background(), "住宿费", candidates)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchPrompt(t *testing.T) {
	fc := &fakeCompleter{reply: "交通费"}
	m := NewWithCompleter(fc, 0, nil)

	_, err := m.Match(context.Background(), "出租车", candidates)
	require.NoError(t, err)

	assert.Equal(t, systemPrompt, fc.system)
	assert.Contains(t, fc.user, "Title: 出租车")
	for _, c := range candidates {
		assert.Contains(t, fc.user, "- "+c+"\n")
	}
}

func TestMatchNoCandidates(t *testing.T) {
	fc := &fakeCompleter{reply: "x"}
	m := NewWithCompleter(fc, 0, nil)

	_, err := m.Match(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Zero(t, fc.calls)
}

func TestMatchCompleterError(t *testing.T) {
	boom := errors.New("connection refused")
	m := NewWithCompleter(&fakeCompleter{err: boom}, 0, nil)

	_, err := m.Match(context.Background(), "x", candidates)
	assert.ErrorIs(t, err, boom)
}

func TestBuildPromptBudget(t *testing.T) {
	many := make([]string, 200)
	for i := range many {
		many[i] = strings.Repeat("科目", 10) + string(rune('A'+i%26))
	}
	m := NewWithCompleter(&fakeCompleter{}, 50, nil)

	prompt, included := m.buildPrompt("title", many)
	assert.Greater(t, included, 0)
	assert.Less(t, included, len(many))
	assert.Equal(t, included, strings.Count(prompt, "\n- "))
}

func TestBuildPromptKeepsFirstCandidate(t *testing.T) {
	m := NewWithCompleter(&fakeCompleter{}, 1, nil)

	_, included := m.buildPrompt("title", []string{strings.Repeat("long ", 100)})
	assert.Equal(t, 1, included)
}

func TestMatchOnlyTrimmedCandidates(t *testing.T) {
	many := []string{strings.Repeat("a ", 30), strings.Repeat("b ", 30), "zzz"}
	fc := &fakeCompleter{reply: "zzz"}
	m := NewWithCompleter(fc, 1, nil)

	_, err := m.Match(context.Background(), "t", many)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"a", 1},
		{"one two three", 3},
		{"abcdefghijklmnop", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), "text %q", tt.text)
	}
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(config.SubjectConfig{}, nil)
	assert.Error(t, err)

	m, err := New(config.SubjectConfig{Model: "qwen2.5:7b", BaseURL: "http://localhost:11434/v1", APIKeyEnv: "FORMREPLAY_TEST_UNSET_KEY"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPromptTokens, m.maxTokens)
}
