// Package subject matches free-text titles against a fixed candidate list
// with an OpenAI-compatible chat model. A local Ollama /v1 endpoint works.
//
// Model answers are never trusted verbatim: a reply is accepted only when it
// maps back onto one of the candidates.
package subject

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/entrhq/formreplay/pkg/config"
	"github.com/entrhq/formreplay/pkg/logging"
)

// ErrNoMatch is returned when the model picks no candidate.
var ErrNoMatch = errors.New("no matching subject")

// DefaultMaxPromptTokens bounds the candidate list sent to the model.
const DefaultMaxPromptTokens = 2000

const noneAnswer = "NONE"

const systemPrompt = `You map a column title from an expense spreadsheet to the closest entry of a fixed list.
Answer with exactly one entry copied verbatim from the list and nothing else.
If no entry means the same thing, answer NONE.`

// Completer sends one system/user exchange to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// openAICompleter calls the chat completions endpoint.
type openAICompleter struct {
	client openai.Client
	model  string
}

func (c *openAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Matcher picks a candidate for a title.
type Matcher struct {
	completer Completer
	maxTokens int
	log       *logging.Logger
}

// New creates a matcher for the endpoint in cfg. The API key is read from
// cfg.APIKeyEnv; local endpoints that ignore keys work with it unset.
func New(cfg config.SubjectConfig, log *logging.Logger) (*Matcher, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("subject matcher model is required")
	}

	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		apiKey = "ollama"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	completer := &openAICompleter{client: openai.NewClient(opts...), model: cfg.Model}
	return NewWithCompleter(completer, cfg.MaxPromptTokens, log), nil
}

// NewWithCompleter creates a matcher over any completer.
func NewWithCompleter(c Completer, maxTokens int, log *logging.Logger) *Matcher {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxPromptTokens
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Matcher{completer: c, maxTokens: maxTokens, log: log}
}

// Match asks the model which candidate title means. It returns ErrNoMatch
// when the model answers NONE or something that is not a candidate.
func (m *Matcher) Match(ctx context.Context, title string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoMatch
	}

	prompt, included := m.buildPrompt(title, candidates)
	if included < len(candidates) {
		m.log.Debugf("Subject prompt for %q trimmed to %d of %d candidates", title, included, len(candidates))
	}

	reply, err := m.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}

	match, ok := pick(reply, candidates[:included])
	if !ok {
		m.log.Debugf("Subject model answered %q for %q", reply, title)
		return "", ErrNoMatch
	}
	return match, nil
}

// buildPrompt lists as many candidates as fit in the token budget.
func (m *Matcher) buildPrompt(title string, candidates []string) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nList:\n", title)
	used := CountTokens(b.String())

	included := 0
	for _, c := range candidates {
		line := "- " + c + "\n"
		cost := CountTokens(line)
		if included > 0 && used+cost > m.maxTokens {
			break
		}
		b.WriteString(line)
		used += cost
		included++
	}
	return b.String(), included
}

// pick maps a model reply back onto a candidate: exact first, then the
// longest candidate contained in the reply, then a candidate containing it.
func pick(reply string, candidates []string) (string, bool) {
	answer := cleanReply(reply)
	if answer == "" || strings.EqualFold(answer, noneAnswer) {
		return "", false
	}

	for _, c := range candidates {
		if c == answer {
			return c, true
		}
	}

	lower := strings.ToLower(answer)
	byLength := append([]string(nil), candidates...)
	sort.SliceStable(byLength, func(i, j int) bool { return len(byLength[i]) > len(byLength[j]) })
	for _, c := range byLength {
		if c != "" && strings.Contains(lower, strings.ToLower(c)) {
			return c, true
		}
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), lower) {
			return c, true
		}
	}
	return "", false
}

func cleanReply(reply string) string {
	answer := strings.TrimSpace(reply)
	if i := strings.IndexByte(answer, '\n'); i >= 0 {
		answer = strings.TrimSpace(answer[:i])
	}
	answer = strings.TrimPrefix(answer, "- ")
	return strings.Trim(answer, "\"'`“”「」 ")
}
