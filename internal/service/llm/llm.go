// Package llm provides text generation for document summaries and agent
// response suggestions.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nexus-support-service/internal/observability/logging"
)

// DefaultSummaryLength is the summary length used when none is given.
const DefaultSummaryLength = 150

// Provider generates text from support content.
type Provider interface {
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
	SuggestResponse(ctx context.Context, query string, contexts []string) (string, error)
}

// Placeholder returns canned text without calling a model.
type Placeholder struct {
	log zerolog.Logger
}

// NewPlaceholder creates a Placeholder provider.
func NewPlaceholder() *Placeholder {
	p := &Placeholder{log: logging.WithComponent("llm")}
	p.log.Info().Msg("No LLM client configured, using placeholder responses")
	return p
}

// Summarize returns a fixed summary quoting the start of text.
func (p *Placeholder) Summarize(_ context.Context, text string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}
	p.log.Debug().Str("text", prefix(text, 50)).Msg("Summarizing text")
	return fmt.Sprintf(
		"This is a placeholder summary of the text, keeping it under %d characters. Original started with: %s...",
		maxLength, prefix(text, 30),
	), nil
}

// SuggestResponse returns a fixed suggestion for query.
func (p *Placeholder) SuggestResponse(_ context.Context, query string, contexts []string) (string, error) {
	previews := make([]string, 0, len(contexts))
	for _, c := range contexts {
		previews = append(previews, prefix(c, 30)+"...")
	}
	p.log.Debug().
		Str("query", query).
		Str("context", strings.Join(previews, " | ")).
		Msg("Generating response suggestion")
	return fmt.Sprintf(
		"Placeholder suggestion for '%s'. Based on context, consider mentioning key aspects from the provided documents.",
		query,
	), nil
}

// prefix returns at most n characters of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
