// ABOUTME: Matcher picks the opportunity name most relevant to a set of keywords
// ABOUTME: Uses a schema-constrained chat call, falling back to marker parsing and then the first opportunity
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/util"
)

const matchSystemPrompt = "You are an agent tasked with finding relevant RFPs based on keywords. " +
	"Pick the single most relevant opportunity name, copied exactly from the list. " +
	"Suggest a short web search query for finding that opportunity and summarize why it matches."

// Matcher matches keywords against a list of opportunity names
type Matcher struct {
	generator StructuredCompleter
	retry     util.RetryPolicy
}

// NewMatcher creates a Matcher
func NewMatcher(generator StructuredCompleter, retry util.RetryPolicy) *Matcher {
	return &Matcher{generator: generator, retry: retry}
}

// Match returns the most relevant opportunity with a suggested search query.
// When the model names no match, the first opportunity is used.
func (m *Matcher) Match(ctx context.Context, keywords, opportunities []string) (models.StructuredAnswer, error) {
	opportunities = nonEmpty(opportunities)
	if len(opportunities) == 0 {
		return models.StructuredAnswer{}, models.InvalidConfig("at least one opportunity name is required")
	}
	keywords = nonEmpty(keywords)
	if len(keywords) == 0 {
		return models.StructuredAnswer{}, models.InvalidConfig("at least one keyword is required")
	}

	user := fmt.Sprintf("Keywords: %s\n\nOpportunity names:\n%s",
		strings.Join(keywords, ", "), strings.Join(opportunities, "\n"))

	var (
		answer models.StructuredAnswer
		raw    string
	)
	err := m.retry.Do(ctx, func(ctx context.Context) error {
		var callErr error
		answer = models.StructuredAnswer{}
		raw, callErr = m.generator.GenerateStructured(ctx, matchSystemPrompt, user, "opportunity_match", &answer)
		return callErr
	})

	switch {
	case errors.Is(err, models.ErrParse):
		parsed, parseErr := ParseStructuredAnswer(raw)
		if parseErr != nil {
			logger.Warn("match response unparseable, using first opportunity", "err", parseErr)
			parsed = models.StructuredAnswer{Summary: raw}
		}
		answer = parsed
	case err != nil:
		return models.StructuredAnswer{}, fmt.Errorf("failed to match opportunities: %w", err)
	}

	answer.TopMatch = resolveMatch(answer.TopMatch, opportunities)
	if answer.SearchQuery == "" {
		answer.SearchQuery = strings.Join(keywords, " ")
	}
	return answer, nil
}

// resolveMatch maps the model's pick onto a listed opportunity. An empty pick
// becomes the first opportunity; an unlisted pick is kept as the model gave it.
func resolveMatch(pick string, opportunities []string) string {
	pick = strings.TrimSpace(pick)
	if pick == "" {
		return opportunities[0]
	}
	for _, o := range opportunities {
		if strings.EqualFold(o, pick) {
			return o
		}
	}
	for _, o := range opportunities {
		if strings.Contains(strings.ToLower(pick), strings.ToLower(o)) {
			return o
		}
	}
	logger.Debug("model picked an unlisted opportunity", "pick", pick)
	return pick
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
