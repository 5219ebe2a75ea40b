// ABOUTME: Parses chat model output into a StructuredAnswer
// ABOUTME: Accepts JSON (bare or fenced) and falls back to labelled marker lines
package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/harper/docqa/internal/models"
)

// markerLine matches a labelled line such as "Top match: X". The label must
// open the line once list bullets and emphasis are stripped.
var markerLine = regexp.MustCompile(`(?i)^(suggested search query|top match|summary|answer)\s*:(.*)$`)

var answerSetters = map[string]func(*models.StructuredAnswer, string){
	"suggested search query": func(a *models.StructuredAnswer, v string) { a.SearchQuery = v },
	"top match":              func(a *models.StructuredAnswer, v string) { a.TopMatch = v },
	"summary":                func(a *models.StructuredAnswer, v string) { a.Summary = v },
	"answer":                 func(a *models.StructuredAnswer, v string) { a.Answer = v },
}

// ParseStructuredAnswer extracts answer fields from model output. JSON is
// tried first; otherwise lines such as "Top match: X" are read, the last
// occurrence of a label winning. Output with no recognisable field fails
// with models.ErrParse.
func ParseStructuredAnswer(text string) (models.StructuredAnswer, error) {
	if a, ok := parseJSONAnswer(text); ok {
		return a, nil
	}

	var a models.StructuredAnswer
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*# "))
		line = strings.ReplaceAll(line, "**", "")

		m := markerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		set := answerSetters[strings.ToLower(m[1])]
		set(&a, strings.Trim(strings.TrimSpace(m[2]), `"`))
	}

	if a.IsEmpty() {
		return a, fmt.Errorf("%w: no answer fields in %q", models.ErrParse, truncate(text, 80))
	}
	return a, nil
}

func parseJSONAnswer(text string) (models.StructuredAnswer, bool) {
	body := strings.TrimSpace(text)
	if start := strings.Index(body, "```"); start >= 0 {
		rest := body[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			body = strings.TrimSpace(rest[:end])
		}
	}
	if !strings.HasPrefix(body, "{") {
		return models.StructuredAnswer{}, false
	}

	var a models.StructuredAnswer
	if err := json.Unmarshal([]byte(body), &a); err != nil || a.IsEmpty() {
		return models.StructuredAnswer{}, false
	}
	return a, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
