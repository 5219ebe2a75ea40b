// ABOUTME: ContextAssembler turns ranked query results into the prompt context block
// ABOUTME: Joins chunk texts in rank order and enforces an optional character budget
package core

import (
	"strings"
	"unicode/utf8"

	"github.com/harper/docqa/internal/models"
)

// ContextSeparator separates chunk texts in an assembled context
const ContextSeparator = "\n\n"

// Assembly is an assembled context plus the bookkeeping of what fit
type Assembly struct {
	Context string
	Used    []models.QueryResult
	Dropped int
}

// Assemble joins result texts in input order separated by a blank line
func Assemble(results []models.QueryResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, ContextSeparator)
}

// AssembleWithBudget assembles results, dropping whole results from the
// lowest-ranked end until the context fits in maxChars characters.
// maxChars <= 0 disables the budget.
func AssembleWithBudget(results []models.QueryResult, maxChars int) Assembly {
	used := results
	for len(used) > 0 && maxChars > 0 && joinedLen(used) > maxChars {
		used = used[:len(used)-1]
	}

	return Assembly{
		Context: Assemble(used),
		Used:    used,
		Dropped: len(results) - len(used),
	}
}

func joinedLen(results []models.QueryResult) int {
	n := utf8.RuneCountInString(ContextSeparator) * (len(results) - 1)
	for _, r := range results {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

// BuildPrompt renders the grounding instructions with context and question
func BuildPrompt(question, context string) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant for question-answering tasks. ")
	sb.WriteString("Use the following pieces of retrieved context to answer the question. ")
	sb.WriteString("If you don't know the answer, say that you don't know. ")
	sb.WriteString("Use three sentences maximum and keep the answer concise.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nQuestion:\n")
	sb.WriteString(question)
	return sb.String()
}
