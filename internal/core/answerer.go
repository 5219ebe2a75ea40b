// ABOUTME: Answerer runs the question-answering pipeline end to end
// ABOUTME: Retrieves chunks, assembles a budgeted context, and generates a grounded answer
package core

import (
	"context"
	"fmt"

	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
	"github.com/harper/docqa/internal/util"
)

// GenerateAnswer asks the chat model to answer question from the assembled context
func GenerateAnswer(ctx context.Context, gen Completer, question, contextText string) (string, error) {
	return gen.Complete(ctx, BuildPrompt(question, contextText), question)
}

// Answerer answers questions grounded in retrieved chunks
type Answerer struct {
	retriever       *Retriever
	generator       Completer
	retry           util.RetryPolicy
	maxContextChars int
}

// NewAnswerer creates an Answerer; maxContextChars <= 0 leaves the context unbounded
func NewAnswerer(retriever *Retriever, generator Completer, retry util.RetryPolicy, maxContextChars int) *Answerer {
	return &Answerer{
		retriever:       retriever,
		generator:       generator,
		retry:           retry,
		maxContextChars: maxContextChars,
	}
}

// Ask retrieves k chunks for question and generates an answer from them
func (a *Answerer) Ask(ctx context.Context, question string, k int) (*models.Answer, error) {
	results, err := a.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}

	assembly := AssembleWithBudget(results, a.maxContextChars)
	if assembly.Dropped > 0 {
		logger.Debug("context budget dropped results", "dropped", assembly.Dropped, "max_chars", a.maxContextChars)
	}

	var text string
	err = a.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		text, genErr = GenerateAnswer(ctx, a.generator, question, assembly.Context)
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer for %q: %w", question, withSubject(err, question))
	}

	return &models.Answer{
		Question: question,
		Text:     text,
		Sources:  assembly.Used,
		Dropped:  assembly.Dropped,
	}, nil
}
