package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Completer is the language-model completion capability: one prompt in, one
// text response out. Satisfied by provider.Gemini and test mocks.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Answer is the result of one generation call.
type Answer struct {
	Text string

	// UsedContext reports whether any retrieval context was supplied for
	// this answer. It describes the request, not the model's behavior: a
	// downstream consumer can treat UsedContext=false answers as ungrounded
	// regardless of how confident the text sounds.
	UsedContext bool
}

const answerPromptFormat = `You are a research assistant. Answer the question using ONLY the context below.
Rules:
- Base every statement on the context. Do not use outside knowledge.
- If the context does not contain enough information to answer, say exactly that and state what is missing.
- Be concise and factual.

Context:
%s

Question: %s

Answer:`

const noContextPromptFormat = `You are a research assistant. No supporting context was found for this question.
State that no relevant information is available in the knowledge base, then, if the question is answerable from general knowledge, give a brief caveated answer.

Question: %s

Answer:`

// Generator produces answers grounded in assembled context. It makes exactly
// one completion call per Answer: retry policy belongs to the caller, which
// knows whether the failure budget has been spent.
type Generator struct {
	completer Completer
	logger    *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(completer Completer, logger *slog.Logger) (*Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: completer, logger: logger}, nil
}

// Answer generates a response to question grounded in contextText. With an
// empty context the model is told none was found, keeping the "insufficient
// context" contract a content guarantee rather than an error.
func (g *Generator) Answer(ctx context.Context, question, contextText string) (Answer, error) {
	used := strings.TrimSpace(contextText) != ""

	var prompt string
	if used {
		prompt = fmt.Sprintf(answerPromptFormat, contextText, question)
	} else {
		prompt = fmt.Sprintf(noContextPromptFormat, question)
	}

	text, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	g.logger.Debug("generated answer", "used_context", used, "answer_chars", len(text))
	return Answer{Text: text, UsedContext: used}, nil
}

// Complete passes a raw prompt to the model. The agent orchestrator uses
// this for its planning and synthesis calls, which have their own prompt
// shapes.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	return g.completer.Complete(ctx, prompt)
}
