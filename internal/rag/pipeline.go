package rag

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/koopa0/sage/internal/index"
)

const tracerName = "sage/rag"

// Result is the full outcome of one retrieve→assemble→generate pass.
type Result struct {
	Answer     Answer
	Matches    []index.Match
	Confidence float32
	Sources    []string
}

// Pipeline wires Retriever, Assembler and Generator into the single-shot
// question answering flow. The agent orchestrator runs one Pipeline.Ask per
// research step.
type Pipeline struct {
	retriever *Retriever
	assembler *Assembler
	generator *Generator
	topK      int
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline. topK <= 0 selects DefaultTopK.
func NewPipeline(retriever *Retriever, assembler *Assembler, generator *Generator, topK int, logger *slog.Logger) (*Pipeline, error) {
	if retriever == nil || assembler == nil || generator == nil {
		return nil, fmt.Errorf("retriever, assembler and generator are required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}, nil
}

// Ask answers question from the indexed corpus: retrieve the closest
// chunks, assemble them into a bounded context, generate a grounded answer.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rag.ask")
	defer span.End()

	matches, err := p.retriever.Retrieve(ctx, question, p.topK)
	if err != nil {
		return nil, err
	}

	assembled := p.assembler.Assemble(matches)
	span.SetAttributes(
		attribute.Int("rag.matches", len(matches)),
		attribute.Float64("rag.confidence", float64(assembled.Confidence)),
	)

	answer, err := p.generator.Answer(ctx, question, assembled.Text)
	if err != nil {
		return nil, err
	}

	return &Result{
		Answer:     answer,
		Matches:    matches,
		Confidence: assembled.Confidence,
		Sources:    assembled.Sources,
	}, nil
}
