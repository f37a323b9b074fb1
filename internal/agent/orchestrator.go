package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/koopa0/sage/internal/rag"
)

const tracerName = "sage/agent"

// Researcher runs one full retrieval-grounded answer pass for a
// sub-question. Satisfied by rag.Pipeline.
type Researcher interface {
	Ask(ctx context.Context, question string) (*rag.Result, error)
}

// Completer is the raw completion capability used for the planning and
// synthesis calls. Satisfied by rag.Generator.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of a completed run.
type Result struct {
	RunID       uuid.UUID
	Plan        []string
	StepAnswers []string // one per plan step, in step order
	FinalAnswer string
}

// Orchestrator drives the plan → research → synthesize state machine.
// Each Run owns its state exclusively; an Orchestrator may serve many
// concurrent runs.
type Orchestrator struct {
	researcher Researcher
	completer  Completer
	retry      RetryConfig
	breaker    *CircuitBreaker
	workers    int
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetryConfig overrides the completion retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(o *Orchestrator) { o.retry = cfg }
}

// WithCircuitBreaker substitutes a breaker, e.g. one shared with other
// components talking to the same provider.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(o *Orchestrator) { o.breaker = cb }
}

// WithResearchWorkers enables concurrent research steps, at most n in
// flight. Step answers stay ordered by step index regardless of completion
// order, so synthesis is deterministic for a fixed plan. n <= 1 keeps the
// default sequential execution.
func WithResearchWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// New creates an Orchestrator.
func New(researcher Researcher, completer Completer, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if researcher == nil {
		return nil, fmt.Errorf("researcher is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		researcher: researcher,
		completer:  completer,
		retry:      DefaultRetryConfig(),
		breaker:    NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		workers:    1,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run answers a complex question by planning sub-questions, researching
// each through the pipeline and synthesizing a final answer. On failure the
// returned error is a *StateError naming the phase (and step) the run died
// in; the run can then be restarted or abandoned by the caller.
func (o *Orchestrator) Run(ctx context.Context, input string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("input is required")
	}

	runID := uuid.New()
	logger := o.logger.With("run_id", runID.String())

	ctx, span := otel.Tracer(tracerName).Start(ctx, "agent.run")
	defer span.End()

	// Planning.
	plan, err := o.plan(ctx, input, logger)
	if err != nil {
		return nil, stateErr(StatePlanning, -1, err)
	}
	span.SetAttributes(attribute.Int("agent.plan_steps", len(plan)))
	logger.Debug("plan ready", "steps", len(plan))

	// Researching(0..N-1).
	answers, err := o.research(ctx, plan, logger)
	if err != nil {
		return nil, err
	}

	// Synthesizing.
	final, err := completeWithRetry(ctx, o.retry, o.breaker, logger, func(ctx context.Context) (string, error) {
		return o.completer.Complete(ctx, synthesisPrompt(input, plan, answers))
	})
	if err != nil {
		return nil, stateErr(StateSynthesizing, -1, err)
	}

	logger.Debug("run complete", "final_chars", len(final))
	return &Result{
		RunID:       runID,
		Plan:        plan,
		StepAnswers: answers,
		FinalAnswer: final,
	}, nil
}

// plan decomposes input into sub-questions. Transport failures propagate;
// malformed output is retried once with a stricter instruction and then
// degraded to the single-step plan [input].
func (o *Orchestrator) plan(ctx context.Context, input string, logger *slog.Logger) ([]string, error) {
	out, err := completeWithRetry(ctx, o.retry, o.breaker, logger, func(ctx context.Context) (string, error) {
		return o.completer.Complete(ctx, planPrompt(input, false))
	})
	if err != nil {
		return nil, err
	}

	steps, parseErr := parsePlan(out)
	if parseErr == nil {
		return steps, nil
	}
	logger.Debug("plan parse failed, retrying with strict prompt", "error", parseErr)

	out, err = completeWithRetry(ctx, o.retry, o.breaker, logger, func(ctx context.Context) (string, error) {
		return o.completer.Complete(ctx, planPrompt(input, true))
	})
	if err != nil {
		return nil, err
	}

	steps, parseErr = parsePlan(out)
	if parseErr == nil {
		return steps, nil
	}

	logger.Warn("plan parse failed twice, falling back to single-step plan", "error", parseErr)
	return []string{input}, nil
}

// research executes every plan step, sequentially or through the bounded
// worker pool, and returns the answers ordered by step index.
func (o *Orchestrator) research(ctx context.Context, plan []string, logger *slog.Logger) ([]string, error) {
	if o.workers > 1 && len(plan) > 1 {
		return o.researchParallel(ctx, plan, logger)
	}

	answers := make([]string, len(plan))
	for i, question := range plan {
		answer, err := o.researchStep(ctx, question, logger)
		if err != nil {
			return nil, stateErr(StateResearching, i, err)
		}
		answers[i] = answer
		logger.Debug("research step complete", "step", i, "of", len(plan))
	}
	return answers, nil
}

func (o *Orchestrator) researchParallel(ctx context.Context, plan []string, logger *slog.Logger) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	answers := make([]string, len(plan))
	errs := make([]error, len(plan))
	sem := make(chan struct{}, o.workers)

	var wg sync.WaitGroup
	for i, question := range plan {
		wg.Add(1)
		go func(i int, question string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}

			answer, err := o.researchStep(ctx, question, logger)
			if err != nil {
				errs[i] = err
				cancel() // no point finishing the other steps
				return
			}
			answers[i] = answer
		}(i, question)
	}
	wg.Wait()

	// Report the lowest step that genuinely failed. The cancel fan-out
	// leaves context.Canceled in the slots of steps that never got to run,
	// and those must not mask the real failure at a higher index.
	canceled := -1
	for i, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return nil, stateErr(StateResearching, i, err)
		}
		if canceled == -1 {
			canceled = i
		}
	}
	if canceled >= 0 {
		return nil, stateErr(StateResearching, canceled, errs[canceled])
	}
	return answers, nil
}

// researchStep runs the pipeline for one sub-question. The retry loop wraps
// the whole pass: a step that failed on retrieval is as retryable as one
// that failed on generation.
func (o *Orchestrator) researchStep(ctx context.Context, question string, logger *slog.Logger) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "agent.research_step")
	defer span.End()

	return completeWithRetry(ctx, o.retry, o.breaker, logger, func(ctx context.Context) (string, error) {
		result, err := o.researcher.Ask(ctx, question)
		if err != nil {
			return "", err
		}
		return result.Answer.Text, nil
	})
}
