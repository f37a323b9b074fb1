// Package agent implements multi-step research orchestration over the RAG
// pipeline.
//
// A run is a bounded state machine:
//
//	Planning -> Researching(0..N-1) -> Synthesizing -> Done
//
// Planning asks the model to decompose the input into 3-5 sub-questions.
// Each research step runs the full retrieve→assemble→generate pipeline for
// one sub-question; results accumulate in step order. Synthesizing makes a
// final completion call over the accumulated research — no fresh retrieval —
// to produce the answer to the original input.
//
// The loop always terminates: exactly len(plan) research steps and one
// synthesis. A malformed plan is retried once with a stricter instruction
// and then degraded to the single-step plan [input]; plan parsing never
// fails a run.
//
// Failures carry the state they happened in via *StateError, so a caller
// interrupted mid-run knows whether anything useful was accumulated.
// Completion calls go through exponential-backoff retry and a circuit
// breaker; content-filter rejections are terminal.
package agent
