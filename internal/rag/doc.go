// Package rag implements the query-time half of the pipeline: semantic
// retrieval, context assembly and grounded answer generation.
//
// # Architecture
//
//	question
//	   |
//	   v
//	Retriever  -- embeds the query, searches the vector index
//	   |
//	   v
//	Assembler  -- ranks, budgets and formats matches; computes confidence
//	   |
//	   v
//	Generator  -- one completion call, answer strictly from the context
//	   |
//	   v
//	{answer, sources, confidence}
//
// The three stages are independent types so the agent orchestrator can
// recombine them (its synthesis step uses the Generator with accumulated
// research instead of a fresh retrieval).
//
// # Confidence
//
// Assembled confidence is the arithmetic mean of the similarity scores of
// the matches that made it into the context. It is a ranking heuristic,
// not a calibrated probability: treat 0 as "no evidence found" and compare
// values only against each other.
package rag
