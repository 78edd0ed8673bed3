package entity

import "errors"

var (
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrRetrievalUnavailable means the index or embedding service stayed unreachable after retries.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrDraftGenerationFailed means the completion service failed while drafting.
	ErrDraftGenerationFailed = errors.New("draft generation failed")
	// ErrEvaluationInconsistent means the evaluator could not reconcile the draft claims with the excerpts.
	ErrEvaluationInconsistent = errors.New("evaluation inconsistent")
	// ErrCacheUnavailable means a semantic cache read or write failed. Lookups treat it as a miss.
	ErrCacheUnavailable = errors.New("cache unavailable")

	ErrInvalidTransition = errors.New("invalid state transition")
)
