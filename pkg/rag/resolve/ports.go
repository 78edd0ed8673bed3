package resolve

import (
	"context"

	"resume-qa-be/internal/entity"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/rag/evaluate"
	"resume-qa-be/pkg/rag/semcache"
)

type Retriever interface {
	Search(ctx context.Context, text string, topK int) ([]entity.RetrievedExcerpt, error)
}

type Drafter interface {
	Draft(ctx context.Context, q entity.Question, excerpts []entity.RetrievedExcerpt, feedback string) (entity.DraftAnswer, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, draft entity.DraftAnswer, excerpts []entity.RetrievedExcerpt) (evaluate.Evaluation, error)
}

type AnswerCache interface {
	Lookup(ctx context.Context, q entity.Question, rc semcache.RequestContext) (*semcache.CacheHit, []float32, error)
	Admissible(answer entity.EvaluatedAnswer) bool
	Size(ctx context.Context) (int64, error)
}

type SnapshotSource interface {
	Current(ctx context.Context) (index.Snapshot, error)
}

// Admitter hands an answer to the cache writer without waiting for the write.
type Admitter interface {
	Enqueue(ctx context.Context, q entity.Question, answer entity.EvaluatedAnswer, rc semcache.RequestContext, vector []float32) error
}

// Escalator records a question for the owner and returns the record id.
type Escalator interface {
	Notify(ctx context.Context, q entity.Question, ec entity.EscalationContext) (string, error)
}
