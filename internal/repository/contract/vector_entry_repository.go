package contract

import (
	"context"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/repository/specification"
)

// ScoredVectorEntry wraps VectorEntry with its cosine similarity to the query.
type ScoredVectorEntry struct {
	Entry      *entity.VectorEntry
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type VectorEntryRepository interface {
	// Upsert inserts or fully replaces the row with the same (collection, id).
	Upsert(ctx context.Context, entry *entity.VectorEntry) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.VectorEntry, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// LatestUpdate returns the newest updated_at among matching rows, zero when none match.
	LatestUpdate(ctx context.Context, specs ...specification.Specification) (time.Time, error)
	SearchSimilarWithScore(ctx context.Context, collection string, embedding []float32, limit int, threshold float64) ([]*ScoredVectorEntry, error)
	DeleteWhere(ctx context.Context, specs ...specification.Specification) (int64, error)
}
