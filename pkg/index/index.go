package index

import (
	"context"
	"time"

	"resume-qa-be/internal/entity"
)

// Hit is one nearest-neighbor result. Similarity is cosine similarity clamped to [0,1].
type Hit struct {
	Entry      *entity.VectorEntry
	Similarity float64
}

// PruneFilter selects rows to delete: those created before CreatedBefore, or
// whose metadata under MetadataKey differs from MetadataValue.
type PruneFilter struct {
	CreatedBefore time.Time
	MetadataKey   string
	MetadataValue string
}

// SimilarityIndex is the nearest-neighbor store behind both collections.
// Implementations must allow concurrent reads and writes.
type SimilarityIndex interface {
	Upsert(ctx context.Context, entry *entity.VectorEntry) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error)
	Count(ctx context.Context, collection string) (int64, error)
	// LastWrite is the time of the most recent upsert into collection, zero when empty.
	LastWrite(ctx context.Context, collection string) (time.Time, error)
	Prune(ctx context.Context, collection string, filter PruneFilter) (int64, error)
}
