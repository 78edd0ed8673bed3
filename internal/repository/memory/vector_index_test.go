package memory

import (
	"context"
	"testing"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/pkg/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndex_QueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()

	require.NoError(t, idx.Upsert(ctx, &entity.VectorEntry{Id: "a", Collection: "c", EmbeddingValue: []float32{1, 0}}))
	require.NoError(t, idx.Upsert(ctx, &entity.VectorEntry{Id: "b", Collection: "c", EmbeddingValue: []float32{0.7, 0.7}}))
	require.NoError(t, idx.Upsert(ctx, &entity.VectorEntry{Id: "z", Collection: "other", EmbeddingValue: []float32{1, 0}}))

	hits, err := idx.Query(ctx, "c", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Entry.Id)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "b", hits[1].Entry.Id)
}

func TestVectorIndex_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()
	e := &entity.VectorEntry{Id: "a", Collection: "c", EmbeddingValue: []float32{1, 0}, Document: "v1"}
	require.NoError(t, idx.Upsert(ctx, e))
	e.Document = "v2"
	require.NoError(t, idx.Upsert(ctx, e))

	n, err := idx.Count(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	hits, _ := idx.Query(ctx, "c", []float32{1, 0}, 1)
	assert.Equal(t, "v2", hits[0].Entry.Document)
}

func TestVectorIndex_Prune(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()
	now := time.Now()

	_ = idx.Upsert(ctx, &entity.VectorEntry{Id: "old", Collection: "c", CreatedAt: now.Add(-200 * time.Hour),
		Metadata: map[string]interface{}{"snap": "s1"}})
	_ = idx.Upsert(ctx, &entity.VectorEntry{Id: "stale", Collection: "c", CreatedAt: now,
		Metadata: map[string]interface{}{"snap": "s0"}})
	_ = idx.Upsert(ctx, &entity.VectorEntry{Id: "fresh", Collection: "c", CreatedAt: now,
		Metadata: map[string]interface{}{"snap": "s1"}})

	removed, err := idx.Prune(ctx, "c", index.PruneFilter{
		CreatedBefore: now.Add(-168 * time.Hour),
		MetadataKey:   "snap",
		MetadataValue: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, _ := idx.Count(ctx, "c")
	assert.Equal(t, int64(1), n)
}

func TestVectorIndex_LastWriteAdvancesOnEveryUpsert(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex()

	empty, err := idx.LastWrite(ctx, "c")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	created := time.Now().Add(-time.Hour)
	e := &entity.VectorEntry{Id: "a", Collection: "c", EmbeddingValue: []float32{1, 0}, Document: "v1", CreatedAt: created}
	require.NoError(t, idx.Upsert(ctx, e))
	first, _ := idx.LastWrite(ctx, "c")

	e.Document = "v2"
	require.NoError(t, idx.Upsert(ctx, e))
	second, _ := idx.LastWrite(ctx, "c")

	assert.True(t, second.After(first), "an in-place edit with the same created_at still moves the write time")

	other, _ := idx.LastWrite(ctx, "other")
	assert.True(t, other.IsZero())
}
