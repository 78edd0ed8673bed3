package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/pkg/index"
)

// VectorIndex is a brute-force in-process similarity index for local runs and tests.
type VectorIndex struct {
	mu          sync.RWMutex
	collections map[string]map[string]entity.VectorEntry
	lastWrite   map[string]time.Time
}

var _ index.SimilarityIndex = &VectorIndex{}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		collections: make(map[string]map[string]entity.VectorEntry),
		lastWrite:   make(map[string]time.Time),
	}
}

func (v *VectorIndex) Upsert(ctx context.Context, entry *entity.VectorEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := *entry
	stored.EmbeddingValue = append([]float32(nil), entry.EmbeddingValue...)
	stored.Metadata = make(map[string]interface{}, len(entry.Metadata))
	for k, val := range entry.Metadata {
		stored.Metadata[k] = val
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.collections[entry.Collection]
	if !ok {
		c = make(map[string]entity.VectorEntry)
		v.collections[entry.Collection] = c
	}
	c[entry.Id] = stored

	// strictly increasing so back-to-back edits stay distinguishable
	at := time.Now()
	if prev := v.lastWrite[entry.Collection]; !at.After(prev) {
		at = prev.Add(time.Microsecond)
	}
	v.lastWrite[entry.Collection] = at
	return nil
}

func (v *VectorIndex) Query(ctx context.Context, collection string, vector []float32, topK int) ([]index.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.RLock()
	hits := make([]index.Hit, 0, len(v.collections[collection]))
	for _, e := range v.collections[collection] {
		e := e
		hits = append(hits, index.Hit{Entry: &e, Similarity: entity.ClampUnit(cosine(vector, e.EmbeddingValue))})
	}
	v.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].Entry.Id < hits[j].Entry.Id
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (v *VectorIndex) Count(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return int64(len(v.collections[collection])), nil
}

func (v *VectorIndex) LastWrite(ctx context.Context, collection string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.collections[collection]) == 0 {
		return time.Time{}, nil
	}
	return v.lastWrite[collection], nil
}

func (v *VectorIndex) Prune(ctx context.Context, collection string, filter index.PruneFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	var removed int64
	for id, e := range v.collections[collection] {
		expired := !filter.CreatedBefore.IsZero() && e.CreatedAt.Before(filter.CreatedBefore)
		mismatched := false
		if filter.MetadataKey != "" {
			val, _ := e.Metadata[filter.MetadataKey].(string)
			mismatched = val != filter.MetadataValue
		}
		if expired || mismatched {
			delete(v.collections[collection], id)
			removed++
		}
	}
	return removed, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
