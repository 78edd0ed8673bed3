package index

import (
	"context"
	"fmt"
	"time"

	"resume-qa-be/pkg/retry"

	"github.com/patrickmn/go-cache"
)

// Snapshot identifies the corpus state an answer was produced against.
type Snapshot struct {
	Id       string
	Size     int64
	Revision time.Time
}

const snapshotKey = "current"

// SnapshotProvider derives the corpus snapshot from the corpus collection's
// name, document count and last write time, memoized for a short TTL.
type SnapshotProvider struct {
	index      SimilarityIndex
	collection string
	retry      retry.Config
	memo       *cache.Cache
}

func NewSnapshotProvider(index SimilarityIndex, collection string, ttl time.Duration, retryCfg retry.Config) *SnapshotProvider {
	return &SnapshotProvider{
		index:      index,
		collection: collection,
		retry:      retryCfg,
		memo:       cache.New(ttl, ttl*4),
	}
}

func (p *SnapshotProvider) Current(ctx context.Context) (Snapshot, error) {
	if x, found := p.memo.Get(snapshotKey); found {
		return x.(Snapshot), nil
	}

	count, err := retry.Do(ctx, p.retry, func(ctx context.Context) (int64, error) {
		return p.index.Count(ctx, p.collection)
	}, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count %s: %w", p.collection, err)
	}

	revision, err := retry.Do(ctx, p.retry, func(ctx context.Context) (time.Time, error) {
		return p.index.LastWrite(ctx, p.collection)
	}, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("last write %s: %w", p.collection, err)
	}

	snap := Snapshot{Id: snapshotId(p.collection, count, revision), Size: count, Revision: revision}
	p.memo.SetDefault(snapshotKey, snap)
	return snap, nil
}

// Invalidate forces the next Current call to re-read the corpus.
func (p *SnapshotProvider) Invalidate() {
	p.memo.Delete(snapshotKey)
}

func snapshotId(collection string, count int64, revision time.Time) string {
	var rev int64
	if !revision.IsZero() {
		rev = revision.UnixMicro()
	}
	return fmt.Sprintf("%s:%d:%d", collection, count, rev)
}
