package index

import (
	"context"
	"fmt"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/repository/specification"
	"resume-qa-be/internal/repository/unitofwork"
)

// PgVectorIndex stores every collection in the vector_entries table.
type PgVectorIndex struct {
	uowFactory unitofwork.RepositoryFactory
}

var _ SimilarityIndex = &PgVectorIndex{}

func NewPgVectorIndex(uowFactory unitofwork.RepositoryFactory) *PgVectorIndex {
	return &PgVectorIndex{uowFactory: uowFactory}
}

func (i *PgVectorIndex) Upsert(ctx context.Context, entry *entity.VectorEntry) error {
	if entry.Collection == "" || entry.Id == "" {
		return fmt.Errorf("upsert: collection and id are required")
	}
	uow := i.uowFactory.NewUnitOfWork(ctx)
	if err := uow.VectorEntryRepository().Upsert(ctx, entry); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", entry.Collection, entry.Id, err)
	}
	return nil
}

func (i *PgVectorIndex) Query(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	uow := i.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.VectorEntryRepository().SearchSimilarWithScore(ctx, collection, vector, topK, 0)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		hits = append(hits, Hit{Entry: s.Entry, Similarity: entity.ClampUnit(s.Similarity)})
	}
	return hits, nil
}

func (i *PgVectorIndex) Count(ctx context.Context, collection string) (int64, error) {
	uow := i.uowFactory.NewUnitOfWork(ctx)
	return uow.VectorEntryRepository().Count(ctx, specification.InCollection{Collection: collection})
}

func (i *PgVectorIndex) LastWrite(ctx context.Context, collection string) (time.Time, error) {
	uow := i.uowFactory.NewUnitOfWork(ctx)
	return uow.VectorEntryRepository().LatestUpdate(ctx, specification.InCollection{Collection: collection})
}

func (i *PgVectorIndex) Prune(ctx context.Context, collection string, filter PruneFilter) (int64, error) {
	uow := i.uowFactory.NewUnitOfWork(ctx)
	return uow.VectorEntryRepository().DeleteWhere(ctx,
		specification.InCollection{Collection: collection},
		specification.ExpiredOrMismatched{
			CreatedBefore: filter.CreatedBefore,
			Key:           filter.MetadataKey,
			Value:         filter.MetadataValue,
		},
	)
}
