package implementation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/mapper"
	"resume-qa-be/internal/model"
	"resume-qa-be/internal/repository/contract"
	"resume-qa-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorEntryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.VectorEntryMapper
}

func NewVectorEntryRepository(db *gorm.DB) contract.VectorEntryRepository {
	return &VectorEntryRepositoryImpl{
		db:     db,
		mapper: mapper.NewVectorEntryMapper(),
	}
}

func (r *VectorEntryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *VectorEntryRepositoryImpl) Upsert(ctx context.Context, entry *entity.VectorEntry) error {
	m := r.mapper.ToModel(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "embedding_value", "metadata", "created_at", "updated_at"}),
		}).
		Create(m).Error
}

func (r *VectorEntryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.VectorEntry, error) {
	var m model.VectorEntry
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *VectorEntryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.VectorEntry{}), specs...)
	err := query.Count(&count).Error
	return count, err
}

func (r *VectorEntryRepositoryImpl) LatestUpdate(ctx context.Context, specs ...specification.Specification) (time.Time, error) {
	var latest sql.NullTime
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.VectorEntry{}), specs...)
	if err := query.Select("MAX(updated_at)").Row().Scan(&latest); err != nil {
		return time.Time{}, err
	}
	return latest.Time, nil
}

// SearchSimilarWithScore returns the nearest rows of one collection with their similarity.
func (r *VectorEntryRepositoryImpl) SearchSimilarWithScore(ctx context.Context, collection string, embedding []float32, limit int, threshold float64) ([]*contract.ScoredVectorEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	// pgvector cosine distance is 1 - cosine_similarity
	type result struct {
		model.VectorEntry
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("vector_entries").
		Select("vector_entries.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("collection = ?", collection).
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order(gorm.Expr("embedding_value <=> ?", queryVector)).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredVectorEntry, len(results))
	for i := range results {
		scored[i] = &contract.ScoredVectorEntry{
			Entry:      r.mapper.ToEntity(&results[i].VectorEntry),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}

func (r *VectorEntryRepositoryImpl) DeleteWhere(ctx context.Context, specs ...specification.Specification) (int64, error) {
	if len(specs) == 0 {
		return 0, errors.New("refusing unconditional delete")
	}
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	res := query.Delete(&model.VectorEntry{})
	return res.RowsAffected, res.Error
}
