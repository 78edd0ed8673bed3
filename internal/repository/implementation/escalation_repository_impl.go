package implementation

import (
	"context"
	"errors"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/mapper"
	"resume-qa-be/internal/model"
	"resume-qa-be/internal/repository/contract"
	"resume-qa-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EscalationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EscalationMapper
}

func NewEscalationRepository(db *gorm.DB) contract.EscalationRepository {
	return &EscalationRepositoryImpl{
		db:     db,
		mapper: mapper.NewEscalationMapper(),
	}
}

func (r *EscalationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *EscalationRepositoryImpl) Create(ctx context.Context, record *entity.EscalationRecord) error {
	m := r.mapper.ToModel(record)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*record = *r.mapper.ToEntity(m)
	return nil
}

func (r *EscalationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EscalationRecord, error) {
	var m model.Escalation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *EscalationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EscalationRecord, error) {
	var models []*model.Escalation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *EscalationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Escalation{}), specs...)
	err := query.Count(&count).Error
	return count, err
}

func (r *EscalationRepositoryImpl) MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Escalation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(entity.EscalationResolved), "resolved_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
