package contract

import (
	"context"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

type EscalationRepository interface {
	Create(ctx context.Context, record *entity.EscalationRecord) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EscalationRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EscalationRecord, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error
}
