package unitofwork

import (
	"context"

	"resume-qa-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	VectorEntryRepository() contract.VectorEntryRepository
	EscalationRepository() contract.EscalationRepository
}
