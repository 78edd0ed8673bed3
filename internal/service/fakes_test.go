package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/repository/contract"
	"resume-qa-be/internal/repository/specification"
	"resume-qa-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// escalationStore interprets the specifications the admin service uses.
type escalationStore struct {
	mu      sync.Mutex
	records []*entity.EscalationRecord
}

func (s *escalationStore) filter(specs []specification.Specification) []*entity.EscalationRecord {
	out := append([]*entity.EscalationRecord(nil), s.records...)
	var page *specification.Pagination
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByEscalationStatus:
			if sp.Status == "" {
				continue
			}
			kept := out[:0:0]
			for _, r := range out {
				if string(r.Status) == sp.Status {
					kept = append(kept, r)
				}
			}
			out = kept
		case specification.OrderBy:
			sort.SliceStable(out, func(i, j int) bool {
				if sp.Desc {
					return out[i].CreatedAt.After(out[j].CreatedAt)
				}
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			})
		case specification.Pagination:
			p := sp
			page = &p
		}
	}
	if page != nil {
		if page.Offset >= len(out) {
			return nil
		}
		end := page.Offset + page.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[page.Offset:end]
	}
	return out
}

func (s *escalationStore) Create(ctx context.Context, r *entity.EscalationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *escalationStore) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.EscalationRecord, error) {
	all, _ := s.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (s *escalationStore) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.EscalationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(specs), nil
}

func (s *escalationStore) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := s.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (s *escalationStore) MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Id == id {
			r.Status = entity.EscalationResolved
			r.ResolvedAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type storeUnitOfWork struct{ store *escalationStore }

func (u storeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u storeUnitOfWork) Commit() error                   { return nil }
func (u storeUnitOfWork) Rollback() error                 { return nil }
func (u storeUnitOfWork) VectorEntryRepository() contract.VectorEntryRepository {
	return nil
}
func (u storeUnitOfWork) EscalationRepository() contract.EscalationRepository {
	return u.store
}

type storeFactory struct{ store *escalationStore }

func (f storeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return storeUnitOfWork{store: f.store}
}
