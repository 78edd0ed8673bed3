package service

import (
	"context"
	"time"

	"resume-qa-be/internal/dto"
	"resume-qa-be/internal/entity"
	"resume-qa-be/internal/repository/specification"
	"resume-qa-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type CacheSizer interface {
	Size(ctx context.Context) (int64, error)
}

type IAdminService interface {
	ListEscalations(ctx context.Context, req *dto.ListEscalationsRequest) (*dto.EscalationListResponse, error)
	ResolveEscalation(ctx context.Context, id uuid.UUID) error
	PurgeCache(ctx context.Context) (*dto.PurgeCacheResponse, error)
}

type adminService struct {
	uowFactory unitofwork.RepositoryFactory
	refresher  SnapshotRefresher
	cache      CacheSizer
	now        func() time.Time
}

func NewAdminService(uowFactory unitofwork.RepositoryFactory, refresher SnapshotRefresher, cache CacheSizer) IAdminService {
	return &adminService{
		uowFactory: uowFactory,
		refresher:  refresher,
		cache:      cache,
		now:        time.Now,
	}
}

func (s *adminService) ListEscalations(ctx context.Context, req *dto.ListEscalationsRequest) (*dto.EscalationListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.EscalationRepository()
	byStatus := specification.ByEscalationStatus{Status: req.Status}

	total, err := repo.Count(ctx, byStatus)
	if err != nil {
		return nil, err
	}

	records, err := repo.FindAll(ctx,
		byStatus,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.EscalationResponse, 0, len(records))
	for _, r := range records {
		items = append(items, toEscalationResponse(r))
	}

	return &dto.EscalationListResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *adminService) ResolveEscalation(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.EscalationRepository().MarkResolved(ctx, id, s.now().UTC())
}

func (s *adminService) PurgeCache(ctx context.Context) (*dto.PurgeCacheResponse, error) {
	removed := s.refresher.Refresh(ctx)
	size, err := s.cache.Size(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.PurgeCacheResponse{Removed: removed, CacheSize: size}, nil
}

func toEscalationResponse(r *entity.EscalationRecord) *dto.EscalationResponse {
	sources := r.SourceIds
	if sources == nil {
		sources = []string{}
	}
	return &dto.EscalationResponse{
		Id:         r.Id,
		Question:   r.QuestionText,
		Language:   string(r.Language),
		Reason:     r.Reason,
		Confidence: r.Confidence,
		DraftText:  r.DraftText,
		SourceIds:  sources,
		Contact: dto.EscalationContact{
			Name:     r.Contact.Name,
			Email:    r.Contact.Email,
			Phone:    r.Contact.Phone,
			LineId:   r.Contact.LineId,
			Telegram: r.Contact.Telegram,
		},
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}
