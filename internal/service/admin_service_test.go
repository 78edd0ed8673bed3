package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"resume-qa-be/internal/dto"
	"resume-qa-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingRefresher struct {
	calls   int
	removed int64
}

func (r *countingRefresher) Refresh(ctx context.Context) int64 {
	r.calls++
	return r.removed
}

type fixedSizer struct {
	size int64
	err  error
}

func (s fixedSizer) Size(ctx context.Context) (int64, error) { return s.size, s.err }

func seedEscalations(store *escalationStore, n int, status entity.EscalationStatus) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		store.records = append(store.records, &entity.EscalationRecord{
			Id:           uuid.New(),
			QuestionText: "q",
			Language:     entity.LanguageEn,
			Reason:       entity.ReasonLowConfidence,
			Status:       status,
			CreatedAt:    base.Add(time.Duration(len(store.records)) * time.Minute),
		})
	}
}

func TestAdminService_ListEscalationsPagesNewestFirst(t *testing.T) {
	store := &escalationStore{}
	seedEscalations(store, 3, entity.EscalationPending)
	seedEscalations(store, 2, entity.EscalationResolved)
	svc := NewAdminService(storeFactory{store: store}, &countingRefresher{}, fixedSizer{})

	res, err := svc.ListEscalations(context.Background(), &dto.ListEscalationsRequest{Status: "pending", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, store.records[2].Id, res.Items[0].Id)
	assert.Equal(t, []string{}, res.Items[0].SourceIds)

	res, err = svc.ListEscalations(context.Background(), &dto.ListEscalationsRequest{Status: "pending", Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	res, err = svc.ListEscalations(context.Background(), &dto.ListEscalationsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Total)
	assert.Equal(t, 20, res.Limit)
}

func TestAdminService_ResolveEscalation(t *testing.T) {
	store := &escalationStore{}
	seedEscalations(store, 1, entity.EscalationPending)
	svc := NewAdminService(storeFactory{store: store}, &countingRefresher{}, fixedSizer{})

	require.NoError(t, svc.ResolveEscalation(context.Background(), store.records[0].Id))
	assert.Equal(t, entity.EscalationResolved, store.records[0].Status)
	assert.NotNil(t, store.records[0].ResolvedAt)

	err := svc.ResolveEscalation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAdminService_PurgeCache(t *testing.T) {
	refresher := &countingRefresher{removed: 4}
	svc := NewAdminService(storeFactory{store: &escalationStore{}}, refresher, fixedSizer{size: 11})

	res, err := svc.PurgeCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &dto.PurgeCacheResponse{Removed: 4, CacheSize: 11}, res)
	assert.Equal(t, 1, refresher.calls)

	svc = NewAdminService(storeFactory{store: &escalationStore{}}, refresher, fixedSizer{err: errors.New("down")})
	_, err = svc.PurgeCache(context.Background())
	assert.Error(t, err)
}
