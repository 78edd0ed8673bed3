package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupRepository_SingleLeaderUnderBurst(t *testing.T) {
	repo := NewDedupRepository[string](time.Minute)

	var leaders int32
	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, leader := repo.Acquire("en|what are your skills")
			if leader {
				atomic.AddInt32(&leaders, 1)
				time.Sleep(10 * time.Millisecond)
				repo.Complete(entry, "go, postgres")
			}
			v, ok, err := entry.Wait(context.Background())
			assert.NoError(t, err)
			assert.True(t, ok)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), leaders)
	for _, r := range results {
		assert.Equal(t, "go, postgres", r)
	}
}

func TestDedupRepository_AbandonReleasesKey(t *testing.T) {
	repo := NewDedupRepository[int](time.Minute)

	entry, leader := repo.Acquire("k")
	require.True(t, leader)

	waiter, leader2 := repo.Acquire("k")
	require.False(t, leader2)

	repo.Abandon("k", entry)
	_, ok, err := waiter.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, leader3 := repo.Acquire("k")
	assert.True(t, leader3)
}

func TestDedupRepository_Expires(t *testing.T) {
	repo := NewDedupRepository[int](20 * time.Millisecond)
	entry, _ := repo.Acquire("k")
	repo.Complete(entry, 1)

	time.Sleep(40 * time.Millisecond)
	_, leader := repo.Acquire("k")
	assert.True(t, leader)
}

func TestDedupEntry_WaitHonorsContext(t *testing.T) {
	repo := NewDedupRepository[int](time.Minute)
	repo.Acquire("k")
	waiter, _ := repo.Acquire("k")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok, err := waiter.Wait(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
