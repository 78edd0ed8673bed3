package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestDo_RetriesAtMostMaxRetries(t *testing.T) {
	calls := 0
	var retried []int
	_, err := Do(context.Background(), Config{MaxRetries: 2, Delay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errFlaky
		},
		func(err error, attempt int) { retried = append(retried, attempt) })

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Config{MaxRetries: 2, Delay: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errFlaky
			}
			return "ok", nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Config{MaxRetries: 5, Delay: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, Permanent(errFlaky)
		}, nil)

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptTimeout(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Config{MaxRetries: 1, Delay: time.Millisecond, AttemptTimeout: 5 * time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			<-ctx.Done()
			return 0, ctx.Err()
		}, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}
