package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	var zero T
	return zero
}

func TestObserveReplaysInitialValue(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub, err := Observe(context.Background(), hub, []string{"posts"}, func(ctx context.Context) (string, error) {
		return "first", nil
	})
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, "first", receive(t, sub.Updates()))
	assert.Equal(t, "first", sub.Value())
}

func TestObserveRefreshesOnRelevantCommit(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	var calls atomic.Int64
	sub, err := Observe(context.Background(), hub, []string{"posts"}, func(ctx context.Context) (int64, error) {
		return calls.Add(1), nil
	})
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, int64(1), receive(t, sub.Updates()))

	hub.Notify("orders")
	hub.Notify("comments", "posts")

	assert.Equal(t, int64(2), receive(t, sub.Updates()))
	assert.Equal(t, int64(2), calls.Load())
}

func TestObserveInitialErrorDoesNotSubscribe(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	boom := errors.New("boom")
	sub, err := Observe(context.Background(), hub, nil, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, sub)
}

func TestObserveKeepsLastValueOnRefreshError(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	var calls atomic.Int64
	sub, err := Observe(context.Background(), hub, []string{"users"}, func(ctx context.Context) (int64, error) {
		n := calls.Add(1)
		if n == 2 {
			return 0, errors.New("transient")
		}
		return n, nil
	})
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, int64(1), receive(t, sub.Updates()))

	hub.Notify("users")
	hub.Notify("users")

	assert.Equal(t, int64(3), receive(t, sub.Updates()))
}

func TestCloseEndsUpdates(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub, err := Observe(context.Background(), hub, nil, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)

	sub.Close()

	// drain the replayed value, then the channel must be closed
	for range sub.Updates() {
	}
	select {
	case <-sub.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestCancelledContextEndsSubscription(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := Observe(ctx, hub, nil, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)

	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
}

func TestNotifyOnNilHubIsNoop(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.Notify("posts") })
	assert.NoError(t, hub.Close())
}

func TestTouches(t *testing.T) {
	assert.True(t, touches([]string{"posts"}, nil))
	assert.True(t, touches([]string{"likes", "comments"}, []string{"comments"}))
	assert.False(t, touches([]string{"orders"}, []string{"posts", "likes"}))
	assert.False(t, touches(nil, []string{"posts"}))
}
