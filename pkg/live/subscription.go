package live

import (
	"context"
	"errors"
	"sync"

	"anoa.com/fandomspace/pkg/logger"
	"anoa.com/fandomspace/pkg/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Subscription delivers the current value of a query and every later value.
// Values are coalesced: a slow reader sees the latest snapshot, never an
// older one after a newer one.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}

	mu    sync.RWMutex
	value T
}

// Observe subscribes to commits touching deps and runs fetch once up front.
// fetch computes the snapshot from committed state.
// An empty deps list refreshes on every commit. An error from the initial
// fetch is returned and nothing stays subscribed; later fetch errors are
// logged and the last good value is kept.
func Observe[T any](ctx context.Context, hub *Hub, deps []string, fetch func(ctx context.Context) (T, error)) (*Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)

	// Subscribe before the first read so no commit falls between the two.
	messages, err := hub.subscribe(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := fetch(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Subscription[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		value:   initial,
	}
	s.push(initial)

	metrics.LiveSubscriptionOpened()
	go s.run(ctx, messages, deps, fetch)

	return s, nil
}

// Updates yields the initial snapshot immediately, then one value per
// relevant commit. The channel is closed when the subscription ends.
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Value returns the most recent snapshot.
func (s *Subscription[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Close ends the subscription and waits for its goroutine to exit.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) run(ctx context.Context, messages <-chan *message.Message, deps []string, fetch func(ctx context.Context) (T, error)) {
	defer func() {
		metrics.LiveSubscriptionClosed()
		close(s.updates)
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			changed := decodeTables(msg.Payload)
			msg.Ack()

			if !touches(changed, deps) {
				continue
			}

			v, err := fetch(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return
				}
				metrics.RecordLiveRefresh(false)
				logger.Log.WithError(err).WithField("tables", changed).Warn("live: refresh failed, keeping last value")
				continue
			}
			metrics.RecordLiveRefresh(true)
			s.push(v)
		}
	}
}

// push replaces any undelivered value. Only run and Observe call it, and
// never concurrently, so the send below cannot block.
func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()

	select {
	case <-s.updates:
	default:
	}
	s.updates <- v
}
