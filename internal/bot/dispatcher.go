package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/metrics"
)

// EventHandler processes a single event
type EventHandler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// Dispatcher runs events of one user strictly in arrival order while
// different users are served concurrently
type Dispatcher struct {
	ctx     context.Context
	handler EventHandler
	mu      sync.Mutex
	queues  map[string][]Event // pending events per user; a key exists while its worker runs
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. ctx bounds every event it handles.
func NewDispatcher(ctx context.Context, handler EventHandler) *Dispatcher {
	return &Dispatcher{
		ctx:     ctx,
		handler: handler,
		queues:  make(map[string][]Event),
	}
}

// Submit queues events and returns without waiting for them
func (d *Dispatcher) Submit(events ...Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ev := range events {
		userID := ev.User()
		pending, active := d.queues[userID]
		d.queues[userID] = append(pending, ev)
		if !active {
			d.wg.Add(1)
			go d.drain(userID)
		}
	}
}

// drain handles a user's queue until it is empty
func (d *Dispatcher) drain(userID string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		pending := d.queues[userID]
		if len(pending) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		ev := pending[0]
		d.queues[userID] = pending[1:]
		d.mu.Unlock()

		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordError("panic")
			log.Error().
				Err(fmt.Errorf("%v", r)).
				Str("userID", ev.User()).
				Msg("Recovered from panic while handling event")
		}
	}()
	d.handler.HandleEvent(d.ctx, ev)
}

// Wait blocks until every queued event was handled or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
