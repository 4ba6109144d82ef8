package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/toolcrib/toolcrib-backend/pkg/logger"
)

// AsyncPublisher dispatches each event to the wrapped publisher in its
// own goroutine so callers never wait on the broker. Delivery failures
// are logged; Publish itself only reports a missing inner publisher.
type AsyncPublisher struct {
	inner Publisher
	logg  *logger.Logger
	wg    sync.WaitGroup
}

// NewAsyncPublisher wraps inner with goroutine dispatch.
func NewAsyncPublisher(inner Publisher, logg *logger.Logger) *AsyncPublisher {
	return &AsyncPublisher{inner: inner, logg: logg}
}

// Publish hands the event to the inner publisher on a detached context
// and returns immediately.
func (p *AsyncPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.inner == nil {
		return fmt.Errorf("async publisher not initialized")
	}
	// Detach from the request context: the HTTP response must not wait
	// for, or cancel, event delivery.
	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.inner.Publish(bg, event); err != nil && p.logg != nil {
			p.logg.Warn(bg, fmt.Sprintf("async publish of %q failed: %v", event.Name, err))
		}
	}()
	return nil
}

// Wait blocks until every dispatched event has been handed to the inner
// publisher. Call it before closing the inner publisher on shutdown.
func (p *AsyncPublisher) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}
