package messaging

import (
	"context"
	"log"
	"sync"
)

// runner lets tests drive the host without a broker.
type runner interface {
	Run(ctx context.Context, queue string, handler HandlerFunc) error
}

// Host supervises one consumer bound to a single (queue, handler) pair for
// the process lifetime. It does not retry failed messages itself; redelivery
// is entirely the consumer's job.
type Host struct {
	queue    string
	consumer runner
	handler  HandlerFunc
	logger   *log.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	runErr error
}

func NewHost(consumer *Consumer, queue string, handler HandlerFunc, logger *log.Logger) *Host {
	return newHost(consumer, queue, handler, logger)
}

func newHost(consumer runner, queue string, handler HandlerFunc, logger *log.Logger) *Host {
	return &Host{
		queue:    queue,
		consumer: consumer,
		handler:  handler,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the consumer in a background goroutine. A fatal consumer
// error (e.g. exhausted startup retries) closes Done; callers should treat
// that as the process being unhealthy.
func (h *Host) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	go func() {
		defer close(h.done)

		h.logger.Printf("consumer host starting for %s", h.queue)
		if err := h.consumer.Run(runCtx, h.queue, h.handler); err != nil {
			h.mu.Lock()
			h.runErr = err
			h.mu.Unlock()
			h.logger.Printf("consumer host for %s stopped: %v", h.queue, err)
			return
		}
		h.logger.Printf("consumer host for %s stopped", h.queue)
	}()
}

// Done is closed when the consumer has fully stopped, cleanly or fatally.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Err reports the consumer's fatal error, if any, once it has stopped.
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runErr
}

// Stop cancels the consumer and waits for it to finish, bounded by ctx.
// Call before releasing resources the handler depends on.
func (h *Host) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}

	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
