// Package notify implements a background multi-channel notification
// sink. A single consumer goroutine drains an unbounded FIFO so that
// notification emission never blocks the trading loop.
package notify

import (
	"fmt"
	"sync"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/types"
)

// Sender is the minimal surface the rest of the application needs;
// satisfied by *Worker and by test doubles.
type Sender interface {
	Send(message string)
}

// Worker owns the notification queue (producer/consumer, unbounded
// FIFO) and a shoutrrr router fanning out to every configured channel
// URL.
type Worker struct {
	router *shoutrrr.Sender
	title  string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []string
	closed bool
}

// NewWorker builds a notification worker for the given channel URLs
// (shoutrrr service URLs, e.g. "slack://...", "discord://...",
// "telegram://..."). An empty URL list yields a no-op worker.
func NewWorker(title string, urls []string) (*Worker, error) {
	var router *shoutrrr.Sender
	if len(urls) > 0 {
		r, err := shoutrrr.CreateSender(urls...)
		if err != nil {
			return nil, fmt.Errorf("could not build notification router: %w", err)
		}
		router = r
	}

	w := &Worker{router: router, title: title}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w, nil
}

// Send enqueues a message for delivery. Never blocks the caller beyond
// acquiring the queue's mutex.
func (w *Worker) Send(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.queue = append(w.queue, message)
	w.cond.Signal()
}

// Close stops accepting new messages. Already-queued messages are
// still drained.
func (w *Worker) Close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Signal()
	w.mu.Unlock()
}

func (w *Worker) loop() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 && w.closed {
			w.mu.Unlock()
			return
		}
		message := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.deliver(message)
	}
}

func (w *Worker) deliver(message string) {
	if w.router == nil {
		return
	}
	body := fmt.Sprintf("<%s>: %s", w.title, message)
	errs := w.router.Send(body, &types.Params{})
	for _, err := range errs {
		if err != nil {
			// Nothing to fall back to: the notification channel itself
			// failed. Swallow rather than recurse into the logger.
			_ = err
		}
	}
}
