// Package queue dispatches committed order events to a publisher through
// an in-memory backlog and an autoscaling pool of workers.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/order-management-api/internal/model"
	"github.com/fairyhunter13/order-management-api/internal/obs"
)

// Queue is an unbounded backlog of order events feeding a buffered
// channel. Enqueue never blocks.
type Queue struct {
	mu      sync.Mutex
	backlog []model.OrderEvent
	notify  chan struct{}
	out     chan model.OrderEvent
	closed  atomic.Bool
	seq     Sequencer

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

// New creates a Queue whose output channel holds outBuffer events.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan model.OrderEvent, outBuffer),
	}
}

// run moves backlog items to the output channel until ctx ends.
func (q *Queue) run(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	warned := false
	for {
		q.flush()
		if highWatermark > 0 {
			sz := q.BacklogSize()
			if sz > highWatermark && !warned {
				obs.Logger.Warn("event_backlog_high",
					zap.Int("backlog_size", sz),
					zap.Int("high_watermark", highWatermark))
			}
			warned = sz > highWatermark
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

func (q *Queue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.backlog) && len(q.out) < cap(q.out) {
		q.out <- q.backlog[n]
		n++
	}
	if n > 0 {
		clear(q.backlog[:n])
		q.backlog = q.backlog[n:]
	}
}

// Enqueue stamps ev with the next sequence number and appends it to the
// backlog. It reports false once intake is closed.
func (q *Queue) Enqueue(ev model.OrderEvent) bool {
	if q.closed.Load() {
		return false
	}
	ev.Sequence = q.seq.Next()
	q.enqueued.Add(1)
	q.mu.Lock()
	q.backlog = append(q.backlog, ev)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Out exposes the output channel.
func (q *Queue) Out() <-chan model.OrderEvent { return q.out }

// BacklogSize returns events not yet moved to the output channel.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// Depth returns backlog plus buffered output events.
func (q *Queue) Depth() int {
	q.mu.Lock()
	bl := len(q.backlog)
	q.mu.Unlock()
	return bl + len(q.out)
}

func (q *Queue) markProcessed(ok bool) {
	q.processed.Add(1)
	if !ok {
		q.failed.Add(1)
	}
}

// Metrics is a snapshot of queue counters.
type Metrics struct {
	Enqueued  uint64 `json:"enqueued"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Backlog   int    `json:"backlog"`
	Depth     int    `json:"depth"`

	// LastSequence is the sequence number of the most recent event.
	LastSequence uint64 `json:"last_sequence"`
}

// Metrics returns the current counters.
func (q *Queue) Metrics() Metrics {
	return Metrics{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Backlog:   q.BacklogSize(),
		Depth:     q.Depth(),

		LastSequence: q.seq.Last(),
	}
}

// CloseIntake rejects all future enqueues.
func (q *Queue) CloseIntake() { q.closed.Store(true) }

// IsShuttingDown reports whether intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.closed.Load() }
