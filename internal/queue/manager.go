package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/order-management-api/internal/config"
	"github.com/fairyhunter13/order-management-api/internal/model"
	"github.com/fairyhunter13/order-management-api/internal/obs"
)

const publishTimeout = 5 * time.Second

// Manager runs the broker, the publishing workers and the scaler that
// grows or shrinks the pool with the backlog.
type Manager struct {
	cfg    config.Events
	q      *Queue
	pub    Publisher
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager returns a Manager that publishes events from q through pub.
func NewManager(cfg config.Events, q *Queue, pub Publisher) *Manager {
	if cfg.WorkerMin < 1 {
		cfg.WorkerMin = 1
	}
	if cfg.WorkerMax < cfg.WorkerMin {
		cfg.WorkerMax = cfg.WorkerMin
	}
	if cfg.InitialWorkerCount < cfg.WorkerMin {
		cfg.InitialWorkerCount = cfg.WorkerMin
	}
	if cfg.InitialWorkerCount > cfg.WorkerMax {
		cfg.InitialWorkerCount = cfg.WorkerMax
	}
	return &Manager{cfg: cfg, q: q, pub: pub}
}

// Start launches the background goroutines.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.q.run(m.ctx, m.cfg.QueueHighWatermark)
	}()
	m.addWorkers(m.cfg.InitialWorkerCount)
	if m.cfg.ScaleInterval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.scaler()
		}()
	}
}

// Stop cancels every goroutine and waits for them to exit. Events still
// queued are not published; call DrainUntil first to flush them.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.Depth()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog > 0 {
				idleTicks = 0
				continue
			}
			idleTicks++
			if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
				m.removeWorkers(1)
				idleTicks = 0
			}
		}
	}
}

func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return
	}
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.worker(wctx)
		}()
	}
	obs.Logger.Info("event_workers_scaled", zap.Int("worker_count", len(m.workerCancels)))
}

func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n = min(n, len(m.workerCancels))
	for i := 0; i < n; i++ {
		last := len(m.workerCancels) - 1
		m.workerCancels[last]()
		m.workerCancels = m.workerCancels[:last]
	}
	obs.Logger.Info("event_workers_scaled", zap.Int("worker_count", len(m.workerCancels)))
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.q.Out():
			m.publish(ev)
		}
	}
}

// publish is detached from the worker context so a scale-down does not
// abort an in-flight write.
func (m *Manager) publish(ev model.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err := m.pub.Publish(ctx, ev)
	m.q.markProcessed(err == nil)
	if err != nil {
		obs.Logger.Error("order_event_publish_failed",
			zap.Int64("order_id", ev.OrderID),
			zap.Uint64("sequence", ev.Sequence),
			zap.Error(err))
	}
}

// Enqueue adds an event to the backlog. It never blocks.
func (m *Manager) Enqueue(ev model.OrderEvent) bool { return m.q.Enqueue(ev) }

// WorkerCount returns the current pool size.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

func (m *Manager) CloseIntake() { m.q.CloseIntake() }

func (m *Manager) Metrics() Metrics { return m.q.Metrics() }

// DrainUntil blocks until every enqueued event has been handled or ctx is
// done. It reports whether the queue drained.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		mt := m.q.Metrics()
		if mt.Depth == 0 && mt.Enqueued == mt.Processed {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
