package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/order-management-api/internal/config"
	"github.com/fairyhunter13/order-management-api/internal/model"
)

func TestManagerScalerUpAndDown(t *testing.T) {
	cfg := config.Events{
		InitialWorkerCount:      1,
		WorkerMin:               1,
		WorkerMax:               3,
		ScaleInterval:           20 * time.Millisecond,
		ScaleUpBacklogPerWorker: 1,
		ScaleDownIdleTicks:      1,
	}
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(5 * time.Millisecond) }).
		Return(nil)

	mgr := NewManager(cfg, New(8), pub)
	mgr.Start(context.Background())
	defer mgr.Stop()

	for i := 0; i < 100; i++ {
		mgr.Enqueue(model.OrderEvent{OrderID: int64(i)})
	}

	require.Eventually(t, func() bool { return mgr.WorkerCount() > 1 },
		2*time.Second, 10*time.Millisecond, "expected scale up")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, mgr.DrainUntil(ctx), "drain timeout")

	require.Eventually(t, func() bool { return mgr.WorkerCount() == cfg.WorkerMin },
		2*time.Second, 10*time.Millisecond, "expected scale down")
}

func TestNewManagerClampsWorkerBounds(t *testing.T) {
	mgr := NewManager(config.Events{InitialWorkerCount: 10, WorkerMin: 0, WorkerMax: 2}, New(1), LogPublisher{})
	require.Equal(t, 1, mgr.cfg.WorkerMin)
	require.Equal(t, 2, mgr.cfg.InitialWorkerCount)
}
