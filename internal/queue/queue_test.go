package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fairyhunter13/order-management-api/internal/config"
	"github.com/fairyhunter13/order-management-api/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockPublisher struct{ mock.Mock }

func (p *mockPublisher) Publish(ctx context.Context, ev model.OrderEvent) error {
	return p.Called(ctx, ev).Error(0)
}

func (p *mockPublisher) Close() error { return p.Called().Error(0) }

func event(id int64) model.OrderEvent {
	return model.NewOrderCreated(model.Order{ID: id, TotalPrice: decimal.NewFromInt(id)}, time.Now())
}

func eventsConfig() config.Events {
	return config.Events{
		InitialWorkerCount:      1,
		WorkerMin:               1,
		WorkerMax:               2,
		ScaleInterval:           20 * time.Millisecond,
		ScaleUpBacklogPerWorker: 100,
		ScaleDownIdleTicks:      5,
	}
}

func TestQueueNonBlockingEnqueue(t *testing.T) {
	q := New(1)
	for i := 0; i < 1000; i++ {
		require.True(t, q.Enqueue(event(int64(i))), "enqueue %d", i)
	}
	assert.Equal(t, 1000, q.BacklogSize())
	q.flush()
	assert.Equal(t, 999, q.BacklogSize())
	assert.Equal(t, 1000, q.Depth())
}

func TestQueueStampsSequence(t *testing.T) {
	q := New(4)
	q.Enqueue(event(1))
	q.Enqueue(event(2))
	q.flush()
	first := <-q.Out()
	second := <-q.Out()
	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	assert.Equal(t, uint64(2), q.Metrics().LastSequence)
}

func TestQueueShutdownIntake(t *testing.T) {
	q := New(1)
	q.CloseIntake()
	assert.True(t, q.IsShuttingDown())
	assert.False(t, q.Enqueue(event(1)))
	assert.Zero(t, q.Metrics().Enqueued)
}

func TestManagerDrainPublishesEverything(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	mgr := NewManager(eventsConfig(), New(16), pub)
	mgr.Start(context.Background())
	defer mgr.Stop()

	for i := 1; i <= 100; i++ {
		require.True(t, mgr.Enqueue(event(int64(i))))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.True(t, mgr.DrainUntil(ctx))

	m := mgr.Metrics()
	assert.Equal(t, uint64(100), m.Enqueued)
	assert.Equal(t, uint64(100), m.Processed)
	assert.Zero(t, m.Failed)
	pub.AssertNumberOfCalls(t, "Publish", 100)
}

func TestManagerCountsPublishFailures(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.OrderEvent) bool { return ev.OrderID == 2 })).
		Return(errors.New("broker unavailable"))
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	mgr := NewManager(eventsConfig(), New(4), pub)
	mgr.Start(context.Background())
	defer mgr.Stop()

	for i := 1; i <= 3; i++ {
		mgr.Enqueue(event(int64(i)))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.True(t, mgr.DrainUntil(ctx))
	assert.Equal(t, uint64(1), mgr.Metrics().Failed)
}

func TestDrainUntilRespectsContext(t *testing.T) {
	mgr := NewManager(eventsConfig(), New(1), &mockPublisher{})
	mgr.Enqueue(event(1))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	assert.False(t, mgr.DrainUntil(ctx))
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByOrderID(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, topic: "OrderCreated"}

	require.NoError(t, p.Publish(context.Background(), event(42)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "42", string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"order_id":42`)
	assert.Contains(t, string(w.msgs[0].Value), `"type":"order_created"`)

	w.err = errors.New("leader not available")
	err := p.Publish(context.Background(), event(43))
	assert.ErrorContains(t, err, "OrderCreated")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestLogPublisher(t *testing.T) {
	var p Publisher = LogPublisher{}
	assert.NoError(t, p.Publish(context.Background(), event(1)))
	assert.NoError(t, p.Close())
}
