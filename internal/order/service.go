package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fairyhunter13/order-management-api/internal/cache"
	"github.com/fairyhunter13/order-management-api/internal/model"
	"github.com/fairyhunter13/order-management-api/internal/obs"
	"github.com/fairyhunter13/order-management-api/internal/store"
)

const (
	listKey     = "orders_list"
	orderPrefix = "order"

	// loadTimeout bounds a cache fill. Fills are shared by all waiters on a
	// key and run detached from the caller that started them.
	loadTimeout = 10 * time.Second
)

// ErrEmptyOrder is returned when an order request names no products.
var ErrEmptyOrder = errors.New("Order must contain at least one product")

func orderKey(id int64) string { return "order_" + strconv.FormatInt(id, 10) }

// EventSink accepts order events after commit. It must not block.
type EventSink interface {
	Enqueue(ev model.OrderEvent) bool
}

// Options tunes a Service.
type Options struct {
	// InvalidateOnWrite drops cached order reads after every created
	// order. When false, reads may be stale for up to the cache TTL.
	InvalidateOnWrite bool
	Now               func() time.Time
}

// Stats are the service counters.
type Stats struct {
	Created        uint64 `json:"created"`
	Rejected       uint64 `json:"rejected"`
	EventsDropped  uint64 `json:"events_dropped"`
	InvalidateMode bool   `json:"invalidate_on_write"`
}

// Service creates orders and serves order reads through the cache.
type Service struct {
	store  *store.Store
	cache  *cache.Cache
	events EventSink
	opts   Options
	tracer trace.Tracer

	created       atomic.Uint64
	rejected      atomic.Uint64
	eventsDropped atomic.Uint64
}

// NewService wires a Service. events may be nil.
func NewService(st *store.Store, c *cache.Cache, events EventSink, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:  st,
		cache:  c,
		events: events,
		opts:   opts,
		tracer: otel.Tracer("github.com/fairyhunter13/order-management-api/internal/order"),
	}
}

// Create places an order. Products are resolved, stock is validated and
// deducted, line items and the total are written, all in one transaction.
// Nothing is persisted when any step fails.
func (s *Service) Create(ctx context.Context, in model.OrderInput) (model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.create",
		trace.WithAttributes(attribute.Int("order.items", len(in.Products))))
	defer span.End()

	o, err := s.create(ctx, in)
	if err != nil {
		s.rejected.Add(1)
		recordFailure(span, err)
		return model.Order{}, err
	}
	s.created.Add(1)
	span.SetAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.String("order.total", o.TotalPrice.String()),
		attribute.String("order.outcome", "created"),
	)

	if s.opts.InvalidateOnWrite {
		n := s.cache.Invalidate(orderPrefix)
		obs.Logger.Debug("order_cache_invalidated", zap.Int("entries", n))
	}
	if s.events != nil && !s.events.Enqueue(model.NewOrderCreated(o, s.opts.Now())) {
		s.eventsDropped.Add(1)
		obs.Logger.Warn("order_event_dropped", zap.Int64("order_id", o.ID))
	}
	obs.Logger.Info("order_created",
		zap.Int64("order_id", o.ID),
		zap.String("total_price", o.TotalPrice.String()),
		zap.Int("line_items", len(o.Items)),
	)
	return o, nil
}

func (s *Service) create(ctx context.Context, in model.OrderInput) (model.Order, error) {
	if len(in.Products) == 0 {
		return model.Order{}, ErrEmptyOrder
	}
	var orderID int64
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		products, err := ResolveProducts(ctx, tx, in.Products)
		if err != nil {
			return err
		}
		orderID, err = tx.InsertOrder(ctx, model.OrderStatusPending, decimal.Zero)
		if err != nil {
			return err
		}
		lines, total, err := assemble(orderID, in.Products, products)
		if err != nil {
			return err
		}
		for _, li := range lines {
			ok, err := tx.DeductStock(ctx, li.ProductID, li.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// stock moved since it was read
				available, err := tx.ProductStock(ctx, li.ProductID)
				if err != nil {
					return err
				}
				return model.InsufficientStock(li.ProductID, available, li.Quantity)
			}
		}
		if err := tx.InsertLineItems(ctx, lines); err != nil {
			return err
		}
		return tx.SetOrderTotal(ctx, orderID, total)
	})
	if err != nil {
		return model.Order{}, err
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("reload order %d: %w", orderID, err)
	}
	return o, nil
}

func recordFailure(span trace.Span, err error) {
	if de, ok := model.AsDomainError(err); ok {
		span.SetAttributes(attribute.String("order.outcome", string(de.Kind)))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// List returns all orders, served from the cache while fresh. The result
// is a copy and may be modified by the caller.
func (s *Service) List(ctx context.Context) ([]model.Order, error) {
	v, err := s.cache.GetOrLoad(listKey, func() (any, error) {
		lctx, cancel := loadContext(ctx)
		defer cancel()
		return s.store.ListOrders(lctx)
	})
	if err != nil {
		return nil, err
	}
	cached := v.([]model.Order)
	out := make([]model.Order, len(cached))
	for i, o := range cached {
		out[i] = cloneOrder(o)
	}
	return out, nil
}

// Get returns one order, served from the cache while fresh.
func (s *Service) Get(ctx context.Context, id int64) (model.Order, error) {
	v, err := s.cache.GetOrLoad(orderKey(id), func() (any, error) {
		lctx, cancel := loadContext(ctx)
		defer cancel()
		return s.store.GetOrder(lctx, id)
	})
	if err != nil {
		return model.Order{}, err
	}
	return cloneOrder(v.(model.Order)), nil
}

func loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
}

// cloneOrder copies the line items so cached orders are never shared.
func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		Created:        s.created.Load(),
		Rejected:       s.rejected.Load(),
		EventsDropped:  s.eventsDropped.Load(),
		InvalidateMode: s.opts.InvalidateOnWrite,
	}
}
