package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/order-management-api/internal/cache"
	"github.com/fairyhunter13/order-management-api/internal/config"
	httpopenapi "github.com/fairyhunter13/order-management-api/internal/http/openapi"
	"github.com/fairyhunter13/order-management-api/internal/model"
	"github.com/fairyhunter13/order-management-api/internal/order"
	"github.com/fairyhunter13/order-management-api/internal/queue"
	"github.com/fairyhunter13/order-management-api/internal/store"
)

const maxBodyBytes = 1 << 20

type App struct {
	Cfg     config.Config
	Store   *store.Store
	Orders  *order.Service
	Cache   *cache.Cache
	Events  *queue.Manager
	closing atomic.Bool
	started time.Time
}

func NewApp(cfg config.Config, st *store.Store, orders *order.Service, c *cache.Cache, events *queue.Manager) *App {
	return &App{Cfg: cfg, Store: st, Orders: orders, Cache: c, Events: events, started: time.Now()}
}

// StartShutdown makes order creation answer 503. Event intake stays open
// so orders already in flight still publish their events.
func (a *App) StartShutdown() { a.closing.Store(true) }

// productRequest mirrors model.ProductInput with every field optional so
// missing fields can be reported.
type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (p productRequest) validate() (model.ProductInput, error) {
	switch {
	case p.Name == nil || strings.TrimSpace(*p.Name) == "":
		return model.ProductInput{}, errors.New("name: field required")
	case p.Description == nil:
		return model.ProductInput{}, errors.New("description: field required")
	case p.Price == nil:
		return model.ProductInput{}, errors.New("price: field required")
	case !p.Price.IsPositive():
		return model.ProductInput{}, errors.New("price: must be greater than 0")
	case p.Stock == nil:
		return model.ProductInput{}, errors.New("stock: field required")
	case *p.Stock < 0:
		return model.ProductInput{}, errors.New("stock: must be greater than or equal to 0")
	}
	return model.ProductInput{Name: *p.Name, Description: *p.Description, Price: *p.Price, Stock: p.Stock}, nil
}

type orderRequest struct {
	Products []struct {
		ProductID *int64 `json:"product_id"`
		Quantity  *int   `json:"quantity"`
	} `json:"products"`
}

func (o orderRequest) validate() (model.OrderInput, error) {
	if len(o.Products) == 0 {
		return model.OrderInput{}, order.ErrEmptyOrder
	}
	in := model.OrderInput{Products: make([]model.OrderItemInput, 0, len(o.Products))}
	for i, it := range o.Products {
		switch {
		case it.ProductID == nil:
			return model.OrderInput{}, fmt.Errorf("products[%d].product_id: field required", i)
		case *it.ProductID <= 0:
			return model.OrderInput{}, fmt.Errorf("products[%d].product_id: must be greater than 0", i)
		case it.Quantity == nil:
			return model.OrderInput{}, fmt.Errorf("products[%d].quantity: field required", i)
		case *it.Quantity <= 0:
			return model.OrderInput{}, fmt.Errorf("products[%d].quantity: must be greater than 0", i)
		}
		in.Products = append(in.Products, model.OrderItemInput{ProductID: *it.ProductID, Quantity: *it.Quantity})
	}
	return in, nil
}

// decodeJSON reads a single JSON object from the body into v. It writes
// the error response itself and reports false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "expected application/json")
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusUnprocessableEntity, "invalid JSON body: "+err.Error())
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusUnprocessableEntity, "invalid JSON body: unexpected trailing data")
		return false
	}
	return true
}

// pathID parses the {id} URL parameter. Non-integer ids are a validation
// error.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteJSONError(w, http.StatusUnprocessableEntity, "id: must be an integer")
		return 0, false
	}
	return id, true
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := a.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.validate()
	if err != nil {
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	p, err := a.Store.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.Orders.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (a *App) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := a.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *App) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "service is shutting down")
		return
	}
	var req orderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.validate()
	if err != nil {
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	o, err := a.Orders.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": a.Store.Dialect()})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	m := map[string]any{
		"orders":     a.Orders.Stats(),
		"cache":      a.Cache.Stats(),
		"uptime_sec": time.Since(a.started).Seconds(),
	}
	if a.Events != nil {
		m["events"] = a.Events.Metrics()
		m["event_workers"] = a.Events.WorkerCount()
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Order Management API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({ url: '/openapi.yaml', dom_id: '#swagger-ui' });
    </script>
  </body>
</html>`

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, docsPage)
}
