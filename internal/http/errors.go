// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fairyhunter13/order-management-api/internal/model"
	"github.com/fairyhunter13/order-management-api/internal/obs"
	"github.com/fairyhunter13/order-management-api/internal/order"
)

const internalErrorDetail = "An unexpected error occurred. Please try again later."

var statusByKind = map[model.ErrorKind]int{
	model.KindProductNotFound:   http.StatusNotFound,
	model.KindOrderNotFound:     http.StatusNotFound,
	model.KindInsufficientStock: http.StatusBadRequest,
}

// errorBody is the payload of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

// WriteJSONError writes {"detail": detail} with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates err into a response. Domain errors carry their
// own message; everything else is logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if de, ok := model.AsDomainError(err); ok {
		if status, ok := statusByKind[de.Kind]; ok {
			WriteJSONError(w, status, de.Error())
			return
		}
	}
	if errors.Is(err, order.ErrEmptyOrder) {
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	obs.Logger.Error("unhandled_error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Error(err),
	)
	WriteJSONError(w, http.StatusInternalServerError, internalErrorDetail)
}
