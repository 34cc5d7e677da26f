package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/restocklabs/restock-dispatch/internal/core/service"
	"github.com/restocklabs/restock-dispatch/internal/port"
)

// HTTPHandler exposes the dispatch triggers and the replenishment endpoint.
type HTTPHandler struct {
	engine *service.Engine
	stock  port.StockStore
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type replenishRequest struct {
	Quantity int `json:"quantity"`
}

func NewHTTPHandler(engine *service.Engine, stock port.StockStore) *HTTPHandler {
	return &HTTPHandler{engine: engine, stock: stock}
}

// Register attaches all routes to the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /products/{productID}/notifications/re-stock", h.TriggerAutomatic)
	mux.HandleFunc("POST /products/admin/{productID}/notifications/re-stock", h.TriggerManual)
	mux.HandleFunc("POST /products/{productID}/stock", h.Replenish)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

func (h *HTTPHandler) TriggerAutomatic(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}

	summary, err := h.engine.RunAutomatic(r.Context(), productID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *HTTPHandler) TriggerManual(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}

	if err := h.engine.RunManual(r.Context(), productID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "manual dispatch completed"})
}

func (h *HTTPHandler) Replenish(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathProductID(w, r)
	if !ok {
		return
	}

	var req replenishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "quantity must be a positive integer"})
		return
	}

	rec, err := h.stock.GetStock(r.Context(), productID, false)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, statusResponse{Message: "stock record not found"})
		return
	}

	if err := h.stock.IncreaseStock(r.Context(), productID, req.Quantity); err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "stock increased"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid product id"})
		return 0, false
	}
	return id, true
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrStockNotFound),
		errors.Is(err, service.ErrRunNotFound):
		writeJSON(w, http.StatusNotFound, statusResponse{Message: err.Error()})
	case errors.Is(err, service.ErrNoActiveSubscribers):
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
