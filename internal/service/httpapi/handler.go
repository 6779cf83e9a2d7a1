// Package httpapi публикует REST API заказов поверх chi.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
)

const maxRequestBodyBytes = 1 << 20

const (
	msgOrderNotFound   = "Order not found"
	msgInvalidBody     = "invalid request body"
	msgRequestCanceled = "request canceled"
	msgInternal        = "internal error"
)

// OrderService описывает операции над заказами, нужные HTTP-слою.
type OrderService interface {
	CreateOrder(ctx context.Context, userID string, items []domain.OrderItem) (domain.Order, error)
	GetOrder(id string) (domain.Order, error)
	ListOrders() ([]domain.Order, error)
}

type createOrderRequest struct {
	UserID string             `json:"userId"`
	Items  []domain.OrderItem `json:"items"`
}

type listOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler обслуживает /api/v1/orders.
type Handler struct {
	orders OrderService
	logger *log.Entry
}

// NewHandler создаёт обработчик заказов.
func NewHandler(orders OrderService, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{orders: orders, logger: logger}
}

// Routes монтирует маршруты заказов.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ListOrders)
	r.Post("/", h.CreateOrder)
	r.Get("/{id}", h.GetOrder)
}

// CreateOrder обслуживает POST /api/v1/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		h.logger.WithError(err).Debug("failed to decode create order request")
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req.UserID, req.Items)
	if err != nil {
		h.writeCreateError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	if vErr, ok := domain.AsValidationError(err); ok {
		writeError(w, http.StatusBadRequest, vErr.Message)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithError(err).WithField("path", r.URL.Path).Info("create order aborted")
		writeError(w, http.StatusServiceUnavailable, msgRequestCanceled)
		return
	}
	h.logger.WithError(err).Error("create order failed")
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// GetOrder обслуживает GET /api/v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.orders.GetOrder(id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, msgOrderNotFound)
			return
		}
		h.logger.WithError(err).WithField("order_id", id).Error("get order failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListOrders обслуживает GET /api/v1/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, _ *http.Request) {
	orders, err := h.orders.ListOrders()
	if err != nil {
		h.logger.WithError(err).Error("list orders failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
