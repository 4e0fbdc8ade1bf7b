package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/order"
)

type createOrderItemRequest struct {
	MenuItemID   string `json:"menu_item_id"`
	Qty          int32  `json:"qty"`
	Instructions string `json:"instructions,omitempty"`
}

type createOrderRequest struct {
	CustomerName  string                   `json:"customer_name"`
	BranchID      string                   `json:"branch_id"`
	DeliveryMinor int64                    `json:"delivery_minor"`
	Items         []createOrderItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID           string `json:"id"`
	MenuItemID   string `json:"menu_item_id"`
	Name         string `json:"name"`
	PriceMinor   int64  `json:"price_minor"`
	Qty          int32  `json:"qty"`
	Cancelled    bool   `json:"cancelled"`
	Instructions string `json:"instructions,omitempty"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	CustomerName string              `json:"customer_name"`
	BranchID     string              `json:"branch_id"`
	Status       string              `json:"status"`
	TotalMinor   int64               `json:"total_minor"`
	PaidMinor    int64               `json:"paid_minor"`
	Items        []orderItemResponse `json:"items"`
	Version      int64               `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:           item.ID,
			MenuItemID:   item.MenuItemID,
			Name:         item.Name,
			PriceMinor:   item.PriceMinor,
			Qty:          item.Qty,
			Cancelled:    item.Cancelled,
			Instructions: item.Instructions,
		})
	}
	return orderResponse{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		BranchID:     o.BranchID,
		Status:       string(o.Status),
		TotalMinor:   o.TotalMinor,
		PaidMinor:    o.PaidMinor,
		Items:        items,
		Version:      o.Version,
		CreatedAt:    o.CreatedAt,
	}
}

// OrderHandlers обслуживает REST-эндпоинты заказов.
type OrderHandlers struct {
	orders *order.Service
	logger *log.Entry
}

func NewOrderHandlers(orders *order.Service, logger *log.Entry) *OrderHandlers {
	return &OrderHandlers{orders: orders, logger: logger}
}

// Routes регистрирует эндпоинты под /orders.
func (h *OrderHandlers) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.listByBranch)
	r.Get("/{orderID}", h.get)
	r.Patch("/{orderID}/status", h.updateStatus)
	r.Post("/{orderID}/items/{itemID}/cancel", h.cancelItem)
}

func (h *OrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := order.CreateOrderInput{
		CustomerName:  req.CustomerName,
		BranchID:      req.BranchID,
		DeliveryMinor: req.DeliveryMinor,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, order.CreateItemInput{
			MenuItemID:   item.MenuItemID,
			Qty:          item.Qty,
			Instructions: item.Instructions,
		})
	}

	created, err := h.orders.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

func (h *OrderHandlers) listByBranch(w http.ResponseWriter, r *http.Request) {
	branchID := r.URL.Query().Get("branch_id")
	if branchID == "" {
		writeError(w, domain.ErrBranchRequired)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, fmt.Errorf("limit %q: %w", raw, domain.ErrInvalidAmount))
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListByBranch(r.Context(), branchID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	result := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	got, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(got))
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

func (h *OrderHandlers) cancelItem(w http.ResponseWriter, r *http.Request) {
	updated, err := h.orders.CancelItem(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}
