package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/settlement"
)

type chargeRequest struct {
	Method string `json:"method"`
}

type refundRequest struct {
	AmountMinor int64 `json:"amount_minor"`
}

type paymentResponse struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	AmountMinor   int64     `json:"amount_minor"`
	RefundedMinor int64     `json:"refunded_minor,omitempty"`
	RetryCount    int       `json:"retry_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        string(p.Method),
		Status:        string(p.Status),
		AmountMinor:   p.AmountMinor,
		RefundedMinor: p.RefundedMinor,
		RetryCount:    p.RetryCount,
		CreatedAt:     p.CreatedAt,
	}
}

// PaymentHandlers обслуживает списание, повтор, возврат и счёт заказа.
type PaymentHandlers struct {
	engine *settlement.Engine
	logger *log.Entry
}

func NewPaymentHandlers(engine *settlement.Engine, logger *log.Entry) *PaymentHandlers {
	return &PaymentHandlers{engine: engine, logger: logger}
}

// Routes регистрирует эндпоинты под /payments.
func (h *PaymentHandlers) Routes(r chi.Router) {
	r.Post("/{orderID}", h.charge)
	r.Post("/{orderID}/retry", h.retry)
	r.Post("/{orderID}/refund", h.refund)
	r.Get("/{orderID}", h.listPayments)
	r.Get("/{orderID}/bill", h.getBill)
}

func (h *PaymentHandlers) charge(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.engine.Charge)
}

func (h *PaymentHandlers) retry(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.engine.Retry)
}

// settle разбирает способ оплаты и выполняет списание; при отказе шлюза
// вместе со статусом 402 возвращается запись о неудачной попытке.
func (h *PaymentHandlers) settle(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, orderID string, method domain.PaymentMethod) (domain.Payment, error),
) {
	var req chargeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		writeError(w, err)
		return
	}

	payment, err := op(r.Context(), chi.URLParam(r, "orderID"), method)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentFailed) {
			writeJSON(w, http.StatusPaymentRequired, toPaymentResponse(payment))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandlers) refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	payment, err := h.engine.Refund(r.Context(), chi.URLParam(r, "orderID"), req.AmountMinor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandlers) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.engine.ListPayments(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	result := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandlers) getBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.engine.GetBill(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}
