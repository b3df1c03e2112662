package handler

import (
	"log/slog"
	"net/http"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/service"
)

// PaymentHandler serves the rent ledger.
type PaymentHandler struct {
	payments *service.PaymentService
	responder
}

func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger, debug bool) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{payments: payments, responder: responder{logger: logger, debug: debug}}
}

type PaymentsResponse struct {
	Payments []*domain.PaymentDetail `json:"payments"`
}

type PaymentResponse struct {
	Message string          `json:"message,omitempty"`
	Payment *domain.Payment `json:"payment"`
}

// List handles GET /api/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.payments.ListForPrincipal(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PaymentsResponse{Payments: list})
}

// ListForContract handles GET /api/payments/contract/{id}
func (h *PaymentHandler) ListForContract(w http.ResponseWriter, r *http.Request) {
	list, err := h.payments.ListForContract(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PaymentsResponse{Payments: list})
}

// Get handles GET /api/payments/{id}
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.payments.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PaymentResponse{Payment: p})
}

// Create handles POST /api/payments
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePaymentInput
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.payments.Create(r.Context(), principal(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, PaymentResponse{Message: "payment recorded", Payment: p})
}

// Update handles PUT /api/payments/{id}
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdatePaymentInput
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.payments.Update(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, PaymentResponse{Message: "payment updated", Payment: p})
}

// Delete handles DELETE /api/payments/{id}
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.payments.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, MessageResponse{Message: "payment deleted"})
}
