package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/auth"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/service"
)

// PaymentHandler serves the payment workflow endpoints.
type PaymentHandler struct {
	payments service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type transitionPaymentRequest struct {
	Status domain.PaymentStatus `json:"status"`
	Notes  string               `json:"notes,omitempty"`
}

type paymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        int64           `json:"amount"`
	AmountDisplay string          `json:"amount_display"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	AdminNotes    string          `json:"admin_notes,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		Amount:        int64(p.Amount),
		AmountDisplay: p.Amount.String(),
		Currency:      p.Currency,
		Status:        p.Status.String(),
		PaymentMethod: p.PaymentMethod,
		Description:   p.Description,
		Metadata:      p.Metadata,
		AdminNotes:    p.AdminNotes,
		ApprovedAt:    p.ApprovedAt,
		PaidAt:        p.PaidAt,
		CompletedAt:   p.CompletedAt,
		CreatedAt:     p.CreatedAt,
	}
}

// Get handles GET /payments/{id}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid payment id"))
		return
	}

	payment, err := h.payments.GetByID(r.Context(), id, user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

// Transition handles PATCH /admin/payments/{id}/status.
func (h *PaymentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid payment id"))
		return
	}

	var req transitionPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	payment, err := h.payments.Transition(r.Context(), id, req.Status, user, req.Notes)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}
