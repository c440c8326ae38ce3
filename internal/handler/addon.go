package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/auth"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/service"
)

// AddOnHandler serves the add-on purchase endpoints.
type AddOnHandler struct {
	addOns service.AddOnService
	logger *slog.Logger
}

// NewAddOnHandler creates a new AddOnHandler.
func NewAddOnHandler(addOns service.AddOnService, logger *slog.Logger) *AddOnHandler {
	return &AddOnHandler{addOns: addOns, logger: logger}
}

type purchaseAddOnRequest struct {
	Type     domain.AddOnType `json:"type"`
	Quantity int              `json:"quantity"`
}

type addOnResponse struct {
	ID          uuid.UUID  `json:"id"`
	ListingID   uuid.UUID  `json:"listing_id"`
	PaymentID   uuid.UUID  `json:"payment_id"`
	Type        string     `json:"type"`
	Price       int64      `json:"price"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	PurchasedAt time.Time  `json:"purchased_at"`
}

type purchaseResponse struct {
	Payment paymentResponse `json:"payment"`
	AddOns  []addOnResponse `json:"add_ons"`
}

func toAddOnResponse(a *domain.ListingAddOn) addOnResponse {
	return addOnResponse{
		ID:          a.ID,
		ListingID:   a.ListingID,
		PaymentID:   a.PaymentID,
		Type:        a.Type.String(),
		Price:       int64(a.Price),
		IsActive:    a.IsActive,
		ExpiresAt:   a.ExpiresAt,
		PurchasedAt: a.PurchasedAt,
	}
}

// Purchase handles POST /listings/{id}/add-ons.
func (h *AddOnHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	listingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid listing id"))
		return
	}

	var req purchaseAddOnRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.addOns.Purchase(r.Context(), user, service.PurchaseAddOnParams{
		ListingID: listingID,
		Type:      req.Type,
		Quantity:  req.Quantity,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := purchaseResponse{Payment: toPaymentResponse(result.Payment)}
	for _, a := range result.AddOns {
		resp.AddOns = append(resp.AddOns, toAddOnResponse(a))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /listings/{id}/add-ons.
func (h *AddOnHandler) List(w http.ResponseWriter, r *http.Request) {
	listingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid listing id"))
		return
	}

	addOns, err := h.addOns.ListForListing(r.Context(), listingID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	items := make([]addOnResponse, 0, len(addOns))
	for _, a := range addOns {
		items = append(items, toAddOnResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"add_ons": items})
}
