package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/auth"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/money"
	"github.com/mtaani/soko/internal/service"
)

// ListingHandler serves the listing lifecycle endpoints and the public feed.
type ListingHandler struct {
	listings service.ListingService
	gate     service.GateService
	logger   *slog.Logger
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listings service.ListingService, gate service.GateService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		gate:     gate,
		logger:   logger,
	}
}

// =============================================================================
// Request / Response Types
// =============================================================================

type createListingRequest struct {
	CategoryID    uuid.UUID  `json:"category_id"`
	PricingPlanID *uuid.UUID `json:"pricing_plan_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         *int64     `json:"price,omitempty"` // Minor units
	HidePrice     bool       `json:"hide_price"`
	PhotoURLs     []string   `json:"photo_urls,omitempty"`
}

type transitionListingRequest struct {
	Status domain.ListingStatus `json:"status"`
	Reason string               `json:"reason,omitempty"`
}

type evaluateListingRequest struct {
	CategoryID    uuid.UUID  `json:"category_id"`
	PricingPlanID *uuid.UUID `json:"pricing_plan_id,omitempty"`
}

type listingResponse struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	CategoryID    uuid.UUID  `json:"category_id"`
	PricingPlanID *uuid.UUID `json:"pricing_plan_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Price         *int64     `json:"price,omitempty"`
	PriceDisplay  string     `json:"price_display,omitempty"`
	HidePrice     bool       `json:"hide_price"`
	PhotoURLs     []string   `json:"photo_urls,omitempty"`
	Status        string     `json:"status"`
	FlagReason    string     `json:"flag_reason,omitempty"`

	IsFeatured     bool       `json:"is_featured"`
	FeaturedUntil  *time.Time `json:"featured_until,omitempty"`
	BumpedAt       *time.Time `json:"bumped_at,omitempty"`
	HasVideo       bool       `json:"has_video"`
	IsUrgent       bool       `json:"is_urgent"`
	HasMapLocation bool       `json:"has_map_location"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type gateDecisionResponse struct {
	Allowed         bool   `json:"allowed"`
	Reason          string `json:"reason,omitempty"`
	Detail          string `json:"detail,omitempty"`
	RequiresPayment bool   `json:"requires_payment"`
	SuggestedPlan   string `json:"suggested_plan,omitempty"`
	InitialStatus   string `json:"initial_status,omitempty"`
	Quota           struct {
		Used      int       `json:"used"`
		Limit     int       `json:"limit"`
		Remaining int       `json:"remaining"`
		ResetsAt  time.Time `json:"resets_at"`
	} `json:"quota"`
}

func toListingResponse(l *domain.Listing) listingResponse {
	resp := listingResponse{
		ID:             l.ID,
		UserID:         l.UserID,
		CategoryID:     l.CategoryID,
		PricingPlanID:  l.PricingPlanID,
		Title:          l.Title,
		Description:    l.Description,
		HidePrice:      l.HidePrice,
		PhotoURLs:      l.PhotoURLs,
		Status:         l.Status.String(),
		FlagReason:     l.FlagReason,
		IsFeatured:     l.IsFeatured,
		FeaturedUntil:  l.FeaturedUntil,
		BumpedAt:       l.BumpedAt,
		HasVideo:       l.HasVideo,
		IsUrgent:       l.IsUrgent,
		HasMapLocation: l.HasMapLocation,
		ExpiresAt:      l.ExpiresAt,
		CreatedAt:      l.CreatedAt,
	}
	if l.Price != nil && !l.HidePrice {
		v := int64(*l.Price)
		resp.Price = &v
		resp.PriceDisplay = l.Price.String()
	}
	return resp
}

func toGateDecisionResponse(d *domain.GateDecision) gateDecisionResponse {
	resp := gateDecisionResponse{
		Allowed:         d.Allowed,
		Reason:          string(d.Reason),
		Detail:          d.Detail,
		RequiresPayment: d.RequiresPayment,
		SuggestedPlan:   d.SuggestedPlan,
		InitialStatus:   d.InitialStatus.String(),
	}
	resp.Quota.Used = d.Quota.Used
	resp.Quota.Limit = d.Quota.Limit
	resp.Quota.Remaining = d.Quota.Remaining()
	resp.Quota.ResetsAt = d.Quota.ResetsAt
	return resp
}

// =============================================================================
// Handlers
// =============================================================================

// Evaluate handles POST /listings/evaluate. It previews the gate decision
// without creating anything or touching the quota ledger.
func (h *ListingHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req evaluateListingRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	decision, err := h.gate.Evaluate(r.Context(), user.ID, req.CategoryID, req.PricingPlanID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toGateDecisionResponse(decision))
}

// Create handles POST /listings.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req createListingRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.CreateListingParams{
		UserID:        user.ID,
		CategoryID:    req.CategoryID,
		PricingPlanID: req.PricingPlanID,
		Title:         req.Title,
		Description:   req.Description,
		HidePrice:     req.HidePrice,
		PhotoURLs:     req.PhotoURLs,
	}
	if req.Price != nil {
		p := money.Amount(*req.Price)
		params.Price = &p
	}

	listing, err := h.listings.Create(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toListingResponse(listing))
}

// Get handles GET /listings/{id}.
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid listing id"))
		return
	}

	listing, err := h.listings.GetByID(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

// Transition handles PATCH /listings/{id}/status.
func (h *ListingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid listing id"))
		return
	}

	var req transitionListingRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	listing, err := h.listings.Transition(r.Context(), id, req.Status, user, req.Reason)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

// Delete handles DELETE /listings/{id}. An owner delete of an active
// listing archives it; the response distinguishes the two outcomes.
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "invalid listing id"))
		return
	}

	archived, err := h.listings.Delete(r.Context(), id, user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if archived {
		writeJSON(w, http.StatusOK, map[string]string{"result": "archived"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Feed handles GET /feed: the public, ranked list of active listings.
func (h *ListingHandler) Feed(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.Feed(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	items := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		items = append(items, toListingResponse(l))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listings": items,
		"count":    len(items),
	})
}
