package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/clock"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/metrics"
	"github.com/mtaani/soko/internal/money"
	"github.com/mtaani/soko/internal/repository"
)

// MaxAddOnQuantity bounds a single purchase. Quantities above one only make
// sense for stackable types such as extra photos.
const MaxAddOnQuantity = 20

// EffectPolicy controls when a purchased add-on's effect lands on the
// listing.
type EffectPolicy string

const (
	// EffectOnPurchase applies effects immediately when the purchase is
	// recorded, trusting the manual payment workflow to follow.
	EffectOnPurchase EffectPolicy = "on_purchase"

	// EffectOnPaymentCompleted defers effects until an admin moves the
	// payment to completed.
	EffectOnPaymentCompleted EffectPolicy = "on_payment_completed"
)

// IsValid returns true for a recognized policy value.
func (p EffectPolicy) IsValid() bool {
	return p == EffectOnPurchase || p == EffectOnPaymentCompleted
}

// =============================================================================
// Interface Definition
// =============================================================================

// PurchaseAddOnParams describes one add-on purchase request.
type PurchaseAddOnParams struct {
	ListingID uuid.UUID
	Type      domain.AddOnType
	Quantity  int
}

// PurchaseResult pairs the recorded payment with the add-on rows it covers.
type PurchaseResult struct {
	Payment *domain.Payment
	AddOns  []*domain.ListingAddOn
}

// AddOnService handles add-on purchases and their effects on listings.
type AddOnService interface {
	// Purchase records a payment in pending status plus one add-on row per
	// quantity unit. Under the on_purchase policy the effects are applied
	// to the listing immediately; otherwise they wait for payment
	// completion.
	// Returns domain.ECONFLICT when an exclusive add-on of the same type
	// is already active on the listing.
	Purchase(ctx context.Context, actor *domain.User, params PurchaseAddOnParams) (*PurchaseResult, error)

	// ListForListing returns every add-on ever purchased for the listing,
	// active or not.
	ListForListing(ctx context.Context, listingID uuid.UUID) ([]*domain.ListingAddOn, error)
}

// =============================================================================
// Implementation
// =============================================================================

type addOnService struct {
	listings repository.ListingStore
	addOns   repository.AddOnStore
	payments repository.PaymentStore
	policy   EffectPolicy
	clock    clock.Clock
	logger   *slog.Logger
}

// NewAddOnService creates a new AddOnService. An unrecognized policy falls
// back to applying effects on purchase.
func NewAddOnService(
	listings repository.ListingStore,
	addOns repository.AddOnStore,
	payments repository.PaymentStore,
	policy EffectPolicy,
	clk clock.Clock,
	logger *slog.Logger,
) AddOnService {
	if !policy.IsValid() {
		policy = EffectOnPurchase
	}
	return &addOnService{
		listings: listings,
		addOns:   addOns,
		payments: payments,
		policy:   policy,
		clock:    clk,
		logger:   logger,
	}
}

// purchaseMetadata is stored on the payment row for audit and support
// lookups.
type purchaseMetadata struct {
	ListingID string `json:"listing_id"`
	AddOnType string `json:"add_on_type"`
	Quantity  int    `json:"quantity"`
}

func (s *addOnService) Purchase(ctx context.Context, actor *domain.User, params PurchaseAddOnParams) (*PurchaseResult, error) {
	const op = "addon.purchase"

	if !params.Type.IsValid() {
		return nil, domain.Invalid(op, "unknown add-on type: "+string(params.Type))
	}
	if params.Quantity < 1 || params.Quantity > MaxAddOnQuantity {
		return nil, domain.Invalid(op, "quantity must be between 1 and 20")
	}
	if params.Quantity > 1 && params.Type != domain.AddOnExtraPhotos {
		return nil, domain.Invalid(op, "only extra photos can be purchased in multiples")
	}
	unitPrice, ok := domain.AddOnPrices[params.Type]
	if !ok {
		return nil, domain.Invalid(op, "add-on type has no price: "+string(params.Type))
	}

	listing, err := s.listings.GetByID(ctx, params.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "listing", params.ListingID.String())
		}
		return nil, domain.Internal(err, op, "failed to load listing")
	}
	if !actor.IsAdmin() && !listing.OwnedBy(actor.ID) {
		return nil, domain.Forbidden(op, "you do not own this listing")
	}

	now := s.clock.Now()

	// Exclusive types reject a repeat purchase while the earlier one is
	// still running. Stackable types skip this entirely.
	if params.Type.Exclusive() {
		existing, err := s.addOns.ListByListing(ctx, params.ListingID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to load existing add-ons")
		}
		for _, a := range existing {
			if a.Blocks(params.Type, now) {
				return nil, domain.Conflict(op, "an active "+string(params.Type)+" add-on already covers this listing")
			}
		}
	}

	meta, err := json.Marshal(purchaseMetadata{
		ListingID: params.ListingID.String(),
		AddOnType: string(params.Type),
		Quantity:  params.Quantity,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode payment metadata")
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		UserID:        listing.UserID,
		Amount:        unitPrice.Mul(params.Quantity),
		Currency:      money.CurrencyCode,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: domain.PaymentMethodManual,
		Description:   string(params.Type) + " add-on for listing " + params.ListingID.String(),
		Metadata:      meta,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	addOns := make([]*domain.ListingAddOn, 0, params.Quantity)
	for i := 0; i < params.Quantity; i++ {
		addOns = append(addOns, &domain.ListingAddOn{
			ID:          uuid.New(),
			ListingID:   params.ListingID,
			PaymentID:   payment.ID,
			Type:        params.Type,
			Price:       unitPrice,
			PurchasedAt: now,
		})
	}

	if err := s.payments.CreateWithAddOns(ctx, payment, addOns); err != nil {
		return nil, domain.Internal(err, op, "failed to record purchase")
	}
	metrics.AddOnsPurchased.WithLabelValues(string(params.Type)).Inc()

	if s.policy == EffectOnPurchase {
		if err := s.applyEffects(ctx, listing, addOns, now); err != nil {
			return nil, err
		}
	}

	s.logger.Info("add-on purchased",
		"listing_id", params.ListingID,
		"type", params.Type,
		"quantity", params.Quantity,
		"payment_id", payment.ID,
		"amount", payment.Amount.String(),
		"policy", s.policy,
	)
	return &PurchaseResult{Payment: payment, AddOns: addOns}, nil
}

func (s *addOnService) ListForListing(ctx context.Context, listingID uuid.UUID) ([]*domain.ListingAddOn, error) {
	const op = "addon.list"

	addOns, err := s.addOns.ListByListing(ctx, listingID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list add-ons")
	}
	return addOns, nil
}

// applyEffects stamps each add-on's effect onto the listing and persists
// both sides. Apply is idempotent per add-on, so replays after a partial
// failure are safe.
func (s *addOnService) applyEffects(ctx context.Context, listing *domain.Listing, addOns []*domain.ListingAddOn, now time.Time) error {
	const op = "addon.apply"

	changed := false
	for _, a := range addOns {
		if a.Apply(listing, now) {
			changed = true
		}
		if err := s.addOns.Update(ctx, a); err != nil {
			return domain.Internal(err, op, "failed to update add-on")
		}
	}
	if changed {
		listing.UpdatedAt = now
		if err := s.listings.UpdateBoosts(ctx, listing); err != nil {
			return domain.Internal(err, op, "failed to update listing boosts")
		}
	}
	return nil
}
