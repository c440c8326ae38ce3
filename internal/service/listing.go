// Package service contains the business logic layer.
//
// This file implements the listing lifecycle: creation behind the gate,
// status transitions, deletion rules and the ranked feed.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/clock"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/metrics"
	"github.com/mtaani/soko/internal/repository"
)

// DefaultListingDurationDays applies when a listing is created without a
// pricing plan.
const DefaultListingDurationDays = 30

// DefaultFeedLimit caps how many active listings one feed query loads.
const DefaultFeedLimit = 200

// =============================================================================
// Interface Definition
// =============================================================================

// ListingService defines operations on listings.
type ListingService interface {
	// Create runs the gating rules and, if allowed, creates the listing in
	// the gate's initial status and applies the quota side effect.
	// Returns domain.EPAYMENT or a gate rejection error when disallowed.
	Create(ctx context.Context, params domain.CreateListingParams) (*domain.Listing, error)

	// GetByID retrieves a listing.
	// Returns domain.ENOTFOUND if the listing does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)

	// Transition moves a listing to a new status on behalf of the actor.
	// Returns domain.ECONFLICT for transitions the state machine forbids
	// and domain.EFORBIDDEN when the actor may not touch the listing.
	Transition(ctx context.Context, listingID uuid.UUID, target domain.ListingStatus, actor *domain.User, reason string) (*domain.Listing, error)

	// Delete hard-deletes a non-active listing. An owner delete of an
	// active listing is redirected to archive instead; the returned flag
	// reports whether the listing was archived rather than deleted.
	Delete(ctx context.Context, listingID uuid.UUID, actor *domain.User) (archived bool, err error)

	// Feed returns active listings in deterministic rank order, clearing
	// stale featured flags first so rank and filters agree.
	Feed(ctx context.Context) ([]*domain.Listing, error)

	// ModerationCounts recomputes the dashboard aggregates by re-querying
	// listing state.
	ModerationCounts(ctx context.Context) (*domain.ModerationCounts, error)
}

// =============================================================================
// Implementation
// =============================================================================

type listingService struct {
	listings repository.ListingStore
	catalog  repository.CatalogStore
	gate     GateService
	clock    clock.Clock
	logger   *slog.Logger
}

// NewListingService creates a new ListingService.
func NewListingService(
	listings repository.ListingStore,
	catalog repository.CatalogStore,
	gate GateService,
	clk clock.Clock,
	logger *slog.Logger,
) ListingService {
	return &listingService{
		listings: listings,
		catalog:  catalog,
		gate:     gate,
		clock:    clk,
		logger:   logger,
	}
}

func (s *listingService) Create(ctx context.Context, params domain.CreateListingParams) (*domain.Listing, error) {
	const op = "listing.create"

	if err := s.validateCreateParams(op, params); err != nil {
		return nil, err
	}

	decision, err := s.gate.Evaluate(ctx, params.UserID, params.CategoryID, params.PricingPlanID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		code := domain.EPAYMENT
		if decision.Reason == domain.GateReasonQuotaExceeded {
			code = domain.ECONFLICT
		}
		return nil, domain.Errorf(code, op, "%s", decision.Detail)
	}

	durationDays := DefaultListingDurationDays
	var planLabel = "free"
	if params.PricingPlanID != nil {
		plan, err := s.catalog.GetPlan(ctx, *params.PricingPlanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NotFound(op, "pricing plan", params.PricingPlanID.String())
			}
			return nil, domain.Internal(err, op, "failed to load pricing plan")
		}
		if plan.DurationDays > 0 {
			durationDays = plan.DurationDays
		}
		if len(params.PhotoURLs) > plan.MaxPhotos {
			return nil, domain.Invalid(op, "too many photos for the selected plan")
		}
		if params.HidePrice && !plan.CanHidePrice {
			return nil, domain.Invalid(op, "the selected plan does not allow hiding the price")
		}
		planLabel = plan.Name
	}

	now := s.clock.Now()
	listing := &domain.Listing{
		ID:            uuid.New(),
		UserID:        params.UserID,
		CategoryID:    params.CategoryID,
		PricingPlanID: params.PricingPlanID,
		Title:         strings.TrimSpace(params.Title),
		Description:   strings.TrimSpace(params.Description),
		Price:         params.Price,
		HidePrice:     params.HidePrice,
		PhotoURLs:     params.PhotoURLs,
		Status:        decision.InitialStatus,
		ExpiresAt:     now.AddDate(0, 0, durationDays),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, domain.Internal(err, op, "failed to create listing")
	}

	if err := s.gate.RecordListingCreated(ctx, params.UserID, params.PricingPlanID); err != nil {
		// The listing exists but the ledger refused the increment: undo so
		// the quota invariant holds.
		if delErr := s.listings.Delete(ctx, listing.ID); delErr != nil {
			s.logger.Error("failed to undo listing after quota conflict",
				"listing_id", listing.ID, "error", delErr)
		}
		return nil, err
	}

	metrics.ListingsCreated.WithLabelValues(planLabel).Inc()
	s.logger.Info("listing created",
		"listing_id", listing.ID,
		"user_id", params.UserID,
		"status", listing.Status,
	)
	return listing, nil
}

func (s *listingService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	const op = "listing.get"

	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "listing", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load listing")
	}
	return listing, nil
}

func (s *listingService) Transition(ctx context.Context, listingID uuid.UUID, target domain.ListingStatus, actor *domain.User, reason string) (*domain.Listing, error) {
	const op = "listing.transition"

	listing, err := s.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !listing.OwnedBy(actor.ID) {
		return nil, domain.Forbidden(op, "you do not own this listing")
	}

	if err := listing.TransitionTo(target, actor.Role, reason, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.listings.UpdateStatus(ctx, listing); err != nil {
		return nil, domain.Internal(err, op, "failed to update listing status")
	}

	s.logger.Info("listing status changed",
		"listing_id", listingID,
		"status", target,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
	)

	// Admin-driven moderation changes refresh the dashboard aggregates.
	if actor.IsAdmin() {
		if _, err := s.ModerationCounts(ctx); err != nil {
			s.logger.Warn("failed to refresh moderation counts", "error", err)
		}
	}
	return listing, nil
}

func (s *listingService) Delete(ctx context.Context, listingID uuid.UUID, actor *domain.User) (bool, error) {
	const op = "listing.delete"

	listing, err := s.GetByID(ctx, listingID)
	if err != nil {
		return false, err
	}

	if !actor.IsAdmin() && !listing.OwnedBy(actor.ID) {
		return false, domain.Forbidden(op, "you do not own this listing")
	}

	// Deleting an active listing is redirected to archive so moderation
	// history and analytics survive.
	if !listing.CanDelete() {
		if err := listing.TransitionTo(domain.ListingStatusArchived, actor.Role, "", s.clock.Now()); err != nil {
			return false, err
		}
		if err := s.listings.UpdateStatus(ctx, listing); err != nil {
			return false, domain.Internal(err, op, "failed to archive listing")
		}
		s.logger.Info("active listing archived instead of deleted", "listing_id", listingID)
		return true, nil
	}

	if err := s.listings.Delete(ctx, listingID); err != nil {
		return false, domain.Internal(err, op, "failed to delete listing")
	}
	s.logger.Info("listing deleted", "listing_id", listingID)
	return false, nil
}

func (s *listingService) Feed(ctx context.Context) ([]*domain.Listing, error) {
	const op = "listing.feed"

	now := s.clock.Now()

	// Write back stale featured flags before reading so the stored state
	// callers see agrees with the ranking below.
	if _, err := s.listings.ClearExpiredFeatured(ctx, now); err != nil {
		s.logger.Warn("failed to clear expired featured flags", "error", err)
	}

	listings, err := s.listings.ListActive(ctx, now, DefaultFeedLimit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list active listings")
	}
	return domain.RankListings(listings, now), nil
}

func (s *listingService) ModerationCounts(ctx context.Context) (*domain.ModerationCounts, error) {
	const op = "listing.moderation_counts"

	counts, err := s.listings.CountsByStatus(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count listings")
	}

	metrics.ModerationPending.Set(float64(counts.Pending))
	metrics.ModerationActive.Set(float64(counts.Active))
	metrics.ModerationFlagged.Set(float64(counts.Flagged))
	return counts, nil
}

func (s *listingService) validateCreateParams(op string, params domain.CreateListingParams) error {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return domain.NewValidationError(op, "title", "Title is required")
	}
	if len(title) > 200 {
		return domain.NewValidationError(op, "title", "Title must be 200 characters or less")
	}
	if params.Price == nil && !params.HidePrice {
		return domain.NewValidationError(op, "price", "Provide a price or mark the listing as price on request")
	}
	if params.Price != nil && *params.Price < 0 {
		return domain.NewValidationError(op, "price", "Price cannot be negative")
	}
	return nil
}
