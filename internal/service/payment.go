package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/clock"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/metrics"
	"github.com/mtaani/soko/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PaymentService drives the admin payment workflow.
type PaymentService interface {
	// GetByID retrieves a payment. Non-admin callers only see their own.
	GetByID(ctx context.Context, id uuid.UUID, actor *domain.User) (*domain.Payment, error)

	// Transition moves a payment to the target status on behalf of an
	// administrator, stamping milestone timestamps on first entry. On
	// entry into completed, add-on effects that were deferred at purchase
	// time are applied exactly once.
	// Returns domain.EFORBIDDEN for non-admin actors and domain.ECONFLICT
	// for transitions the workflow forbids.
	Transition(ctx context.Context, paymentID uuid.UUID, target domain.PaymentStatus, actor *domain.User, notes string) (*domain.Payment, error)
}

// =============================================================================
// Implementation
// =============================================================================

type paymentService struct {
	payments repository.PaymentStore
	addOns   repository.AddOnStore
	listings repository.ListingStore
	clock    clock.Clock
	logger   *slog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	payments repository.PaymentStore,
	addOns repository.AddOnStore,
	listings repository.ListingStore,
	clk clock.Clock,
	logger *slog.Logger,
) PaymentService {
	return &paymentService{
		payments: payments,
		addOns:   addOns,
		listings: listings,
		clock:    clk,
		logger:   logger,
	}
}

func (s *paymentService) GetByID(ctx context.Context, id uuid.UUID, actor *domain.User) (*domain.Payment, error) {
	const op = "payment.get"

	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "payment", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load payment")
	}
	if !actor.IsAdmin() && payment.UserID != actor.ID {
		return nil, domain.Forbidden(op, "this payment belongs to another user")
	}
	return payment, nil
}

func (s *paymentService) Transition(ctx context.Context, paymentID uuid.UUID, target domain.PaymentStatus, actor *domain.User, notes string) (*domain.Payment, error) {
	const op = "payment.transition"

	if !actor.IsAdmin() {
		return nil, domain.Forbidden(op, "only administrators can update payments")
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "payment", paymentID.String())
		}
		return nil, domain.Internal(err, op, "failed to load payment")
	}

	now := s.clock.Now()
	if err := payment.TransitionTo(target, actor.ID, notes, now); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, domain.Internal(err, op, "failed to update payment")
	}
	metrics.PaymentsTransitioned.WithLabelValues(target.String()).Inc()

	s.logger.Info("payment status changed",
		"payment_id", paymentID,
		"status", target,
		"admin_id", actor.ID,
	)

	if target == domain.PaymentStatusCompleted {
		if err := s.applyDeferredEffects(ctx, payment); err != nil {
			// The payment itself is settled; a failed effect application
			// is surfaced for retry rather than rolling the status back.
			return nil, err
		}
	}
	return payment, nil
}

// applyDeferredEffects applies the effects of the payment's add-ons that
// were not applied at purchase time. Apply is idempotent per add-on, so
// add-ons that already ran under the on_purchase policy are no-ops here
// except bumps, which re-stamp from their original purchase instant and
// therefore never move the bump marker backward.
func (s *paymentService) applyDeferredEffects(ctx context.Context, payment *domain.Payment) error {
	const op = "payment.apply_effects"

	addOns, err := s.addOns.ListByPayment(ctx, payment.ID)
	if err != nil {
		return domain.Internal(err, op, "failed to load add-ons for payment")
	}
	if len(addOns) == 0 {
		return nil
	}

	// All add-ons under one payment target the same listing.
	listing, err := s.listings.GetByID(ctx, addOns[0].ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The listing was deleted while the payment was in flight.
			// Nothing to boost; keep the money record as is.
			s.logger.Warn("completed payment references a deleted listing",
				"payment_id", payment.ID, "listing_id", addOns[0].ListingID)
			return nil
		}
		return domain.Internal(err, op, "failed to load listing")
	}

	now := s.clock.Now()
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

	s.logger.Info("add-on effects applied on payment completion",
		"payment_id", payment.ID,
		"listing_id", listing.ID,
		"add_ons", len(addOns),
	)
	return nil
}
