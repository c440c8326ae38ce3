// Package service contains the business logic layer.
//
// This file implements the gating rules engine: the pre-creation decision
// of whether a listing submission is permitted, what it costs, and the
// quota ledger side effect once a free listing is created.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/clock"
	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/metrics"
	"github.com/mtaani/soko/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// GateService decides whether a listing submission is allowed and applies
// the quota side effect after a successful free creation.
type GateService interface {
	// Evaluate runs the gating rules for a submission. A disallowed
	// decision is a normal return value, not an error; errors are reserved
	// for missing references and store failures.
	//
	// The category payment check fires before any quota is read, so a
	// premium-category attempt on a free plan never consumes quota.
	Evaluate(ctx context.Context, userID, categoryID uuid.UUID, planID *uuid.UUID) (*domain.GateDecision, error)

	// RecordListingCreated increments the quota ledger by exactly one if
	// the listing was created against a free plan. The reset check and the
	// increment are one atomic store operation; concurrent creations from
	// the same user cannot double-count. Returns domain.ECONFLICT when the
	// quota was exhausted by a concurrent request.
	RecordListingCreated(ctx context.Context, userID uuid.UUID, planID *uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type gateService struct {
	users   repository.UserStore
	catalog repository.CatalogStore
	clock   clock.Clock
	logger  *slog.Logger
}

// NewGateService creates a new GateService.
func NewGateService(users repository.UserStore, catalog repository.CatalogStore, clk clock.Clock, logger *slog.Logger) GateService {
	return &gateService{
		users:   users,
		catalog: catalog,
		clock:   clk,
		logger:  logger,
	}
}

func (s *gateService) Evaluate(ctx context.Context, userID, categoryID uuid.UUID, planID *uuid.UUID) (*domain.GateDecision, error) {
	const op = "gate.evaluate"

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}

	category, err := s.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "category", categoryID.String())
		}
		return nil, domain.Internal(err, op, "failed to load category")
	}

	var plan *domain.PricingPlan
	if planID != nil {
		plan, err = s.catalog.GetPlan(ctx, *planID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NotFound(op, "pricing plan", planID.String())
			}
			return nil, domain.Internal(err, op, "failed to load pricing plan")
		}
	}

	now := s.clock.Now()
	isFree := plan.IsFree()

	// Premium-category check comes first: it must not consume quota, not
	// even transiently, so the ledger is untouched on this path.
	if category.RequiresPayment && isFree {
		decision := &domain.GateDecision{
			Allowed:         false,
			Reason:          domain.GateReasonRequiresPayment,
			RequiresPayment: true,
			Detail:          fmt.Sprintf("Listings in %s require a paid plan.", category.Name),
			Quota:           s.derivedSnapshot(user, now),
		}
		if suggested, err := s.catalog.CheapestPaidPlan(ctx); err == nil {
			decision.SuggestedPlan = suggested.Name
			decision.Detail = fmt.Sprintf("Listings in %s require a paid plan. Try the %s plan (%s).",
				category.Name, suggested.Name, suggested.Price)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Internal(err, op, "failed to load suggested plan")
		}

		metrics.GateRejections.WithLabelValues(string(domain.GateReasonRequiresPayment)).Inc()
		return decision, nil
	}

	// Paid plans do not touch the free-listing ledger at all.
	if !isFree {
		return &domain.GateDecision{
			Allowed:         true,
			RequiresPayment: true,
			InitialStatus:   initialStatus(plan),
			Quota:           s.derivedSnapshot(user, now),
		}, nil
	}

	// An active paid-tier subscription lifts the free-listing cap.
	if user.HasActiveSubscription(now) {
		return &domain.GateDecision{
			Allowed:       true,
			InitialStatus: domain.ListingStatusPending,
			Quota:         s.derivedSnapshot(user, now),
		}, nil
	}

	// Free plan: consult the ledger, applying the lazy month reset.
	state, err := s.users.SnapshotQuota(ctx, userID, now, clock.NextMonthStart(now))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to snapshot quota")
	}

	snapshot := domain.QuotaSnapshot{
		Used:     state.Used,
		Limit:    user.MonthlyFreeQuota(),
		ResetsAt: state.ResetsAt,
	}

	if snapshot.Exhausted() {
		s.logger.Info("free listing quota exceeded",
			"user_id", userID,
			"used", snapshot.Used,
			"limit", snapshot.Limit,
		)
		metrics.GateRejections.WithLabelValues(string(domain.GateReasonQuotaExceeded)).Inc()
		return &domain.GateDecision{
			Allowed: false,
			Reason:  domain.GateReasonQuotaExceeded,
			Detail: fmt.Sprintf("You have used all %d free listings for this month. Your limit resets on %s.",
				snapshot.Limit, snapshot.ResetsAt.Format("2 January 2006")),
			Quota: snapshot,
		}, nil
	}

	return &domain.GateDecision{
		Allowed:       true,
		InitialStatus: domain.ListingStatusPending,
		Quota:         snapshot,
	}, nil
}

func (s *gateService) RecordListingCreated(ctx context.Context, userID uuid.UUID, planID *uuid.UUID) error {
	const op = "gate.record_created"

	if planID != nil {
		plan, err := s.catalog.GetPlan(ctx, *planID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFound(op, "pricing plan", planID.String())
			}
			return domain.Internal(err, op, "failed to load pricing plan")
		}
		if !plan.IsFree() {
			return nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", userID.String())
		}
		return domain.Internal(err, op, "failed to load user")
	}
	if user.HasActiveSubscription(s.clock.Now()) {
		return nil
	}

	now := s.clock.Now()
	state, err := s.users.ConsumeFreeListing(ctx, userID, now, clock.NextMonthStart(now), user.MonthlyFreeQuota())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The conditional update matched no row: the quota was consumed
			// by a concurrent request between evaluate and create.
			return domain.Conflict(op, "free listing quota exhausted")
		}
		return domain.Internal(err, op, "failed to consume free listing quota")
	}

	s.logger.Debug("free listing recorded",
		"user_id", userID,
		"used", state.Used,
		"resets_at", state.ResetsAt,
	)
	return nil
}

// derivedSnapshot reports ledger state without writing it back. The lazy
// reset is applied in memory only; paths that actually consume quota go
// through the atomic store operations instead.
func (s *gateService) derivedSnapshot(user *domain.User, now time.Time) domain.QuotaSnapshot {
	snapshot := domain.QuotaSnapshot{
		Used:     user.FreeListingsThisMonth,
		Limit:    user.MonthlyFreeQuota(),
		ResetsAt: user.MonthlyResetAt,
	}
	if !user.MonthlyResetAt.After(now) {
		snapshot.Used = 0
		snapshot.ResetsAt = clock.NextMonthStart(now)
	}
	return snapshot
}

func initialStatus(plan *domain.PricingPlan) domain.ListingStatus {
	if plan.BypassesReview() {
		return domain.ListingStatusActive
	}
	return domain.ListingStatusPending
}
