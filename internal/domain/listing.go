// Package domain contains core business types and interfaces.
//
// This file defines the Listing type and its visibility state machine.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/money"
)

// =============================================================================
// Listing Status
// =============================================================================

// ListingStatus represents the visibility state of a listing.
type ListingStatus string

const (
	// ListingStatusPending indicates the listing is awaiting moderation.
	ListingStatusPending ListingStatus = "pending"

	// ListingStatusActive indicates the listing is publicly visible.
	ListingStatusActive ListingStatus = "active"

	// ListingStatusArchived indicates the listing is hidden but reversible.
	// Owner- or admin-initiated.
	ListingStatusArchived ListingStatus = "archived"

	// ListingStatusFlagged indicates the listing is hidden and under review.
	// Admin-initiated from any state, with an optional audit reason.
	ListingStatusFlagged ListingStatus = "flagged"
)

// String returns the string representation of the status.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingStatusPending, ListingStatusActive,
		ListingStatusArchived, ListingStatusFlagged:
		return true
	}
	return false
}

// CanTransitionTo checks if a listing in this status can move to the target
// status when driven by the given actor role.
//
// Valid transitions:
// - pending -> active: admin approval only
// - any state -> archived: owner archive, or admin reject/archive
// - any state -> flagged: admin only
// - archived -> pending: owner reactivate (always re-enters moderation)
func (s ListingStatus) CanTransitionTo(target ListingStatus, actor Role) bool {
	if s == target {
		return false
	}

	switch target {
	case ListingStatusActive:
		return s == ListingStatusPending && actor == RoleAdmin
	case ListingStatusArchived:
		return true
	case ListingStatusFlagged:
		return actor == RoleAdmin
	case ListingStatusPending:
		// Reactivation never jumps straight to active.
		return s == ListingStatusArchived
	}

	return false
}

// =============================================================================
// Listing
// =============================================================================

// Listing is the sellable unit.
//
// IsFeatured and FeaturedUntil are written by the add-on effect engine and
// must be re-derived on read: expiry is time-driven, not event-driven, so a
// stored true bit is only trustworthy after CurrentlyFeatured or
// NormalizeFeatured has been consulted.
type Listing struct {
	ID            uuid.UUID
	UserID        uuid.UUID // Owner
	CategoryID    uuid.UUID
	PricingPlanID *uuid.UUID // nil when created without a plan (free)
	Title         string
	Description   string
	Price         *money.Amount // nil = price on request
	HidePrice     bool
	PhotoURLs     []string
	Status        ListingStatus
	FlagReason    string // Audit reason for the most recent flag, if any

	IsFeatured       bool
	FeaturedUntil    *time.Time
	FeaturedPosition int  // Manual ordering among co-featured listings, 0 = unset
	LegacyFeatured   bool // Pre-migration featured flag, kept for ranking compatibility
	BumpedAt         *time.Time
	HasVideo         bool
	IsUrgent         bool
	HasMapLocation   bool

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy returns true if the listing belongs to the given user.
func (l *Listing) OwnedBy(userID uuid.UUID) bool {
	return l.UserID == userID
}

// CurrentlyFeatured derives the listing's real featured state at the given
// instant, ignoring a stale stored bit.
func (l *Listing) CurrentlyFeatured(now time.Time) bool {
	if !l.IsFeatured {
		return false
	}
	return l.FeaturedUntil == nil || l.FeaturedUntil.After(now)
}

// NormalizeFeatured clears a stored featured flag whose window has passed.
// Returns true if the listing was mutated, so callers can write the
// normalized state back to the store.
func (l *Listing) NormalizeFeatured(now time.Time) bool {
	if l.IsFeatured && !l.CurrentlyFeatured(now) {
		l.IsFeatured = false
		l.FeaturedUntil = nil
		return true
	}
	return false
}

// IsExpired reports whether the listing's plan duration has run out.
func (l *Listing) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !l.ExpiresAt.After(now)
}

// CanDelete returns true if the listing may be hard-deleted. Active listings
// are never deleted directly; an owner delete is redirected to archive so
// moderation history survives.
func (l *Listing) CanDelete() bool {
	return l.Status != ListingStatusActive
}

// TransitionTo moves the listing to the target status on behalf of the actor.
// Returns ECONFLICT if the transition is not permitted for that actor.
func (l *Listing) TransitionTo(target ListingStatus, actor Role, reason string, now time.Time) error {
	const op = "listing.transition"

	if !target.IsValid() {
		return Invalid(op, "unknown listing status: "+target.String())
	}
	if !l.Status.CanTransitionTo(target, actor) {
		return Conflict(op, "cannot transition listing from "+l.Status.String()+" to "+target.String())
	}

	l.Status = target
	if target == ListingStatusFlagged {
		l.FlagReason = reason
	}
	l.UpdatedAt = now
	return nil
}

// =============================================================================
// Service Parameters
// =============================================================================

// CreateListingParams contains validated parameters for creating a listing.
type CreateListingParams struct {
	UserID        uuid.UUID
	CategoryID    uuid.UUID
	PricingPlanID *uuid.UUID
	Title         string
	Description   string
	Price         *money.Amount
	HidePrice     bool
	PhotoURLs     []string
}

// ModerationCounts are the aggregate counters shown on admin dashboards.
// Always recomputed by re-querying listing state, never patched
// incrementally.
type ModerationCounts struct {
	Pending  int64
	Active   int64
	Archived int64
	Flagged  int64
}
