// Package domain contains core business types and interfaces.
//
// This file defines purchasable listing add-ons, their price table and the
// effect each one applies to a listing.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/money"
)

// =============================================================================
// Add-On Types
// =============================================================================

// AddOnType identifies a purchasable boost.
type AddOnType string

const (
	AddOnFeaturedWeek AddOnType = "featured_week"
	AddOnBumpToTop    AddOnType = "bump_to_top"
	AddOnExtraPhotos  AddOnType = "extra_photos"
	AddOnVideoSupport AddOnType = "video_support"
	AddOnUrgentTag    AddOnType = "urgent_tag"
	AddOnMapLocation  AddOnType = "map_location"
)

// String returns the string representation of the add-on type.
func (t AddOnType) String() string {
	return string(t)
}

// IsValid returns true if the type is a recognized value.
func (t AddOnType) IsValid() bool {
	_, ok := AddOnPrices[t]
	return ok
}

// Exclusive returns true for "has it or doesn't" boosts: while an active,
// unexpired add-on of this type exists on a listing, buying the same type
// again is a conflict. Everything else is stackable.
func (t AddOnType) Exclusive() bool {
	return t == AddOnFeaturedWeek || t == AddOnUrgentTag
}

// FeaturedWeekDuration is how long a featured-week boost keeps a listing
// at the top of the feed.
const FeaturedWeekDuration = 7 * 24 * time.Hour

// Duration returns the active window for time-bounded add-on types, or zero
// for types with no expiry.
func (t AddOnType) Duration() time.Duration {
	if t == AddOnFeaturedWeek {
		return FeaturedWeekDuration
	}
	return 0
}

// AddOnPrices is the static per-unit price table in minor units.
var AddOnPrices = map[AddOnType]money.Amount{
	AddOnFeaturedWeek: 500,
	AddOnBumpToTop:    100,
	AddOnExtraPhotos:  50,
	AddOnVideoSupport: 300,
	AddOnUrgentTag:    200,
	AddOnMapLocation:  100,
}

// AddOnPrice returns the unit price for an add-on type.
func AddOnPrice(t AddOnType) (money.Amount, bool) {
	price, ok := AddOnPrices[t]
	return price, ok
}

// =============================================================================
// ListingAddOn
// =============================================================================

// ListingAddOn is one purchased unit of a boost. Owned by its listing;
// linked (not owned) to the payment that funds it.
type ListingAddOn struct {
	ID          uuid.UUID
	ListingID   uuid.UUID
	PaymentID   uuid.UUID
	Type        AddOnType
	Price       money.Amount
	IsActive    bool       // True once the effect has been applied
	ExpiresAt   *time.Time // Set only for time-bounded types, at application time
	PurchasedAt time.Time
}

// Expired reports whether a time-bounded add-on's window has passed.
// Add-ons with no expiry never expire.
func (a *ListingAddOn) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Blocks reports whether this add-on forbids a new purchase of the given
// type on the same listing.
func (a *ListingAddOn) Blocks(t AddOnType, now time.Time) bool {
	if a.Type != t || !t.Exclusive() {
		return false
	}
	return a.IsActive && !a.Expired(now)
}

// Apply realizes the add-on's benefit by mutating the listing.
//
// Application is idempotent: a time-bounded add-on stamps its own expiry on
// first application and re-applying reuses that stamp, so featuredUntil is
// never extended twice by the same purchase. Returns true if the listing
// was mutated.
func (a *ListingAddOn) Apply(l *Listing, now time.Time) bool {
	if d := a.Type.Duration(); d > 0 && a.ExpiresAt == nil {
		until := now.Add(d)
		a.ExpiresAt = &until
	}
	if a.Type != AddOnBumpToTop {
		a.IsActive = true
	}

	switch a.Type {
	case AddOnFeaturedWeek:
		changed := false
		if !l.IsFeatured {
			l.IsFeatured = true
			changed = true
		}
		if l.FeaturedUntil == nil || a.ExpiresAt.After(*l.FeaturedUntil) {
			l.FeaturedUntil = a.ExpiresAt
			changed = true
		}
		return changed

	case AddOnBumpToTop:
		// No persistent active state: the effect is the timestamp itself.
		// Stamping with the purchase instant keeps re-application idempotent.
		if l.BumpedAt == nil || a.PurchasedAt.After(*l.BumpedAt) {
			at := a.PurchasedAt
			l.BumpedAt = &at
			return true
		}
		return false

	case AddOnVideoSupport:
		if !l.HasVideo {
			l.HasVideo = true
			return true
		}
		return false

	case AddOnUrgentTag:
		if !l.IsUrgent {
			l.IsUrgent = true
			return true
		}
		return false

	case AddOnMapLocation:
		if !l.HasMapLocation {
			l.HasMapLocation = true
			return true
		}
		return false
	}

	// Extra photos raise the effective photo cap at presentation time; the
	// listing row itself does not change.
	return false
}
