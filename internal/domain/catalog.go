// Package domain contains core business types and interfaces.
//
// This file defines the Category and PricingPlan reference data consumed by
// the gating rules engine. Both are read-only from the core's perspective.
package domain

import (
	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/money"
)

// Category classifies listings. Categories that require payment reject
// free-plan submissions outright, before any quota is consumed.
type Category struct {
	ID              uuid.UUID
	Name            string
	Slug            string
	RequiresPayment bool
	BasePrice       *money.Amount // Suggested price for paid categories
}

// PricingPlan is a named tier a listing can be created under.
//
// A plan with a zero price is free regardless of its name.
type PricingPlan struct {
	ID                 uuid.UUID
	Name               string
	Price              money.Amount
	DurationDays       int // How long a listing under this plan stays live
	MaxPhotos          int
	CanHidePrice       bool
	IsFeatured         bool // Plan-level featured flag (premium tiers)
	HasMapLocation     bool
	HasPrioritySupport bool
}

// IsFree reports whether the plan costs nothing. A nil plan (no plan chosen)
// counts as free.
func (p *PricingPlan) IsFree() bool {
	return p == nil || p.Price.IsZero()
}

// BypassesReview reports whether listings created under this plan skip the
// moderation queue and go live immediately.
func (p *PricingPlan) BypassesReview() bool {
	return p != nil && p.IsFeatured
}
