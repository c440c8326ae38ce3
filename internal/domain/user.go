// Package domain contains core business types and interfaces.
//
// This file defines the User type and the monthly free-listing quota policy.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies what a user is allowed to do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Monthly free-listing allotments. Policy constants, not per-user values;
// business accounts get the higher cap.
const (
	FreeListingsPerMonth         = 3
	FreeListingsPerMonthBusiness = 10
)

// User is the acting identity resolved by the external identity provider.
//
// FreeListingsThisMonth and MonthlyResetAt form the quota ledger. They must
// only ever be read or written through the single-statement store operations
// in the repository package: the reset check and the increment are one
// atomic unit per user.
type User struct {
	ID                    uuid.UUID
	Email                 string
	Role                  Role
	IsBusinessUser        bool
	SubscriptionPlan      string     // Optional paid-tier override, empty when none
	SubscriptionEndsAt    *time.Time // When the paid tier lapses
	FreeListingsThisMonth int        // Free listings consumed in the current window
	MonthlyResetAt        time.Time  // Start of the *next* reset window
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// MonthlyFreeQuota returns the user's effective free-listing cap.
func (u *User) MonthlyFreeQuota() int {
	if u.IsBusinessUser {
		return FreeListingsPerMonthBusiness
	}
	return FreeListingsPerMonth
}

// HasActiveSubscription returns true if a paid-tier override is in effect.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u.SubscriptionPlan == "" {
		return false
	}
	return u.SubscriptionEndsAt == nil || u.SubscriptionEndsAt.After(now)
}

// QuotaSnapshot is the quota ledger state reported by a gate decision,
// after any lazy reset has been applied.
type QuotaSnapshot struct {
	Used     int
	Limit    int
	ResetsAt time.Time // Start of the next reset window
}

// Remaining returns how many free listings are left in the window.
func (q QuotaSnapshot) Remaining() int {
	if q.Used >= q.Limit {
		return 0
	}
	return q.Limit - q.Used
}

// Exhausted returns true once the free-listing cap is reached.
func (q QuotaSnapshot) Exhausted() bool {
	return q.Used >= q.Limit
}
