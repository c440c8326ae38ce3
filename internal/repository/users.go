// Package repository contains the database/sql stores backing the services.
//
// This file implements the user store, including the quota ledger. The
// ledger operations fold the lazy month reset and the counter mutation into
// single UPDATE statements so overlapping requests from the same user can
// never lose an increment or double-reset at a month boundary.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/domain"
)

// QuotaState is the ledger state returned after a lazy reset has been
// applied.
type QuotaState struct {
	Used     int
	ResetsAt time.Time
}

// UserStore defines persistence operations for users and the quota ledger.
type UserStore interface {
	// GetByID loads a user. Returns sql.ErrNoRows when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// SnapshotQuota applies the lazy month reset if due and returns the
	// resulting counter state. nextReset is the boundary to install when a
	// reset fires (first instant of the month after now).
	SnapshotQuota(ctx context.Context, id uuid.UUID, now, nextReset time.Time) (*QuotaState, error)

	// ConsumeFreeListing atomically applies the lazy reset if due and
	// increments the counter, but only while the post-reset counter is
	// below cap. Returns sql.ErrNoRows when the quota is exhausted or the
	// user does not exist; callers disambiguate with GetByID.
	ConsumeFreeListing(ctx context.Context, id uuid.UUID, now, nextReset time.Time, cap int) (*QuotaState, error)
}

type userStore struct {
	db *sql.DB
}

// NewUserStore creates a UserStore backed by the given database.
func NewUserStore(db *sql.DB) UserStore {
	return &userStore{db: db}
}

func (s *userStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const q = `
        SELECT id, email, role, is_business_user, subscription_plan,
               subscription_ends_at, free_listings_this_month, monthly_reset_at,
               created_at, updated_at
        FROM users
        WHERE id = $1`

	var u domain.User
	var subEnds sql.NullTime
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID,
		&u.Email,
		&u.Role,
		&u.IsBusinessUser,
		&u.SubscriptionPlan,
		&subEnds,
		&u.FreeListingsThisMonth,
		&u.MonthlyResetAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if subEnds.Valid {
		u.SubscriptionEndsAt = &subEnds.Time
	}
	return &u, nil
}

func (s *userStore) SnapshotQuota(ctx context.Context, id uuid.UUID, now, nextReset time.Time) (*QuotaState, error) {
	const q = `
        UPDATE users
        SET free_listings_this_month = CASE WHEN monthly_reset_at <= $2 THEN 0 ELSE free_listings_this_month END,
            monthly_reset_at         = CASE WHEN monthly_reset_at <= $2 THEN $3 ELSE monthly_reset_at END,
            updated_at               = $2
        WHERE id = $1
        RETURNING free_listings_this_month, monthly_reset_at`

	var state QuotaState
	err := s.db.QueryRowContext(ctx, q, id, now, nextReset).Scan(&state.Used, &state.ResetsAt)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *userStore) ConsumeFreeListing(ctx context.Context, id uuid.UUID, now, nextReset time.Time, cap int) (*QuotaState, error) {
	// The WHERE clause evaluates the counter as it will be after the reset,
	// so a stale window never blocks an increment and a fresh window never
	// sneaks past the cap.
	const q = `
        UPDATE users
        SET free_listings_this_month = CASE WHEN monthly_reset_at <= $2 THEN 1 ELSE free_listings_this_month + 1 END,
            monthly_reset_at         = CASE WHEN monthly_reset_at <= $2 THEN $3 ELSE monthly_reset_at END,
            updated_at               = $2
        WHERE id = $1
          AND (CASE WHEN monthly_reset_at <= $2 THEN 0 ELSE free_listings_this_month END) < $4
        RETURNING free_listings_this_month, monthly_reset_at`

	var state QuotaState
	err := s.db.QueryRowContext(ctx, q, id, now, nextReset, cap).Scan(&state.Used, &state.ResetsAt)
	if err != nil {
		return nil, err
	}
	return &state, nil
}
