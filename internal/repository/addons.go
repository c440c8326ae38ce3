// Package repository contains the database/sql stores backing the services.
//
// This file implements the listing add-on store.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/domain"
)

const addOnColumns = `
        id, listing_id, payment_id, add_on_type, price, is_active,
        expires_at, purchased_at`

// AddOnStore defines persistence operations for listing add-ons.
type AddOnStore interface {
	// ListByListing returns all add-ons for a listing, newest first.
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*domain.ListingAddOn, error)

	// ListByPayment returns the add-ons funded by a payment.
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.ListingAddOn, error)

	// Update persists activation state and expiry.
	Update(ctx context.Context, a *domain.ListingAddOn) error
}

type addOnStore struct {
	db *sql.DB
}

// NewAddOnStore creates an AddOnStore backed by the given database.
func NewAddOnStore(db *sql.DB) AddOnStore {
	return &addOnStore{db: db}
}

func (s *addOnStore) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*domain.ListingAddOn, error) {
	q := `SELECT ` + addOnColumns + `
        FROM listing_add_ons
        WHERE listing_id = $1
        ORDER BY purchased_at DESC`

	return s.list(ctx, q, listingID)
}

func (s *addOnStore) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.ListingAddOn, error) {
	q := `SELECT ` + addOnColumns + `
        FROM listing_add_ons
        WHERE payment_id = $1
        ORDER BY purchased_at DESC`

	return s.list(ctx, q, paymentID)
}

func (s *addOnStore) list(ctx context.Context, q string, id uuid.UUID) ([]*domain.ListingAddOn, error) {
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addOns []*domain.ListingAddOn
	for rows.Next() {
		var a domain.ListingAddOn
		var expiresAt sql.NullTime
		err := rows.Scan(
			&a.ID,
			&a.ListingID,
			&a.PaymentID,
			&a.Type,
			&a.Price,
			&a.IsActive,
			&expiresAt,
			&a.PurchasedAt,
		)
		if err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			a.ExpiresAt = &expiresAt.Time
		}
		addOns = append(addOns, &a)
	}
	return addOns, rows.Err()
}

func (s *addOnStore) Update(ctx context.Context, a *domain.ListingAddOn) error {
	const q = `
        UPDATE listing_add_ons
        SET is_active = $2, expires_at = $3
        WHERE id = $1`

	_, err := s.db.ExecContext(ctx, q, a.ID, a.IsActive, nullTime(a.ExpiresAt))
	return err
}
