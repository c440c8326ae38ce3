// Package repository contains the database/sql stores backing the services.
//
// This file implements the listing store.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/money"
)

const listingColumns = `
        id, user_id, category_id, pricing_plan_id, title, description, price,
        hide_price, photo_urls, status, flag_reason, is_featured,
        featured_until, featured_position, legacy_featured, bumped_at,
        has_video, is_urgent, has_map_location, expires_at, created_at,
        updated_at`

// ListingStore defines persistence operations for listings.
type ListingStore interface {
	// Create inserts a new listing.
	Create(ctx context.Context, l *domain.Listing) error

	// GetByID loads a listing. Returns sql.ErrNoRows when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)

	// UpdateStatus persists a status transition with its audit reason.
	UpdateStatus(ctx context.Context, l *domain.Listing) error

	// UpdateBoosts persists the boost fields the add-on effect engine
	// mutates (featured flag/window, bump stamp, descriptive flags).
	UpdateBoosts(ctx context.Context, l *domain.Listing) error

	// Delete hard-deletes a listing. The caller is responsible for the
	// non-active precondition.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListActive returns publicly visible, unexpired listings, unordered;
	// ranking is applied by the caller.
	ListActive(ctx context.Context, now time.Time, limit int) ([]*domain.Listing, error)

	// CountsByStatus recomputes the moderation aggregates by querying
	// current state.
	CountsByStatus(ctx context.Context) (*domain.ModerationCounts, error)

	// ClearExpiredFeatured writes back the normalized featured flag for
	// listings whose window has passed. Returns the number of rows touched.
	ClearExpiredFeatured(ctx context.Context, now time.Time) (int64, error)
}

type listingStore struct {
	db *sql.DB
}

// NewListingStore creates a ListingStore backed by the given database.
func NewListingStore(db *sql.DB) ListingStore {
	return &listingStore{db: db}
}

func (s *listingStore) Create(ctx context.Context, l *domain.Listing) error {
	const q = `
        INSERT INTO listings (
            id, user_id, category_id, pricing_plan_id, title, description,
            price, hide_price, photo_urls, status, expires_at, created_at,
            updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var price sql.NullInt64
	if l.Price != nil {
		price = sql.NullInt64{Int64: int64(*l.Price), Valid: true}
	}
	var planID interface{}
	if l.PricingPlanID != nil {
		planID = *l.PricingPlanID
	}

	_, err := s.db.ExecContext(ctx, q,
		l.ID, l.UserID, l.CategoryID, planID, l.Title, l.Description,
		price, l.HidePrice, pq.Array(l.PhotoURLs), l.Status, l.ExpiresAt,
		l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (s *listingStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return scanListing(s.db.QueryRowContext(ctx, q, id))
}

func (s *listingStore) UpdateStatus(ctx context.Context, l *domain.Listing) error {
	const q = `
        UPDATE listings
        SET status = $2, flag_reason = $3, updated_at = $4
        WHERE id = $1`

	_, err := s.db.ExecContext(ctx, q, l.ID, l.Status, l.FlagReason, l.UpdatedAt)
	return err
}

func (s *listingStore) UpdateBoosts(ctx context.Context, l *domain.Listing) error {
	const q = `
        UPDATE listings
        SET is_featured = $2, featured_until = $3, bumped_at = $4,
            has_video = $5, is_urgent = $6, has_map_location = $7,
            updated_at = $8
        WHERE id = $1`

	_, err := s.db.ExecContext(ctx, q,
		l.ID, l.IsFeatured, nullTime(l.FeaturedUntil), nullTime(l.BumpedAt),
		l.HasVideo, l.IsUrgent, l.HasMapLocation, l.UpdatedAt,
	)
	return err
}

func (s *listingStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	return err
}

func (s *listingStore) ListActive(ctx context.Context, now time.Time, limit int) ([]*domain.Listing, error) {
	q := `SELECT ` + listingColumns + `
        FROM listings
        WHERE status = 'active' AND expires_at > $1
        LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *listingStore) CountsByStatus(ctx context.Context) (*domain.ModerationCounts, error) {
	const q = `
        SELECT
            count(*) FILTER (WHERE status = 'pending'),
            count(*) FILTER (WHERE status = 'active'),
            count(*) FILTER (WHERE status = 'archived'),
            count(*) FILTER (WHERE status = 'flagged')
        FROM listings`

	var counts domain.ModerationCounts
	err := s.db.QueryRowContext(ctx, q).Scan(&counts.Pending, &counts.Active, &counts.Archived, &counts.Flagged)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (s *listingStore) ClearExpiredFeatured(ctx context.Context, now time.Time) (int64, error) {
	const q = `
        UPDATE listings
        SET is_featured = false, featured_until = NULL, updated_at = $1
        WHERE is_featured AND featured_until IS NOT NULL AND featured_until <= $1`

	res, err := s.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row scanner) (*domain.Listing, error) {
	var l domain.Listing
	var planID sql.Null[uuid.UUID]
	var price sql.NullInt64
	var featuredUntil, bumpedAt sql.NullTime

	err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.CategoryID,
		&planID,
		&l.Title,
		&l.Description,
		&price,
		&l.HidePrice,
		pq.Array(&l.PhotoURLs),
		&l.Status,
		&l.FlagReason,
		&l.IsFeatured,
		&featuredUntil,
		&l.FeaturedPosition,
		&l.LegacyFeatured,
		&bumpedAt,
		&l.HasVideo,
		&l.IsUrgent,
		&l.HasMapLocation,
		&l.ExpiresAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if planID.Valid {
		id := planID.V
		l.PricingPlanID = &id
	}
	if price.Valid {
		amount := money.Amount(price.Int64)
		l.Price = &amount
	}
	if featuredUntil.Valid {
		l.FeaturedUntil = &featuredUntil.Time
	}
	if bumpedAt.Valid {
		l.BumpedAt = &bumpedAt.Time
	}
	return &l, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
