// Package repository contains the database/sql stores backing the services.
//
// This file implements the read-only category and pricing-plan catalog.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/domain"
	"github.com/mtaani/soko/internal/money"
)

// CatalogStore defines read access to categories and pricing plans.
type CatalogStore interface {
	// GetCategory loads a category. Returns sql.ErrNoRows when absent.
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)

	// GetPlan loads a pricing plan. Returns sql.ErrNoRows when absent.
	GetPlan(ctx context.Context, id uuid.UUID) (*domain.PricingPlan, error)

	// CheapestPaidPlan returns the lowest-priced non-free plan, used as the
	// suggestion when a premium category rejects a free submission.
	// Returns sql.ErrNoRows when no paid plan exists.
	CheapestPaidPlan(ctx context.Context) (*domain.PricingPlan, error)
}

type catalogStore struct {
	db *sql.DB
}

// NewCatalogStore creates a CatalogStore backed by the given database.
func NewCatalogStore(db *sql.DB) CatalogStore {
	return &catalogStore{db: db}
}

func (s *catalogStore) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	const q = `
        SELECT id, name, slug, requires_payment, base_price
        FROM categories
        WHERE id = $1`

	var c domain.Category
	var basePrice sql.NullInt64
	err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Slug, &c.RequiresPayment, &basePrice)
	if err != nil {
		return nil, err
	}
	if basePrice.Valid {
		amount := money.Amount(basePrice.Int64)
		c.BasePrice = &amount
	}
	return &c, nil
}

func (s *catalogStore) GetPlan(ctx context.Context, id uuid.UUID) (*domain.PricingPlan, error) {
	const q = `
        SELECT id, name, price, duration_days, max_photos, can_hide_price,
               is_featured, has_map_location, has_priority_support
        FROM pricing_plans
        WHERE id = $1`

	return s.scanPlan(s.db.QueryRowContext(ctx, q, id))
}

func (s *catalogStore) CheapestPaidPlan(ctx context.Context) (*domain.PricingPlan, error) {
	const q = `
        SELECT id, name, price, duration_days, max_photos, can_hide_price,
               is_featured, has_map_location, has_priority_support
        FROM pricing_plans
        WHERE price > 0
        ORDER BY price ASC
        LIMIT 1`

	return s.scanPlan(s.db.QueryRowContext(ctx, q))
}

func (s *catalogStore) scanPlan(row *sql.Row) (*domain.PricingPlan, error) {
	var p domain.PricingPlan
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.DurationDays,
		&p.MaxPhotos,
		&p.CanHidePrice,
		&p.IsFeatured,
		&p.HasMapLocation,
		&p.HasPrioritySupport,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
