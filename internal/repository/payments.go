// Package repository contains the database/sql stores backing the services.
//
// This file implements the payment ledger store. Creating a payment and its
// add-on rows happens inside one transaction so a crash between the two
// steps cannot leave an orphaned payment or unfunded add-ons.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/mtaani/soko/internal/domain"
)

// PaymentStore defines persistence operations for payments.
type PaymentStore interface {
	// CreateWithAddOns inserts a payment and its linked add-on rows
	// atomically.
	CreateWithAddOns(ctx context.Context, p *domain.Payment, addOns []*domain.ListingAddOn) error

	// GetByID loads a payment. Returns sql.ErrNoRows when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// Update persists status, notes and milestone fields.
	Update(ctx context.Context, p *domain.Payment) error
}

type paymentStore struct {
	db *sql.DB
}

// NewPaymentStore creates a PaymentStore backed by the given database.
func NewPaymentStore(db *sql.DB) PaymentStore {
	return &paymentStore{db: db}
}

func (s *paymentStore) CreateWithAddOns(ctx context.Context, p *domain.Payment, addOns []*domain.ListingAddOn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insertPayment = `
        INSERT INTO payments (
            id, user_id, amount, currency, status, payment_method,
            description, metadata, admin_notes, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	metadata := pqtype.NullRawMessage{}
	if len(p.Metadata) > 0 {
		metadata = pqtype.NullRawMessage{RawMessage: p.Metadata, Valid: true}
	}

	_, err = tx.ExecContext(ctx, insertPayment,
		p.ID, p.UserID, p.Amount, p.Currency, p.Status, p.PaymentMethod,
		p.Description, metadata, p.AdminNotes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	const insertAddOn = `
        INSERT INTO listing_add_ons (
            id, listing_id, payment_id, add_on_type, price, is_active,
            expires_at, purchased_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, a := range addOns {
		_, err = tx.ExecContext(ctx, insertAddOn,
			a.ID, a.ListingID, a.PaymentID, a.Type, a.Price, a.IsActive,
			nullTime(a.ExpiresAt), a.PurchasedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *paymentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	const q = `
        SELECT id, user_id, amount, currency, status, payment_method,
               description, metadata, admin_notes, approved_by, approved_at,
               paid_at, completed_at, created_at, updated_at
        FROM payments
        WHERE id = $1`

	var p domain.Payment
	var metadata pqtype.NullRawMessage
	var approvedBy sql.Null[uuid.UUID]
	var approvedAt, paidAt, completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID,
		&p.UserID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PaymentMethod,
		&p.Description,
		&metadata,
		&p.AdminNotes,
		&approvedBy,
		&approvedAt,
		&paidAt,
		&completedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		p.Metadata = metadata.RawMessage
	}
	if approvedBy.Valid {
		id := approvedBy.V
		p.ApprovedBy = &id
	}
	if approvedAt.Valid {
		p.ApprovedAt = &approvedAt.Time
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

func (s *paymentStore) Update(ctx context.Context, p *domain.Payment) error {
	const q = `
        UPDATE payments
        SET status = $2, admin_notes = $3, approved_by = $4, approved_at = $5,
            paid_at = $6, completed_at = $7, updated_at = $8
        WHERE id = $1`

	var approvedBy interface{}
	if p.ApprovedBy != nil {
		approvedBy = *p.ApprovedBy
	}

	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.Status, p.AdminNotes, approvedBy,
		nullTime(p.ApprovedAt), nullTime(p.PaidAt), nullTime(p.CompletedAt),
		p.UpdatedAt,
	)
	return err
}
