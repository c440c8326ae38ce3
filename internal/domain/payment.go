// Package domain contains core business types and interfaces.
//
// This file defines the Payment ledger record and its admin-driven workflow.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mtaani/soko/internal/money"
)

// =============================================================================
// Payment Status
// =============================================================================

// PaymentStatus represents the state of a manually-confirmed payment record.
type PaymentStatus string

const (
	// PaymentStatusPending indicates the payment was recorded but not yet
	// reviewed by an administrator.
	PaymentStatusPending PaymentStatus = "pending"

	// PaymentStatusApproved indicates an administrator approved the order
	// and is awaiting the out-of-band payment.
	PaymentStatusApproved PaymentStatus = "approved_awaiting_payment"

	// PaymentStatusReceived indicates the out-of-band payment reference
	// (e.g., a mobile-money transaction ID) was seen.
	PaymentStatusReceived PaymentStatus = "payment_received"

	// PaymentStatusCompleted indicates the payment is settled. Deferred
	// add-on effects are applied on entry into this state.
	PaymentStatusCompleted PaymentStatus = "completed"

	// PaymentStatusCancelled, PaymentStatusFailed and PaymentStatusRefunded
	// are administrator overrides.
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// String returns the string representation of the status.
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusReceived,
		PaymentStatusCompleted, PaymentStatusCancelled, PaymentStatusFailed,
		PaymentStatusRefunded:
		return true
	}
	return false
}

// paymentTransitions is the explicit allowed-next table. The admin UI offers
// an open set of choices, so the guard lives here rather than trusting the
// caller.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusApproved, PaymentStatusCancelled, PaymentStatusFailed},
	PaymentStatusApproved:  {PaymentStatusReceived, PaymentStatusCancelled, PaymentStatusFailed},
	PaymentStatusReceived:  {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded},
	PaymentStatusCompleted: {PaymentStatusRefunded},
	PaymentStatusFailed:    {PaymentStatusPending},
	PaymentStatusCancelled: {},
	PaymentStatusRefunded:  {},
}

// CanTransitionTo checks if the payment may move to the target status.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed.
func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

// PaymentMethodManual marks payments settled out of band (cash, mobile
// money) and confirmed by an administrator.
const PaymentMethodManual = "manual"

// =============================================================================
// Payment
// =============================================================================

// Payment is an append/update money record owned by the paying user and
// driven forward manually by an administrator.
//
// ApprovedAt, PaidAt and CompletedAt are milestones: set exactly once on
// first entry into the corresponding state and never overwritten, even by
// later backward transitions such as a refund.
type Payment struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Amount        money.Amount
	Currency      string
	Status        PaymentStatus
	PaymentMethod string
	Description   string
	Metadata      json.RawMessage // Opaque caller context (listing, add-on type, quantity)
	AdminNotes    string
	ApprovedBy    *uuid.UUID
	ApprovedAt    *time.Time
	PaidAt        *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TransitionTo moves the payment to the target status, stamping milestone
// timestamps on first entry. Returns ECONFLICT for a transition the
// allowed-next table forbids.
func (p *Payment) TransitionTo(target PaymentStatus, adminID uuid.UUID, notes string, now time.Time) error {
	const op = "payment.transition"

	if !target.IsValid() {
		return Invalid(op, "unknown payment status: "+target.String())
	}
	if !p.Status.CanTransitionTo(target) {
		return Conflict(op, "cannot transition payment from "+p.Status.String()+" to "+target.String())
	}

	p.Status = target
	if notes != "" {
		p.AdminNotes = notes
	}

	switch target {
	case PaymentStatusApproved:
		if p.ApprovedAt == nil {
			at := now
			p.ApprovedAt = &at
			id := adminID
			p.ApprovedBy = &id
		}
	case PaymentStatusReceived:
		if p.PaidAt == nil {
			at := now
			p.PaidAt = &at
		}
	case PaymentStatusCompleted:
		if p.CompletedAt == nil {
			at := now
			p.CompletedAt = &at
		}
	}

	p.UpdatedAt = now
	return nil
}
