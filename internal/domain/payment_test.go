package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from PaymentStatus
		to   PaymentStatus
		want bool
	}{
		// Forward workflow
		{"pending to approved", PaymentStatusPending, PaymentStatusApproved, true},
		{"approved to received", PaymentStatusApproved, PaymentStatusReceived, true},
		{"received to completed", PaymentStatusReceived, PaymentStatusCompleted, true},

		// Admin overrides
		{"pending to cancelled", PaymentStatusPending, PaymentStatusCancelled, true},
		{"approved to failed", PaymentStatusApproved, PaymentStatusFailed, true},
		{"received to refunded", PaymentStatusReceived, PaymentStatusRefunded, true},
		{"completed to refunded", PaymentStatusCompleted, PaymentStatusRefunded, true},
		{"failed back to pending", PaymentStatusFailed, PaymentStatusPending, true},

		// Disallowed jumps the reference admin UI would have permitted
		{"completed to pending", PaymentStatusCompleted, PaymentStatusPending, false},
		{"pending to completed", PaymentStatusPending, PaymentStatusCompleted, false},
		{"pending to received", PaymentStatusPending, PaymentStatusReceived, false},
		{"cancelled to anything", PaymentStatusCancelled, PaymentStatusPending, false},
		{"refunded is terminal", PaymentStatusRefunded, PaymentStatusCompleted, false},
		{"completed to approved", PaymentStatusCompleted, PaymentStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.True(t, PaymentStatusCancelled.IsTerminal())
	assert.True(t, PaymentStatusRefunded.IsTerminal())
	assert.False(t, PaymentStatusCompleted.IsTerminal())
	assert.False(t, PaymentStatusFailed.IsTerminal())
}

func TestPayment_TransitionTo_Milestones(t *testing.T) {
	admin := uuid.New()
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)
	t3 := t0.Add(3 * time.Hour)

	p := &Payment{Status: PaymentStatusPending}

	require.NoError(t, p.TransitionTo(PaymentStatusApproved, admin, "order looks fine", t0))
	require.NotNil(t, p.ApprovedAt)
	assert.Equal(t, t0, *p.ApprovedAt)
	require.NotNil(t, p.ApprovedBy)
	assert.Equal(t, admin, *p.ApprovedBy)
	assert.Equal(t, "order looks fine", p.AdminNotes)

	require.NoError(t, p.TransitionTo(PaymentStatusReceived, admin, "mpesa ref QX12", t1))
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, t1, *p.PaidAt)

	require.NoError(t, p.TransitionTo(PaymentStatusCompleted, admin, "", t2))
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, t2, *p.CompletedAt)
	// Empty notes leave the previous note in place
	assert.Equal(t, "mpesa ref QX12", p.AdminNotes)

	// A later refund must not touch any milestone
	require.NoError(t, p.TransitionTo(PaymentStatusRefunded, admin, "buyer dispute", t3))
	assert.Equal(t, t0, *p.ApprovedAt)
	assert.Equal(t, t1, *p.PaidAt)
	assert.Equal(t, t2, *p.CompletedAt)
	assert.Equal(t, PaymentStatusRefunded, p.Status)
}

func TestPayment_TransitionTo_Rejected(t *testing.T) {
	admin := uuid.New()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	p := &Payment{Status: PaymentStatusCompleted, CompletedAt: &now}
	err := p.TransitionTo(PaymentStatusPending, admin, "", now.Add(time.Hour))
	assert.Error(t, err)
	assert.Equal(t, ECONFLICT, ErrorCode(err))
	assert.Equal(t, PaymentStatusCompleted, p.Status)
	assert.Equal(t, now, *p.CompletedAt)
}

func TestPayment_MilestonesSetOnce(t *testing.T) {
	admin := uuid.New()
	t0 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// pending -> approved -> failed -> pending -> approved: first approval
	// timestamp must survive the second approval.
	p := &Payment{Status: PaymentStatusPending}
	require.NoError(t, p.TransitionTo(PaymentStatusApproved, admin, "", t0))
	require.NoError(t, p.TransitionTo(PaymentStatusFailed, admin, "no payment seen", t0.Add(time.Hour)))
	require.NoError(t, p.TransitionTo(PaymentStatusPending, admin, "", t0.Add(2*time.Hour)))
	require.NoError(t, p.TransitionTo(PaymentStatusApproved, admin, "", t0.Add(3*time.Hour)))

	assert.Equal(t, t0, *p.ApprovedAt)
}
