// Package domain contains core business types and interfaces.
//
// This file defines the gating rules engine's decision type.
package domain

// GateReason is a machine-readable code explaining a gating rejection.
// Gating rejections are expected, recoverable outcomes, not failures.
type GateReason string

const (
	// GateReasonRequiresPayment: the category demands a paid plan and the
	// submission used a free one. Checked before quota so a premium-category
	// attempt never consumes any allotment.
	GateReasonRequiresPayment GateReason = "requires_payment"

	// GateReasonQuotaExceeded: the monthly free-listing allotment is used up.
	GateReasonQuotaExceeded GateReason = "quota_exceeded"
)

// GateDecision is the outcome of evaluating a listing submission.
type GateDecision struct {
	Allowed         bool
	Reason          GateReason // Set only when rejected
	Detail          string     // Human-facing explanation, renderable as-is
	RequiresPayment bool
	SuggestedPlan   string        // Paid plan to offer when payment is required
	InitialStatus   ListingStatus // Status a created listing enters on success
	Quota           QuotaSnapshot // Ledger state after lazy reset
}
