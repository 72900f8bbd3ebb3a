package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Protocol is the machine-readable marker carried in every 402 payload
// so clients can tell "pay first" apart from a hard failure.
const Protocol = "x402"

// PaymentRequiredHeader is set on every 402 response.
const PaymentRequiredHeader = "X-402-Payment-Required"

// ChallengeState tracks where a submission sits in the payment lifecycle.
// Transitions are monotonic: Created -> Paid -> Redeemed.
type ChallengeState string

const (
	StateCreated  ChallengeState = "created"
	StatePaid     ChallengeState = "paid"
	StateRedeemed ChallengeState = "redeemed"
)

// CanTransitionTo reports whether moving to next is a legal forward step.
func (s ChallengeState) CanTransitionTo(next ChallengeState) bool {
	switch s {
	case StateCreated:
		return next == StatePaid
	case StatePaid:
		return next == StateRedeemed
	default:
		return false
	}
}

// Settled reports whether payment has been recorded for this state.
func (s ChallengeState) Settled() bool {
	return s == StatePaid || s == StateRedeemed
}

// Submission is the profile a caller wants checked. The schema is
// explicit: name and platform are required, handle and bio may be blank
// (their absence feeds the scoring heuristics).
type Submission struct {
	Name     string `json:"name" validate:"required,max=100"`
	Handle   string `json:"handle" validate:"omitempty,max=100"`
	Platform string `json:"platform" validate:"required,max=50"`
	Bio      string `json:"bio" validate:"omitempty,max=2000"`
}

// PaymentTerms is the pricing snapshot quoted at issuance. It is
// write-once: every later 402 for the same challenge re-serves these
// exact values.
type PaymentTerms struct {
	// Amount in whole units of the token (e.g. "0.01" SOL).
	Amount decimal.Decimal `json:"amount"`

	// Token symbol the amount is denominated in (e.g. "SOL", "USDC").
	Token string `json:"token"`

	// Network the payment must land on (e.g. "solana-devnet").
	Network string `json:"network"`

	// Recipient address the payment must be sent to.
	Recipient string `json:"recipient"`
}

// Validate checks that the terms are complete enough to quote.
func (t PaymentTerms) Validate() error {
	if t.Amount.IsZero() || t.Amount.IsNegative() {
		return fmt.Errorf("terms.amount must be positive")
	}

	if t.Token == "" {
		return fmt.Errorf("terms.token is required")
	}

	if t.Network == "" {
		return fmt.Errorf("terms.network is required")
	}

	if !Network(t.Network).Known() {
		return fmt.Errorf("terms.network %q is not supported", t.Network)
	}

	if t.Recipient == "" {
		return fmt.Errorf("terms.recipient is required")
	}

	return nil
}

// Challenge pairs a submission with its quoted terms and payment state.
// The store exclusively owns these records; components never act on
// cached copies.
type Challenge struct {
	ID         string         `json:"id"`
	Submission Submission     `json:"submission"`
	State      ChallengeState `json:"state"`
	Terms      PaymentTerms   `json:"terms"`

	// TxRef is the transaction reference supplied when payment was
	// recorded, if any.
	TxRef string `json:"txRef,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	RedeemedAt *time.Time `json:"redeemedAt,omitempty"`
}

// PaymentChallenge is the body of a 402 response.
type PaymentChallenge struct {
	Status    string `json:"status"`
	Protocol  string `json:"protocol"`
	Amount    string `json:"amount"`
	Token     string `json:"token"`
	Network   string `json:"network"`
	Recipient string `json:"recipient"`
	CheckID   string `json:"checkId"`
}

// NewPaymentChallenge builds the 402 payload for a challenge from its
// stored terms.
func NewPaymentChallenge(id string, terms PaymentTerms) *PaymentChallenge {
	return &PaymentChallenge{
		Status:    "payment_required",
		Protocol:  Protocol,
		Amount:    terms.Amount.String(),
		Token:     terms.Token,
		Network:   terms.Network,
		Recipient: terms.Recipient,
		CheckID:   id,
	}
}

// RiskLevel buckets a report score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Profile is the subset of the submission echoed back with the report.
type Profile struct {
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	Platform string `json:"platform"`
}

// Report is the artifact released once a challenge is paid.
type Report struct {
	Score   int       `json:"score"`
	Risk    RiskLevel `json:"risk"`
	Reasons []string  `json:"reasons"`
	Profile Profile   `json:"profile"`
}

// ForwardRequest asks the forwarder to relay a payment initiation to an
// upstream processor. Receiver is canonical; pay_to is accepted as a
// deprecated alias on input and never emitted.
type ForwardRequest struct {
	PaymentEndpoint string `json:"payment_endpoint" validate:"required,url"`
	Amount          string `json:"amount"`
	Receiver        string `json:"receiver"`
	PayTo           string `json:"pay_to,omitempty"`
	Network         string `json:"network"`
	Currency        string `json:"currency"`
}

// Canonicalize folds the deprecated pay_to alias into Receiver and
// reports whether the alias was used.
func (r *ForwardRequest) Canonicalize() bool {
	if r.Receiver == "" && r.PayTo != "" {
		r.Receiver = r.PayTo
		r.PayTo = ""
		return true
	}
	return false
}

// ForwardResult is the forwarder's pass-through of the upstream reply.
type ForwardResult struct {
	OK       bool           `json:"ok"`
	Upstream map[string]any `json:"upstream,omitempty"`
}

// VerificationResult reports what an on-chain lookup found for a
// claimed payment.
type VerificationResult struct {
	Valid         bool       `json:"valid"`
	InvalidReason string     `json:"invalidReason,omitempty"`
	Amount        string     `json:"amount,omitempty"`
	Recipient     string     `json:"recipient,omitempty"`
	Sender        string     `json:"sender,omitempty"`
	Confirmations int        `json:"confirmations,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
}
