package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusDraft    OfferStatus = "DRAFT" // reserved; offers are created PENDING
	OfferStatusPending  OfferStatus = "PENDING"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusExpired  OfferStatus = "EXPIRED"
	OfferStatusRejected OfferStatus = "REJECTED"
)

const (
	// OfferValidityDays is how long an offer remains valid.
	OfferValidityDays = 30
)

// Offer is a priced proposal for a client, frozen at creation.
type Offer struct {
	ID                int64            `json:"id"`
	OfferNumber       string           `json:"offer_number"`
	ClientID          int64            `json:"client_id"`
	ClientName        string           `json:"client_name"`
	ProductID         int64            `json:"product_id"`
	ProductName       string           `json:"product_name"`
	InsurerName       string           `json:"insurer_name"`
	BrokerID          int64            `json:"broker_id"`
	BrokerName        string           `json:"broker_name"`
	StartDate         time.Time        `json:"start_date"`
	EndDate           time.Time        `json:"end_date"`
	Premium           decimal.Decimal  `json:"premium"`
	SumInsured        decimal.Decimal  `json:"sum_insured"`
	Breakdown         PremiumBreakdown `json:"breakdown"`
	Status            OfferStatus      `json:"status"`
	GDPRConsent       bool             `json:"gdpr_consent"`
	GDPRConsentDate   *time.Time       `json:"gdpr_consent_date,omitempty"`
	CustomFieldValues map[string]any   `json:"custom_field_values"`
	ExpiresAt         time.Time        `json:"expires_at"`
	AcceptedAt        *time.Time       `json:"accepted_at,omitempty"`
	RejectedAt        *time.Time       `json:"rejected_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (o Offer) OwnerBrokerID() int64 { return o.BrokerID }

// OfferInput is a rated offer request; Premium comes from a prior calculation.
type OfferInput struct {
	ClientID          int64             `json:"client_id"`
	ProductID         int64             `json:"product_id"`
	BrokerID          *int64            `json:"broker_id,omitempty"`
	StartDate         Date              `json:"start_date"`
	EndDate           Date              `json:"end_date"`
	SumInsured        decimal.Decimal   `json:"sum_insured"`
	Premium           *decimal.Decimal  `json:"premium"`
	Breakdown         *PremiumBreakdown `json:"breakdown,omitempty"`
	CustomFieldValues map[string]any    `json:"custom_field_values"`
	GDPRConsent       bool              `json:"gdpr_consent"`
}

func (in OfferInput) Validate() error {
	if in.ClientID <= 0 {
		return invalid("client_id", "is required")
	}
	if in.ProductID <= 0 {
		return invalid("product_id", "is required")
	}
	if !in.SumInsured.IsPositive() {
		return invalid("sum_insured", "must be > 0")
	}
	if in.Premium == nil {
		return invalid("premium", "is required; calculate the premium first")
	}
	if in.Premium.IsNegative() {
		return invalid("premium", "must be >= 0")
	}
	if in.Breakdown != nil && !Round2(in.Breakdown.FinalPremium).Equal(Round2(*in.Premium)) {
		return invalid("breakdown", "final_premium must equal premium")
	}
	if in.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	if !in.EndDate.After(in.StartDate.Time) {
		return invalid("end_date", "must be after start_date")
	}
	return nil
}

// OfferFilter narrows list reads. With AsOf set, PENDING and EXPIRED are matched
// on their effective status at that instant.
type OfferFilter struct {
	BrokerID *int64
	ClientID int64
	Status   OfferStatus
	AsOf     time.Time
}

type OfferRepo interface {
	Create(ctx context.Context, o *Offer) error
	Get(ctx context.Context, id int64) (Offer, error)
	List(ctx context.Context, filter OfferFilter) ([]Offer, error)
	// TransitionStatus moves the offer to next only while its stored status is still from.
	TransitionStatus(ctx context.Context, id int64, from, next OfferStatus, at time.Time) error
	ExpireOffers(ctx context.Context, before time.Time) (int64, error)
}

// CanTransitionTo checks if a status transition is valid.
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	transitions := map[OfferStatus][]OfferStatus{
		OfferStatusDraft:   {OfferStatusPending},
		OfferStatusPending: {OfferStatusAccepted, OfferStatusExpired, OfferStatusRejected},
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsExpired checks if the offer has expired.
func (o Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// EffectiveStatus reports a pending offer past its expiry as EXPIRED.
func (o Offer) EffectiveStatus(now time.Time) OfferStatus {
	if o.Status == OfferStatusPending && o.IsExpired(now) {
		return OfferStatusExpired
	}
	return o.Status
}

func (o Offer) withEffectiveStatus(now time.Time) Offer {
	o.Status = o.EffectiveStatus(now)
	return o
}

func OfferNumber(year int, seq int64) string {
	return fmt.Sprintf("OFF-%d-%05d", year, seq)
}

var (
	ErrOfferNotFound   = fmt.Errorf("%w: offer not found", ErrNotFound)
	ErrOfferNotPending = fmt.Errorf("%w: offer is not in pending status", ErrInvalidState)
)
