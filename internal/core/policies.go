package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PolicyStatus string

const (
	PolicyStatusActive             PolicyStatus = "ACTIVE"
	PolicyStatusPending            PolicyStatus = "PENDING"
	PolicyStatusAwaitingPayment    PolicyStatus = "AWAITING_PAYMENT"
	PolicyStatusAwaitingValidation PolicyStatus = "AWAITING_VALIDATION"
	PolicyStatusExpired            PolicyStatus = "EXPIRED"
	PolicyStatusCancelled          PolicyStatus = "CANCELLED"
	PolicyStatusSuspended          PolicyStatus = "SUSPENDED"
)

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "CASH"
	PaymentPOS           PaymentMethod = "POS"
	PaymentCardOnline    PaymentMethod = "CARD_ONLINE"
	PaymentBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentBrokerPayment PaymentMethod = "BROKER_PAYMENT"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPOS, PaymentCardOnline, PaymentBankTransfer, PaymentBrokerPayment:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusValidated PaymentStatus = "VALIDATED"
	PaymentStatusRejected  PaymentStatus = "REJECTED"
)

// Policy is the binding contract issued from an accepted offer.
type Policy struct {
	ID                 int64           `json:"id"`
	PolicyNumber       string          `json:"policy_number"` // POL-<year>-<seq>, never reassigned
	OfferID            int64           `json:"offer_id"`
	ClientID           int64           `json:"client_id"`
	ClientName         string          `json:"client_name"`
	ProductID          int64           `json:"product_id"`
	ProductName        string          `json:"product_name"`
	InsurerName        string          `json:"insurer_name"`
	BrokerID           int64           `json:"broker_id"`
	BrokerName         string          `json:"broker_name"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	Premium            decimal.Decimal `json:"premium"`
	SumInsured         decimal.Decimal `json:"sum_insured"`
	Status             PolicyStatus    `json:"status"`
	GDPRConsent        bool            `json:"gdpr_consent"`
	GDPRConsentDate    *time.Time      `json:"gdpr_consent_date,omitempty"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	ProofOfPayment     string          `json:"proof_of_payment,omitempty"` // file reference
	ValidatedBy        *int64          `json:"validated_by,omitempty"`
	ValidatedAt        *time.Time      `json:"validated_at,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CustomFieldValues  map[string]any  `json:"custom_field_values"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (p Policy) OwnerBrokerID() int64 { return p.BrokerID }

// PolicyState is the pair a transition is conditioned on.
type PolicyState struct {
	Status        PolicyStatus
	PaymentStatus PaymentStatus
}

func (p Policy) State() PolicyState {
	return PolicyState{Status: p.Status, PaymentStatus: p.PaymentStatus}
}

type CheckoutInput struct {
	PaymentMethod  PaymentMethod `json:"payment_method"`
	ProofOfPayment string        `json:"proof_of_payment,omitempty"`
}

func (in CheckoutInput) Validate() error {
	if !in.PaymentMethod.Valid() {
		return invalid("payment_method", fmt.Sprintf("unknown payment method %q", in.PaymentMethod))
	}
	return nil
}

// PolicyFilter narrows list reads. With AsOf set, ACTIVE and EXPIRED are matched
// on their effective status at that instant.
type PolicyFilter struct {
	BrokerID      *int64
	ClientID      int64
	Status        PolicyStatus
	PaymentStatus PaymentStatus
	AsOf          time.Time
}

type PolicyRepo interface {
	Get(ctx context.Context, id int64) (Policy, error)
	GetByNumber(ctx context.Context, number string) (Policy, error)
	List(ctx context.Context, filter PolicyFilter, limit, offset int) ([]Policy, int64, error)
	// UpdateIf stores p only while the stored status pair still equals expect.
	UpdateIf(ctx context.Context, p Policy, expect PolicyState) error
	ExpirePolicies(ctx context.Context, before time.Time) (int64, error)
}

// NewPolicyFromOffer carries the offer forward. Card payments are settled online and
// start ACTIVE; every other method waits for payment or for validation of a supplied proof.
func NewPolicyFromOffer(o Offer, in CheckoutInput, number string, now time.Time) Policy {
	p := Policy{
		PolicyNumber:      number,
		OfferID:           o.ID,
		ClientID:          o.ClientID,
		ClientName:        o.ClientName,
		ProductID:         o.ProductID,
		ProductName:       o.ProductName,
		InsurerName:       o.InsurerName,
		BrokerID:          o.BrokerID,
		BrokerName:        o.BrokerName,
		StartDate:         o.StartDate,
		EndDate:           o.EndDate,
		Premium:           o.Premium,
		SumInsured:        o.SumInsured,
		GDPRConsent:       o.GDPRConsent,
		GDPRConsentDate:   o.GDPRConsentDate,
		PaymentMethod:     in.PaymentMethod,
		ProofOfPayment:    strings.TrimSpace(in.ProofOfPayment),
		CustomFieldValues: o.CustomFieldValues,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	switch {
	case in.PaymentMethod == PaymentCardOnline:
		p.Status = PolicyStatusActive
		p.PaymentStatus = PaymentStatusValidated
		p.ValidatedAt = &now
	case p.ProofOfPayment != "":
		p.Status = PolicyStatusAwaitingValidation
		p.PaymentStatus = PaymentStatusPending
	default:
		p.Status = PolicyStatusAwaitingPayment
		p.PaymentStatus = PaymentStatusPending
	}
	return p
}

// IsExpired reports an active policy whose end date has passed.
func (p Policy) IsExpired(now time.Time) bool {
	return p.Status == PolicyStatusActive && now.After(p.EndDate)
}

func (p Policy) EffectiveStatus(now time.Time) PolicyStatus {
	if p.IsExpired(now) {
		return PolicyStatusExpired
	}
	return p.Status
}

func (p Policy) withEffectiveStatus(now time.Time) Policy {
	p.Status = p.EffectiveStatus(now)
	return p
}

func (p Policy) attachProof(ref string, now time.Time) (Policy, error) {
	if p.Status != PolicyStatusAwaitingPayment {
		return Policy{}, fmt.Errorf("%w: cannot upload proof while policy is %s", ErrInvalidState, p.Status)
	}
	p.ProofOfPayment = ref
	p.Status = PolicyStatusAwaitingValidation
	p.PaymentStatus = PaymentStatusPending
	p.UpdatedAt = now
	return p, nil
}

func (p Policy) validatePayment(by int64, now time.Time) (Policy, error) {
	if p.Status != PolicyStatusAwaitingValidation {
		return Policy{}, fmt.Errorf("%w: cannot validate payment while policy is %s", ErrInvalidState, p.Status)
	}
	p.Status = PolicyStatusActive
	p.PaymentStatus = PaymentStatusValidated
	p.ValidatedBy = &by
	p.ValidatedAt = &now
	p.UpdatedAt = now
	return p, nil
}

func (p Policy) rejectPayment(now time.Time) (Policy, error) {
	if p.Status != PolicyStatusAwaitingValidation {
		return Policy{}, fmt.Errorf("%w: cannot reject payment while policy is %s", ErrInvalidState, p.Status)
	}
	p.Status = PolicyStatusAwaitingPayment
	p.PaymentStatus = PaymentStatusRejected
	p.UpdatedAt = now
	return p, nil
}

func (p Policy) cancel(reason string, now time.Time) (Policy, error) {
	if p.Status == PolicyStatusCancelled || p.Status == PolicyStatusExpired {
		return Policy{}, fmt.Errorf("%w: policy is already %s", ErrInvalidState, p.Status)
	}
	p.Status = PolicyStatusCancelled
	p.CancellationReason = reason
	p.CancelledAt = &now
	p.UpdatedAt = now
	return p, nil
}

func (p Policy) suspend(now time.Time) (Policy, error) {
	if p.Status != PolicyStatusActive {
		return Policy{}, fmt.Errorf("%w: only active policies can be suspended, policy is %s", ErrInvalidState, p.Status)
	}
	p.Status = PolicyStatusSuspended
	p.UpdatedAt = now
	return p, nil
}

func PolicyNumber(year int, seq int64) string {
	return fmt.Sprintf("POL-%d-%05d", year, seq)
}

var (
	ErrPolicyNotFound = fmt.Errorf("%w: policy not found", ErrNotFound)
	ErrPolicyExists   = fmt.Errorf("%w: policy already exists for offer", ErrConflict)
)
