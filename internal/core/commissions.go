package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "PENDING"
	CommissionStatusPaid      CommissionStatus = "PAID"
	CommissionStatusCancelled CommissionStatus = "CANCELLED"
)

// Commission is the broker's earning on one policy, fixed at issuance.
type Commission struct {
	ID           int64            `json:"id"`
	PolicyID     int64            `json:"policy_id"`
	PolicyNumber string           `json:"policy_number"`
	BrokerID     int64            `json:"broker_id"`
	BrokerName   string           `json:"broker_name"`
	Rate         decimal.Decimal  `json:"rate"`
	Amount       decimal.Decimal  `json:"amount"`
	Status       CommissionStatus `json:"status"`
	PaymentDate  *time.Time       `json:"payment_date,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (c Commission) OwnerBrokerID() int64 { return c.BrokerID }

// NewCommission prices the commission from the policy premium and the broker's rate.
// PolicyID is filled in by the store once the policy row exists.
func NewCommission(p Policy, b Broker, now time.Time) Commission {
	return Commission{
		PolicyNumber: p.PolicyNumber,
		BrokerID:     b.ID,
		BrokerName:   b.FullName(),
		Rate:         b.CommissionRate,
		Amount:       Round2(p.Premium.Mul(b.CommissionRate)),
		Status:       CommissionStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

type CommissionFilter struct {
	BrokerID *int64
	PolicyID int64
	Status   CommissionStatus
}

type CommissionRepo interface {
	Get(ctx context.Context, id int64) (Commission, error)
	List(ctx context.Context, filter CommissionFilter) ([]Commission, error)
	// TransitionStatus moves the commission to next only while its stored status is still from.
	TransitionStatus(ctx context.Context, id int64, from, next CommissionStatus, paidAt *time.Time, at time.Time) error
}

var ErrCommissionNotFound = fmt.Errorf("%w: commission not found", ErrNotFound)
