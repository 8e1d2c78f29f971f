package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Broker is an agent who sells policies and earns commission on them.
type Broker struct {
	ID             int64           `json:"id"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone,omitempty"`
	LicenseNumber  string          `json:"license_number,omitempty"`
	CommissionRate decimal.Decimal `json:"commission_rate"` // fraction, e.g. 0.10
	HireDate       string          `json:"hire_date,omitempty"`
	Active         bool            `json:"active"`
	Role           Role            `json:"role"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (b Broker) OwnerBrokerID() int64 { return b.ID }

func (b Broker) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

func (b Broker) Validate() error {
	if strings.TrimSpace(b.FirstName) == "" {
		return invalid("first_name", "is required")
	}
	if strings.TrimSpace(b.LastName) == "" {
		return invalid("last_name", "is required")
	}
	if !emailRegex.MatchString(b.Email) {
		return invalid("email", "is not a valid address")
	}
	if b.CommissionRate.IsNegative() || b.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return invalid("commission_rate", "must be between 0 and 1")
	}
	if !b.Role.Valid() {
		return invalid("role", fmt.Sprintf("unknown role %q", b.Role))
	}
	return nil
}

type BrokerRepo interface {
	Create(ctx context.Context, b *Broker) error
	Update(ctx context.Context, b Broker) error
	Get(ctx context.Context, id int64) (Broker, error)
	GetByEmail(ctx context.Context, email string) (Broker, error)
	List(ctx context.Context) ([]Broker, error)
}

var (
	ErrBrokerNotFound = fmt.Errorf("%w: broker not found", ErrNotFound)
	ErrBrokerConflict = fmt.Errorf("%w: broker email already registered", ErrConflict)
)
