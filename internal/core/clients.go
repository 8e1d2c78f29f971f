package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type IDType string

const (
	IDTypeIDCard         IDType = "ID_CARD"
	IDTypePassport       IDType = "PASSPORT"
	IDTypeDriversLicense IDType = "DRIVERS_LICENSE"
)

type Client struct {
	ID              int64      `json:"id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address,omitempty"`
	DateOfBirth     string     `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Nationality     string     `json:"nationality,omitempty"`
	CNP             string     `json:"cnp"`
	IDType          IDType     `json:"id_type,omitempty"`
	IDNumber        string     `json:"id_number,omitempty"`
	IDExpiry        string     `json:"id_expiry,omitempty"`
	GDPRConsent     bool       `json:"gdpr_consent"`
	GDPRConsentDate *time.Time `json:"gdpr_consent_date,omitempty"`
	BrokerID        int64      `json:"broker_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (c Client) OwnerBrokerID() int64 { return c.BrokerID }

func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type ClientInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
	Nationality string `json:"nationality"`
	CNP         string `json:"cnp"`
	IDType      IDType `json:"id_type"`
	IDNumber    string `json:"id_number"`
	IDExpiry    string `json:"id_expiry"`
	GDPRConsent bool   `json:"gdpr_consent"`
	BrokerID    *int64 `json:"broker_id,omitempty"`
}

// ClientPatch carries contact changes. Identity and consent are not patchable.
type ClientPatch struct {
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type ClientFilter struct {
	BrokerID *int64
	Search   string
}

type ClientRepo interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id int64) (Client, error)
	Update(ctx context.Context, c Client) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ClientFilter) ([]Client, error)
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (in ClientInput) Validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return invalid("first_name", "is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return invalid("last_name", "is required")
	}
	if !emailRegex.MatchString(in.Email) {
		return invalid("email", "is not a valid address")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return invalid("phone", "is required")
	}
	if !ValidCNP(in.CNP) {
		return invalid("cnp", fmt.Sprintf("must be exactly %d digits", cnpLength))
	}
	switch in.IDType {
	case "", IDTypeIDCard, IDTypePassport, IDTypeDriversLicense:
	default:
		return invalid("id_type", fmt.Sprintf("unknown id type %q", in.IDType))
	}
	return nil
}

var (
	ErrClientNotFound    = fmt.Errorf("%w: client not found", ErrNotFound)
	ErrConsentAlreadySet = fmt.Errorf("%w: gdpr consent already recorded", ErrInvalidState)
)
