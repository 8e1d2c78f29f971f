package mongo

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

const (
	ColProducts    = "products"
	ColClients     = "clients"
	ColBrokers     = "brokers"
	ColOffers      = "offers"
	ColPolicies    = "policies"
	ColCommissions = "commissions"
	ColActivity    = "activity_log"
	ColCounters    = "counters"
)

// Money is kept as Decimal128 so sums and sorts stay exact on the server.
func toDec(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDec(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Nested core values with their own JSON rules (factor conditions, breakdowns,
// custom values) are stored as JSON text.
func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func fromJSON[T any](s string) T {
	var out T
	if s != "" {
		_ = json.Unmarshal([]byte(s), &out)
	}
	return out
}

func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type ProductDoc struct {
	ID           int64                `bson:"_id"`
	Name         string               `bson:"name"`
	Code         string               `bson:"code"` // unique index
	Description  string               `bson:"description,omitempty"`
	Category     string               `bson:"category"`
	InsurerName  string               `bson:"insurer_name"`
	BasePremium  primitive.Decimal128 `bson:"base_premium"`
	BaseRate     primitive.Decimal128 `bson:"base_rate"`
	Active       bool                 `bson:"active"`
	CustomFields string               `bson:"custom_fields"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func toProductDoc(p core.Product) ProductDoc {
	return ProductDoc{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.Code,
		Description:  p.Description,
		Category:     string(p.Category),
		InsurerName:  p.InsurerName,
		BasePremium:  toDec(p.BasePremium),
		BaseRate:     toDec(p.BaseRate),
		Active:       p.Active,
		CustomFields: toJSON(p.CustomFields),
		CreatedAt:    utc(p.CreatedAt),
		UpdatedAt:    utc(p.UpdatedAt),
	}
}

func fromProductDoc(d ProductDoc) core.Product {
	fields := fromJSON[[]core.CustomFieldDefinition](d.CustomFields)
	if fields == nil {
		fields = []core.CustomFieldDefinition{}
	}
	return core.Product{
		ID:           d.ID,
		Name:         d.Name,
		Code:         d.Code,
		Description:  d.Description,
		Category:     core.Category(d.Category),
		InsurerName:  d.InsurerName,
		BasePremium:  fromDec(d.BasePremium),
		BaseRate:     fromDec(d.BaseRate),
		Active:       d.Active,
		CustomFields: fields,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type ClientDoc struct {
	ID              int64      `bson:"_id"`
	FirstName       string     `bson:"first_name"`
	LastName        string     `bson:"last_name"`
	Email           string     `bson:"email"`
	Phone           string     `bson:"phone"`
	Address         string     `bson:"address,omitempty"`
	DateOfBirth     string     `bson:"date_of_birth,omitempty"`
	Nationality     string     `bson:"nationality,omitempty"`
	CNP             string     `bson:"cnp"`
	IDType          string     `bson:"id_type,omitempty"`
	IDNumber        string     `bson:"id_number,omitempty"`
	IDExpiry        string     `bson:"id_expiry,omitempty"`
	GDPRConsent     bool       `bson:"gdpr_consent"`
	GDPRConsentDate *time.Time `bson:"gdpr_consent_date,omitempty"`
	BrokerID        int64      `bson:"broker_id"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toClientDoc(c core.Client) ClientDoc {
	return ClientDoc{
		ID:              c.ID,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Email:           c.Email,
		Phone:           c.Phone,
		Address:         c.Address,
		DateOfBirth:     c.DateOfBirth,
		Nationality:     c.Nationality,
		CNP:             c.CNP,
		IDType:          string(c.IDType),
		IDNumber:        c.IDNumber,
		IDExpiry:        c.IDExpiry,
		GDPRConsent:     c.GDPRConsent,
		GDPRConsentDate: utcPtr(c.GDPRConsentDate),
		BrokerID:        c.BrokerID,
		CreatedAt:       utc(c.CreatedAt),
		UpdatedAt:       utc(c.UpdatedAt),
	}
}

func fromClientDoc(d ClientDoc) core.Client {
	return core.Client{
		ID:              d.ID,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		Address:         d.Address,
		DateOfBirth:     d.DateOfBirth,
		Nationality:     d.Nationality,
		CNP:             d.CNP,
		IDType:          core.IDType(d.IDType),
		IDNumber:        d.IDNumber,
		IDExpiry:        d.IDExpiry,
		GDPRConsent:     d.GDPRConsent,
		GDPRConsentDate: d.GDPRConsentDate,
		BrokerID:        d.BrokerID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type BrokerDoc struct {
	ID             int64                `bson:"_id"`
	FirstName      string               `bson:"first_name"`
	LastName       string               `bson:"last_name"`
	Email          string               `bson:"email"` // unique index
	Phone          string               `bson:"phone,omitempty"`
	LicenseNumber  string               `bson:"license_number,omitempty"`
	CommissionRate primitive.Decimal128 `bson:"commission_rate"`
	HireDate       string               `bson:"hire_date,omitempty"`
	Active         bool                 `bson:"active"`
	Role           string               `bson:"role"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

func toBrokerDoc(b core.Broker) BrokerDoc {
	return BrokerDoc{
		ID:             b.ID,
		FirstName:      b.FirstName,
		LastName:       b.LastName,
		Email:          b.Email,
		Phone:          b.Phone,
		LicenseNumber:  b.LicenseNumber,
		CommissionRate: toDec(b.CommissionRate),
		HireDate:       b.HireDate,
		Active:         b.Active,
		Role:           string(b.Role),
		CreatedAt:      utc(b.CreatedAt),
		UpdatedAt:      utc(b.UpdatedAt),
	}
}

func fromBrokerDoc(d BrokerDoc) core.Broker {
	return core.Broker{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		Phone:          d.Phone,
		LicenseNumber:  d.LicenseNumber,
		CommissionRate: fromDec(d.CommissionRate),
		HireDate:       d.HireDate,
		Active:         d.Active,
		Role:           core.Role(d.Role),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type OfferDoc struct {
	ID                int64                `bson:"_id"`
	OfferNumber       string               `bson:"offer_number"` // unique index
	ClientID          int64                `bson:"client_id"`
	ClientName        string               `bson:"client_name"`
	ProductID         int64                `bson:"product_id"`
	ProductName       string               `bson:"product_name"`
	InsurerName       string               `bson:"insurer_name"`
	BrokerID          int64                `bson:"broker_id"`
	BrokerName        string               `bson:"broker_name"`
	StartDate         time.Time            `bson:"start_date"`
	EndDate           time.Time            `bson:"end_date"`
	Premium           primitive.Decimal128 `bson:"premium"`
	SumInsured        primitive.Decimal128 `bson:"sum_insured"`
	Breakdown         string               `bson:"breakdown"`
	Status            string               `bson:"status"`
	GDPRConsent       bool                 `bson:"gdpr_consent"`
	GDPRConsentDate   *time.Time           `bson:"gdpr_consent_date,omitempty"`
	CustomFieldValues string               `bson:"custom_field_values"`
	ExpiresAt         time.Time            `bson:"expires_at"`
	AcceptedAt        *time.Time           `bson:"accepted_at,omitempty"`
	RejectedAt        *time.Time           `bson:"rejected_at,omitempty"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
}

func toOfferDoc(o core.Offer) OfferDoc {
	return OfferDoc{
		ID:                o.ID,
		OfferNumber:       o.OfferNumber,
		ClientID:          o.ClientID,
		ClientName:        o.ClientName,
		ProductID:         o.ProductID,
		ProductName:       o.ProductName,
		InsurerName:       o.InsurerName,
		BrokerID:          o.BrokerID,
		BrokerName:        o.BrokerName,
		StartDate:         utc(o.StartDate),
		EndDate:           utc(o.EndDate),
		Premium:           toDec(o.Premium),
		SumInsured:        toDec(o.SumInsured),
		Breakdown:         toJSON(o.Breakdown),
		Status:            string(o.Status),
		GDPRConsent:       o.GDPRConsent,
		GDPRConsentDate:   utcPtr(o.GDPRConsentDate),
		CustomFieldValues: toJSON(o.CustomFieldValues),
		ExpiresAt:         utc(o.ExpiresAt),
		AcceptedAt:        utcPtr(o.AcceptedAt),
		RejectedAt:        utcPtr(o.RejectedAt),
		CreatedAt:         utc(o.CreatedAt),
		UpdatedAt:         utc(o.UpdatedAt),
	}
}

func fromOfferDoc(d OfferDoc) core.Offer {
	return core.Offer{
		ID:                d.ID,
		OfferNumber:       d.OfferNumber,
		ClientID:          d.ClientID,
		ClientName:        d.ClientName,
		ProductID:         d.ProductID,
		ProductName:       d.ProductName,
		InsurerName:       d.InsurerName,
		BrokerID:          d.BrokerID,
		BrokerName:        d.BrokerName,
		StartDate:         d.StartDate,
		EndDate:           d.EndDate,
		Premium:           fromDec(d.Premium),
		SumInsured:        fromDec(d.SumInsured),
		Breakdown:         fromJSON[core.PremiumBreakdown](d.Breakdown),
		Status:            core.OfferStatus(d.Status),
		GDPRConsent:       d.GDPRConsent,
		GDPRConsentDate:   d.GDPRConsentDate,
		CustomFieldValues: valuesOrEmpty(d.CustomFieldValues),
		ExpiresAt:         d.ExpiresAt,
		AcceptedAt:        d.AcceptedAt,
		RejectedAt:        d.RejectedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type PolicyDoc struct {
	ID                 int64                `bson:"_id"`
	PolicyNumber       string               `bson:"policy_number"` // unique index
	OfferID            int64                `bson:"offer_id"`      // unique index
	ClientID           int64                `bson:"client_id"`
	ClientName         string               `bson:"client_name"`
	ProductID          int64                `bson:"product_id"`
	ProductName        string               `bson:"product_name"`
	InsurerName        string               `bson:"insurer_name"`
	BrokerID           int64                `bson:"broker_id"`
	BrokerName         string               `bson:"broker_name"`
	StartDate          time.Time            `bson:"start_date"`
	EndDate            time.Time            `bson:"end_date"`
	Premium            primitive.Decimal128 `bson:"premium"`
	SumInsured         primitive.Decimal128 `bson:"sum_insured"`
	Status             string               `bson:"status"`
	GDPRConsent        bool                 `bson:"gdpr_consent"`
	GDPRConsentDate    *time.Time           `bson:"gdpr_consent_date,omitempty"`
	PaymentMethod      string               `bson:"payment_method"`
	PaymentStatus      string               `bson:"payment_status"`
	ProofOfPayment     string               `bson:"proof_of_payment,omitempty"`
	ValidatedBy        *int64               `bson:"validated_by,omitempty"`
	ValidatedAt        *time.Time           `bson:"validated_at,omitempty"`
	CancellationReason string               `bson:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time           `bson:"cancelled_at,omitempty"`
	CustomFieldValues  string               `bson:"custom_field_values"`
	CreatedAt          time.Time            `bson:"created_at"`
	UpdatedAt          time.Time            `bson:"updated_at"`
}

func toPolicyDoc(p core.Policy) PolicyDoc {
	return PolicyDoc{
		ID:                 p.ID,
		PolicyNumber:       p.PolicyNumber,
		OfferID:            p.OfferID,
		ClientID:           p.ClientID,
		ClientName:         p.ClientName,
		ProductID:          p.ProductID,
		ProductName:        p.ProductName,
		InsurerName:        p.InsurerName,
		BrokerID:           p.BrokerID,
		BrokerName:         p.BrokerName,
		StartDate:          utc(p.StartDate),
		EndDate:            utc(p.EndDate),
		Premium:            toDec(p.Premium),
		SumInsured:         toDec(p.SumInsured),
		Status:             string(p.Status),
		GDPRConsent:        p.GDPRConsent,
		GDPRConsentDate:    utcPtr(p.GDPRConsentDate),
		PaymentMethod:      string(p.PaymentMethod),
		PaymentStatus:      string(p.PaymentStatus),
		ProofOfPayment:     p.ProofOfPayment,
		ValidatedBy:        p.ValidatedBy,
		ValidatedAt:        utcPtr(p.ValidatedAt),
		CancellationReason: p.CancellationReason,
		CancelledAt:        utcPtr(p.CancelledAt),
		CustomFieldValues:  toJSON(p.CustomFieldValues),
		CreatedAt:          utc(p.CreatedAt),
		UpdatedAt:          utc(p.UpdatedAt),
	}
}

func fromPolicyDoc(d PolicyDoc) core.Policy {
	return core.Policy{
		ID:                 d.ID,
		PolicyNumber:       d.PolicyNumber,
		OfferID:            d.OfferID,
		ClientID:           d.ClientID,
		ClientName:         d.ClientName,
		ProductID:          d.ProductID,
		ProductName:        d.ProductName,
		InsurerName:        d.InsurerName,
		BrokerID:           d.BrokerID,
		BrokerName:         d.BrokerName,
		StartDate:          d.StartDate,
		EndDate:            d.EndDate,
		Premium:            fromDec(d.Premium),
		SumInsured:         fromDec(d.SumInsured),
		Status:             core.PolicyStatus(d.Status),
		GDPRConsent:        d.GDPRConsent,
		GDPRConsentDate:    d.GDPRConsentDate,
		PaymentMethod:      core.PaymentMethod(d.PaymentMethod),
		PaymentStatus:      core.PaymentStatus(d.PaymentStatus),
		ProofOfPayment:     d.ProofOfPayment,
		ValidatedBy:        d.ValidatedBy,
		ValidatedAt:        d.ValidatedAt,
		CancellationReason: d.CancellationReason,
		CancelledAt:        d.CancelledAt,
		CustomFieldValues:  valuesOrEmpty(d.CustomFieldValues),
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type CommissionDoc struct {
	ID           int64                `bson:"_id"`
	PolicyID     int64                `bson:"policy_id"`
	PolicyNumber string               `bson:"policy_number"`
	BrokerID     int64                `bson:"broker_id"`
	BrokerName   string               `bson:"broker_name"`
	Rate         primitive.Decimal128 `bson:"rate"`
	Amount       primitive.Decimal128 `bson:"amount"`
	Status       string               `bson:"status"`
	PaymentDate  *time.Time           `bson:"payment_date,omitempty"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func toCommissionDoc(c core.Commission) CommissionDoc {
	return CommissionDoc{
		ID:           c.ID,
		PolicyID:     c.PolicyID,
		PolicyNumber: c.PolicyNumber,
		BrokerID:     c.BrokerID,
		BrokerName:   c.BrokerName,
		Rate:         toDec(c.Rate),
		Amount:       toDec(c.Amount),
		Status:       string(c.Status),
		PaymentDate:  utcPtr(c.PaymentDate),
		CreatedAt:    utc(c.CreatedAt),
		UpdatedAt:    utc(c.UpdatedAt),
	}
}

func fromCommissionDoc(d CommissionDoc) core.Commission {
	return core.Commission{
		ID:           d.ID,
		PolicyID:     d.PolicyID,
		PolicyNumber: d.PolicyNumber,
		BrokerID:     d.BrokerID,
		BrokerName:   d.BrokerName,
		Rate:         fromDec(d.Rate),
		Amount:       fromDec(d.Amount),
		Status:       core.CommissionStatus(d.Status),
		PaymentDate:  d.PaymentDate,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type ActivityDoc struct {
	ID           int64     `bson:"_id"`
	EntityType   string    `bson:"entity_type"`
	EntityID     int64     `bson:"entity_id"`
	ActivityType string    `bson:"activity_type"`
	Description  string    `bson:"description"`
	PerformedBy  int64     `bson:"performed_by"`
	Metadata     string    `bson:"metadata,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

func fromActivityDoc(d ActivityDoc) core.ActivityLogEntry {
	return core.ActivityLogEntry{
		ID:           d.ID,
		EntityType:   core.EntityType(d.EntityType),
		EntityID:     d.EntityID,
		ActivityType: core.ActivityType(d.ActivityType),
		Description:  d.Description,
		PerformedBy:  d.PerformedBy,
		Metadata:     fromJSON[map[string]any](d.Metadata),
		CreatedAt:    d.CreatedAt,
	}
}

func valuesOrEmpty(s string) map[string]any {
	m := fromJSON[map[string]any](s)
	if m == nil {
		return map[string]any{}
	}
	return m
}
