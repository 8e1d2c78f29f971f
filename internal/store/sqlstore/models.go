package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type productRecord struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	Name         string          `gorm:"size:200;not null"`
	Code         string          `gorm:"size:64;uniqueIndex;not null"`
	Description  string          `gorm:"type:text"`
	Category     string          `gorm:"size:32;index"`
	InsurerName  string          `gorm:"size:200"`
	BasePremium  decimal.Decimal `gorm:"type:decimal(14,2)"`
	BaseRate     decimal.Decimal `gorm:"type:decimal(12,6)"`
	Active       bool
	CustomFields datatypes.JSONType[[]core.CustomFieldDefinition]
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (productRecord) TableName() string { return "products" }

func productToRecord(p core.Product) productRecord {
	return productRecord{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.Code,
		Description:  p.Description,
		Category:     string(p.Category),
		InsurerName:  p.InsurerName,
		BasePremium:  p.BasePremium,
		BaseRate:     p.BaseRate,
		Active:       p.Active,
		CustomFields: datatypes.NewJSONType(p.CustomFields),
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func (r productRecord) toCore() core.Product {
	fields := r.CustomFields.Data()
	if fields == nil {
		fields = []core.CustomFieldDefinition{}
	}
	return core.Product{
		ID:           r.ID,
		Name:         r.Name,
		Code:         r.Code,
		Description:  r.Description,
		Category:     core.Category(r.Category),
		InsurerName:  r.InsurerName,
		BasePremium:  r.BasePremium,
		BaseRate:     r.BaseRate,
		Active:       r.Active,
		CustomFields: fields,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type clientRecord struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	FirstName       string `gorm:"size:100;not null"`
	LastName        string `gorm:"size:100;not null"`
	Email           string `gorm:"size:200;index"`
	Phone           string `gorm:"size:50"`
	Address         string `gorm:"size:500"`
	DateOfBirth     string `gorm:"size:10"`
	Nationality     string `gorm:"size:100"`
	CNP             string `gorm:"size:13;index"`
	IDType          string `gorm:"size:32"`
	IDNumber        string `gorm:"size:64"`
	IDExpiry        string `gorm:"size:10"`
	GDPRConsent     bool
	GDPRConsentDate *time.Time
	BrokerID        int64 `gorm:"index"`
	CreatedAt       time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime:false"`
}

func (clientRecord) TableName() string { return "clients" }

func clientToRecord(c core.Client) clientRecord {
	return clientRecord{
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
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
	}
}

func (r clientRecord) toCore() core.Client {
	return core.Client{
		ID:              r.ID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           r.Phone,
		Address:         r.Address,
		DateOfBirth:     r.DateOfBirth,
		Nationality:     r.Nationality,
		CNP:             r.CNP,
		IDType:          core.IDType(r.IDType),
		IDNumber:        r.IDNumber,
		IDExpiry:        r.IDExpiry,
		GDPRConsent:     r.GDPRConsent,
		GDPRConsentDate: r.GDPRConsentDate,
		BrokerID:        r.BrokerID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type brokerRecord struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	FirstName      string          `gorm:"size:100;not null"`
	LastName       string          `gorm:"size:100;not null"`
	Email          string          `gorm:"size:200;uniqueIndex;not null"`
	Phone          string          `gorm:"size:50"`
	LicenseNumber  string          `gorm:"size:64"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(6,4)"`
	HireDate       string          `gorm:"size:10"`
	Active         bool
	Role           string `gorm:"size:32"`
	CreatedAt      time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false"`
}

func (brokerRecord) TableName() string { return "brokers" }

func brokerToRecord(b core.Broker) brokerRecord {
	return brokerRecord{
		ID:             b.ID,
		FirstName:      b.FirstName,
		LastName:       b.LastName,
		Email:          b.Email,
		Phone:          b.Phone,
		LicenseNumber:  b.LicenseNumber,
		CommissionRate: b.CommissionRate,
		HireDate:       b.HireDate,
		Active:         b.Active,
		Role:           string(b.Role),
		CreatedAt:      b.CreatedAt.UTC(),
		UpdatedAt:      b.UpdatedAt.UTC(),
	}
}

func (r brokerRecord) toCore() core.Broker {
	return core.Broker{
		ID:             r.ID,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		LicenseNumber:  r.LicenseNumber,
		CommissionRate: r.CommissionRate,
		HireDate:       r.HireDate,
		Active:         r.Active,
		Role:           core.Role(r.Role),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type offerRecord struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	OfferNumber       string `gorm:"size:32;uniqueIndex"`
	ClientID          int64  `gorm:"index"`
	ClientName        string `gorm:"size:200"`
	ProductID         int64
	ProductName       string `gorm:"size:200"`
	InsurerName       string `gorm:"size:200"`
	BrokerID          int64  `gorm:"index"`
	BrokerName        string `gorm:"size:200"`
	StartDate         time.Time
	EndDate           time.Time
	Premium           decimal.Decimal `gorm:"type:decimal(14,2)"`
	SumInsured        decimal.Decimal `gorm:"type:decimal(16,2)"`
	Breakdown         datatypes.JSONType[core.PremiumBreakdown]
	Status            string `gorm:"size:16;index"`
	GDPRConsent       bool
	GDPRConsentDate   *time.Time
	CustomFieldValues datatypes.JSONMap
	ExpiresAt         time.Time `gorm:"index"`
	AcceptedAt        *time.Time
	RejectedAt        *time.Time
	CreatedAt         time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false"`
}

func (offerRecord) TableName() string { return "offers" }

func offerToRecord(o core.Offer) offerRecord {
	return offerRecord{
		ID:                o.ID,
		OfferNumber:       o.OfferNumber,
		ClientID:          o.ClientID,
		ClientName:        o.ClientName,
		ProductID:         o.ProductID,
		ProductName:       o.ProductName,
		InsurerName:       o.InsurerName,
		BrokerID:          o.BrokerID,
		BrokerName:        o.BrokerName,
		StartDate:         o.StartDate.UTC(),
		EndDate:           o.EndDate.UTC(),
		Premium:           o.Premium,
		SumInsured:        o.SumInsured,
		Breakdown:         datatypes.NewJSONType(o.Breakdown),
		Status:            string(o.Status),
		GDPRConsent:       o.GDPRConsent,
		GDPRConsentDate:   utcPtr(o.GDPRConsentDate),
		CustomFieldValues: datatypes.JSONMap(o.CustomFieldValues),
		ExpiresAt:         o.ExpiresAt.UTC(),
		AcceptedAt:        utcPtr(o.AcceptedAt),
		RejectedAt:        utcPtr(o.RejectedAt),
		CreatedAt:         o.CreatedAt.UTC(),
		UpdatedAt:         o.UpdatedAt.UTC(),
	}
}

func (r offerRecord) toCore() core.Offer {
	return core.Offer{
		ID:                r.ID,
		OfferNumber:       r.OfferNumber,
		ClientID:          r.ClientID,
		ClientName:        r.ClientName,
		ProductID:         r.ProductID,
		ProductName:       r.ProductName,
		InsurerName:       r.InsurerName,
		BrokerID:          r.BrokerID,
		BrokerName:        r.BrokerName,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		Premium:           r.Premium,
		SumInsured:        r.SumInsured,
		Breakdown:         r.Breakdown.Data(),
		Status:            core.OfferStatus(r.Status),
		GDPRConsent:       r.GDPRConsent,
		GDPRConsentDate:   r.GDPRConsentDate,
		CustomFieldValues: valuesOrEmpty(r.CustomFieldValues),
		ExpiresAt:         r.ExpiresAt,
		AcceptedAt:        r.AcceptedAt,
		RejectedAt:        r.RejectedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type policyRecord struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	PolicyNumber       string `gorm:"size:32;uniqueIndex"`
	OfferID            int64  `gorm:"uniqueIndex"`
	ClientID           int64  `gorm:"index"`
	ClientName         string `gorm:"size:200"`
	ProductID          int64
	ProductName        string `gorm:"size:200"`
	InsurerName        string `gorm:"size:200"`
	BrokerID           int64  `gorm:"index"`
	BrokerName         string `gorm:"size:200"`
	StartDate          time.Time
	EndDate            time.Time       `gorm:"index"`
	Premium            decimal.Decimal `gorm:"type:decimal(14,2)"`
	SumInsured         decimal.Decimal `gorm:"type:decimal(16,2)"`
	Status             string          `gorm:"size:32;index"`
	GDPRConsent        bool
	GDPRConsentDate    *time.Time
	PaymentMethod      string `gorm:"size:32"`
	PaymentStatus      string `gorm:"size:16"`
	ProofOfPayment     string `gorm:"size:500"`
	ValidatedBy        *int64
	ValidatedAt        *time.Time
	CancellationReason string `gorm:"type:text"`
	CancelledAt        *time.Time
	CustomFieldValues  datatypes.JSONMap
	CreatedAt          time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime:false"`
}

func (policyRecord) TableName() string { return "policies" }

func policyToRecord(p core.Policy) policyRecord {
	return policyRecord{
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
		StartDate:          p.StartDate.UTC(),
		EndDate:            p.EndDate.UTC(),
		Premium:            p.Premium,
		SumInsured:         p.SumInsured,
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
		CustomFieldValues:  datatypes.JSONMap(p.CustomFieldValues),
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

func (r policyRecord) toCore() core.Policy {
	return core.Policy{
		ID:                 r.ID,
		PolicyNumber:       r.PolicyNumber,
		OfferID:            r.OfferID,
		ClientID:           r.ClientID,
		ClientName:         r.ClientName,
		ProductID:          r.ProductID,
		ProductName:        r.ProductName,
		InsurerName:        r.InsurerName,
		BrokerID:           r.BrokerID,
		BrokerName:         r.BrokerName,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		Premium:            r.Premium,
		SumInsured:         r.SumInsured,
		Status:             core.PolicyStatus(r.Status),
		GDPRConsent:        r.GDPRConsent,
		GDPRConsentDate:    r.GDPRConsentDate,
		PaymentMethod:      core.PaymentMethod(r.PaymentMethod),
		PaymentStatus:      core.PaymentStatus(r.PaymentStatus),
		ProofOfPayment:     r.ProofOfPayment,
		ValidatedBy:        r.ValidatedBy,
		ValidatedAt:        r.ValidatedAt,
		CancellationReason: r.CancellationReason,
		CancelledAt:        r.CancelledAt,
		CustomFieldValues:  valuesOrEmpty(r.CustomFieldValues),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

type commissionRecord struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	PolicyID     int64           `gorm:"index"`
	PolicyNumber string          `gorm:"size:32"`
	BrokerID     int64           `gorm:"index"`
	BrokerName   string          `gorm:"size:200"`
	Rate         decimal.Decimal `gorm:"type:decimal(6,4)"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2)"`
	Status       string          `gorm:"size:16;index"`
	PaymentDate  *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (commissionRecord) TableName() string { return "commissions" }

func commissionToRecord(c core.Commission) commissionRecord {
	return commissionRecord{
		ID:           c.ID,
		PolicyID:     c.PolicyID,
		PolicyNumber: c.PolicyNumber,
		BrokerID:     c.BrokerID,
		BrokerName:   c.BrokerName,
		Rate:         c.Rate,
		Amount:       c.Amount,
		Status:       string(c.Status),
		PaymentDate:  utcPtr(c.PaymentDate),
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

func (r commissionRecord) toCore() core.Commission {
	return core.Commission{
		ID:           r.ID,
		PolicyID:     r.PolicyID,
		PolicyNumber: r.PolicyNumber,
		BrokerID:     r.BrokerID,
		BrokerName:   r.BrokerName,
		Rate:         r.Rate,
		Amount:       r.Amount,
		Status:       core.CommissionStatus(r.Status),
		PaymentDate:  r.PaymentDate,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type activityRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	EntityType   string `gorm:"size:16;index:idx_activity_entity,priority:1"`
	EntityID     int64  `gorm:"index:idx_activity_entity,priority:2"`
	ActivityType string `gorm:"size:32"`
	Description  string `gorm:"type:text"`
	PerformedBy  int64
	Metadata     datatypes.JSONMap
	CreatedAt    time.Time `gorm:"index"`
}

func (activityRecord) TableName() string { return "activity_logs" }

func (r activityRecord) toCore() core.ActivityLogEntry {
	return core.ActivityLogEntry{
		ID:           r.ID,
		EntityType:   core.EntityType(r.EntityType),
		EntityID:     r.EntityID,
		ActivityType: core.ActivityType(r.ActivityType),
		Description:  r.Description,
		PerformedBy:  r.PerformedBy,
		Metadata:     plainValues(r.Metadata),
		CreatedAt:    r.CreatedAt,
	}
}

type counterRecord struct {
	Name string `gorm:"primaryKey;size:64"`
	Seq  int64
}

func (counterRecord) TableName() string { return "counters" }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func valuesOrEmpty(m datatypes.JSONMap) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return plainValues(m)
}

// plainValues undoes the json.Number decoding of JSON columns so numbers read
// back as float64, the same as the mongo and dynamo stores return them.
func plainValues(m datatypes.JSONMap) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

type jsonNumber interface {
	Float64() (float64, error)
	String() string
}

func plainValue(v any) any {
	switch x := v.(type) {
	case jsonNumber:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plainValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	}
	return v
}
