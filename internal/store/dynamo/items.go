package dynamo

import (
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// timeLayout is fixed width in UTC, so stored timestamps compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmtTime(*t)
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

// Money is stored as its decimal string so no float ever touches it.
func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

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

func valuesOrEmpty(s string) map[string]any {
	m := fromJSON[map[string]any](s)
	if m == nil {
		m = map[string]any{}
	}
	return m
}

type ProductItem struct {
	ID           int64  `dynamodbav:"id"`
	Name         string `dynamodbav:"name"`
	Code         string `dynamodbav:"code"`
	Description  string `dynamodbav:"description,omitempty"`
	Category     string `dynamodbav:"category"`
	InsurerName  string `dynamodbav:"insurer_name"`
	BasePremium  string `dynamodbav:"base_premium"`
	BaseRate     string `dynamodbav:"base_rate"`
	Active       bool   `dynamodbav:"active"`
	CustomFields string `dynamodbav:"custom_fields"`
	CreatedAt    string `dynamodbav:"created_at"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

func productItemFromCore(p core.Product) ProductItem {
	return ProductItem{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.Code,
		Description:  p.Description,
		Category:     string(p.Category),
		InsurerName:  p.InsurerName,
		BasePremium:  p.BasePremium.String(),
		BaseRate:     p.BaseRate.String(),
		Active:       p.Active,
		CustomFields: toJSON(p.CustomFields),
		CreatedAt:    fmtTime(p.CreatedAt),
		UpdatedAt:    fmtTime(p.UpdatedAt),
	}
}

func (i ProductItem) ToCore() core.Product {
	fields := fromJSON[[]core.CustomFieldDefinition](i.CustomFields)
	if fields == nil {
		fields = []core.CustomFieldDefinition{}
	}
	return core.Product{
		ID:           i.ID,
		Name:         i.Name,
		Code:         i.Code,
		Description:  i.Description,
		Category:     core.Category(i.Category),
		InsurerName:  i.InsurerName,
		BasePremium:  parseDec(i.BasePremium),
		BaseRate:     parseDec(i.BaseRate),
		Active:       i.Active,
		CustomFields: fields,
		CreatedAt:    parseTime(i.CreatedAt),
		UpdatedAt:    parseTime(i.UpdatedAt),
	}
}

type ClientItem struct {
	ID              int64  `dynamodbav:"id"`
	FirstName       string `dynamodbav:"first_name"`
	LastName        string `dynamodbav:"last_name"`
	Email           string `dynamodbav:"email"`
	Phone           string `dynamodbav:"phone"`
	Address         string `dynamodbav:"address,omitempty"`
	DateOfBirth     string `dynamodbav:"date_of_birth,omitempty"`
	Nationality     string `dynamodbav:"nationality,omitempty"`
	CNP             string `dynamodbav:"cnp"`
	IDType          string `dynamodbav:"id_type,omitempty"`
	IDNumber        string `dynamodbav:"id_number,omitempty"`
	IDExpiry        string `dynamodbav:"id_expiry,omitempty"`
	GDPRConsent     bool   `dynamodbav:"gdpr_consent"`
	GDPRConsentDate string `dynamodbav:"gdpr_consent_date,omitempty"`
	BrokerID        int64  `dynamodbav:"broker_id"`
	SearchText      string `dynamodbav:"search_text"` // lowercased names, email and CNP
	CreatedAt       string `dynamodbav:"created_at"`
	UpdatedAt       string `dynamodbav:"updated_at"`
}

func clientItemFromCore(c core.Client) ClientItem {
	return ClientItem{
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
		GDPRConsentDate: fmtTimePtr(c.GDPRConsentDate),
		BrokerID:        c.BrokerID,
		SearchText:      strings.ToLower(strings.Join([]string{c.FirstName, c.LastName, c.Email, c.CNP}, " ")),
		CreatedAt:       fmtTime(c.CreatedAt),
		UpdatedAt:       fmtTime(c.UpdatedAt),
	}
}

func (i ClientItem) ToCore() core.Client {
	return core.Client{
		ID:              i.ID,
		FirstName:       i.FirstName,
		LastName:        i.LastName,
		Email:           i.Email,
		Phone:           i.Phone,
		Address:         i.Address,
		DateOfBirth:     i.DateOfBirth,
		Nationality:     i.Nationality,
		CNP:             i.CNP,
		IDType:          core.IDType(i.IDType),
		IDNumber:        i.IDNumber,
		IDExpiry:        i.IDExpiry,
		GDPRConsent:     i.GDPRConsent,
		GDPRConsentDate: parseTimePtr(i.GDPRConsentDate),
		BrokerID:        i.BrokerID,
		CreatedAt:       parseTime(i.CreatedAt),
		UpdatedAt:       parseTime(i.UpdatedAt),
	}
}

type BrokerItem struct {
	ID             int64  `dynamodbav:"id"`
	FirstName      string `dynamodbav:"first_name"`
	LastName       string `dynamodbav:"last_name"`
	Email          string `dynamodbav:"email"`
	Phone          string `dynamodbav:"phone,omitempty"`
	LicenseNumber  string `dynamodbav:"license_number,omitempty"`
	CommissionRate string `dynamodbav:"commission_rate"`
	HireDate       string `dynamodbav:"hire_date,omitempty"`
	Active         bool   `dynamodbav:"active"`
	Role           string `dynamodbav:"role"`
	CreatedAt      string `dynamodbav:"created_at"`
	UpdatedAt      string `dynamodbav:"updated_at"`
}

func brokerItemFromCore(b core.Broker) BrokerItem {
	return BrokerItem{
		ID:             b.ID,
		FirstName:      b.FirstName,
		LastName:       b.LastName,
		Email:          b.Email,
		Phone:          b.Phone,
		LicenseNumber:  b.LicenseNumber,
		CommissionRate: b.CommissionRate.String(),
		HireDate:       b.HireDate,
		Active:         b.Active,
		Role:           string(b.Role),
		CreatedAt:      fmtTime(b.CreatedAt),
		UpdatedAt:      fmtTime(b.UpdatedAt),
	}
}

func (i BrokerItem) ToCore() core.Broker {
	return core.Broker{
		ID:             i.ID,
		FirstName:      i.FirstName,
		LastName:       i.LastName,
		Email:          i.Email,
		Phone:          i.Phone,
		LicenseNumber:  i.LicenseNumber,
		CommissionRate: parseDec(i.CommissionRate),
		HireDate:       i.HireDate,
		Active:         i.Active,
		Role:           core.Role(i.Role),
		CreatedAt:      parseTime(i.CreatedAt),
		UpdatedAt:      parseTime(i.UpdatedAt),
	}
}

type OfferItem struct {
	ID                int64  `dynamodbav:"id"`
	OfferNumber       string `dynamodbav:"offer_number"`
	ClientID          int64  `dynamodbav:"client_id"`
	ClientName        string `dynamodbav:"client_name"`
	ProductID         int64  `dynamodbav:"product_id"`
	ProductName       string `dynamodbav:"product_name"`
	InsurerName       string `dynamodbav:"insurer_name"`
	BrokerID          int64  `dynamodbav:"broker_id"`
	BrokerName        string `dynamodbav:"broker_name"`
	StartDate         string `dynamodbav:"start_date"`
	EndDate           string `dynamodbav:"end_date"`
	Premium           string `dynamodbav:"premium"`
	SumInsured        string `dynamodbav:"sum_insured"`
	Breakdown         string `dynamodbav:"breakdown"`
	Status            string `dynamodbav:"status"`
	GDPRConsent       bool   `dynamodbav:"gdpr_consent"`
	GDPRConsentDate   string `dynamodbav:"gdpr_consent_date,omitempty"`
	CustomFieldValues string `dynamodbav:"custom_field_values"`
	ExpiresAt         string `dynamodbav:"expires_at"`
	AcceptedAt        string `dynamodbav:"accepted_at,omitempty"`
	RejectedAt        string `dynamodbav:"rejected_at,omitempty"`
	CreatedAt         string `dynamodbav:"created_at"`
	UpdatedAt         string `dynamodbav:"updated_at"`
}

func offerItemFromCore(o core.Offer) OfferItem {
	return OfferItem{
		ID:                o.ID,
		OfferNumber:       o.OfferNumber,
		ClientID:          o.ClientID,
		ClientName:        o.ClientName,
		ProductID:         o.ProductID,
		ProductName:       o.ProductName,
		InsurerName:       o.InsurerName,
		BrokerID:          o.BrokerID,
		BrokerName:        o.BrokerName,
		StartDate:         fmtTime(o.StartDate),
		EndDate:           fmtTime(o.EndDate),
		Premium:           o.Premium.String(),
		SumInsured:        o.SumInsured.String(),
		Breakdown:         toJSON(o.Breakdown),
		Status:            string(o.Status),
		GDPRConsent:       o.GDPRConsent,
		GDPRConsentDate:   fmtTimePtr(o.GDPRConsentDate),
		CustomFieldValues: toJSON(o.CustomFieldValues),
		ExpiresAt:         fmtTime(o.ExpiresAt),
		AcceptedAt:        fmtTimePtr(o.AcceptedAt),
		RejectedAt:        fmtTimePtr(o.RejectedAt),
		CreatedAt:         fmtTime(o.CreatedAt),
		UpdatedAt:         fmtTime(o.UpdatedAt),
	}
}

func (i OfferItem) ToCore() core.Offer {
	return core.Offer{
		ID:                i.ID,
		OfferNumber:       i.OfferNumber,
		ClientID:          i.ClientID,
		ClientName:        i.ClientName,
		ProductID:         i.ProductID,
		ProductName:       i.ProductName,
		InsurerName:       i.InsurerName,
		BrokerID:          i.BrokerID,
		BrokerName:        i.BrokerName,
		StartDate:         parseTime(i.StartDate),
		EndDate:           parseTime(i.EndDate),
		Premium:           parseDec(i.Premium),
		SumInsured:        parseDec(i.SumInsured),
		Breakdown:         fromJSON[core.PremiumBreakdown](i.Breakdown),
		Status:            core.OfferStatus(i.Status),
		GDPRConsent:       i.GDPRConsent,
		GDPRConsentDate:   parseTimePtr(i.GDPRConsentDate),
		CustomFieldValues: valuesOrEmpty(i.CustomFieldValues),
		ExpiresAt:         parseTime(i.ExpiresAt),
		AcceptedAt:        parseTimePtr(i.AcceptedAt),
		RejectedAt:        parseTimePtr(i.RejectedAt),
		CreatedAt:         parseTime(i.CreatedAt),
		UpdatedAt:         parseTime(i.UpdatedAt),
	}
}

type PolicyItem struct {
	ID                 int64  `dynamodbav:"id"`
	PolicyNumber       string `dynamodbav:"policy_number"`
	OfferID            int64  `dynamodbav:"offer_id"`
	ClientID           int64  `dynamodbav:"client_id"`
	ClientName         string `dynamodbav:"client_name"`
	ProductID          int64  `dynamodbav:"product_id"`
	ProductName        string `dynamodbav:"product_name"`
	InsurerName        string `dynamodbav:"insurer_name"`
	BrokerID           int64  `dynamodbav:"broker_id"`
	BrokerName         string `dynamodbav:"broker_name"`
	StartDate          string `dynamodbav:"start_date"`
	EndDate            string `dynamodbav:"end_date"`
	Premium            string `dynamodbav:"premium"`
	SumInsured         string `dynamodbav:"sum_insured"`
	Status             string `dynamodbav:"status"`
	GDPRConsent        bool   `dynamodbav:"gdpr_consent"`
	GDPRConsentDate    string `dynamodbav:"gdpr_consent_date,omitempty"`
	PaymentMethod      string `dynamodbav:"payment_method"`
	PaymentStatus      string `dynamodbav:"payment_status"`
	ProofOfPayment     string `dynamodbav:"proof_of_payment,omitempty"`
	ValidatedBy        *int64 `dynamodbav:"validated_by,omitempty"`
	ValidatedAt        string `dynamodbav:"validated_at,omitempty"`
	CancellationReason string `dynamodbav:"cancellation_reason,omitempty"`
	CancelledAt        string `dynamodbav:"cancelled_at,omitempty"`
	CustomFieldValues  string `dynamodbav:"custom_field_values"`
	CreatedAt          string `dynamodbav:"created_at"`
	UpdatedAt          string `dynamodbav:"updated_at"`
}

func policyItemFromCore(p core.Policy) PolicyItem {
	return PolicyItem{
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
		StartDate:          fmtTime(p.StartDate),
		EndDate:            fmtTime(p.EndDate),
		Premium:            p.Premium.String(),
		SumInsured:         p.SumInsured.String(),
		Status:             string(p.Status),
		GDPRConsent:        p.GDPRConsent,
		GDPRConsentDate:    fmtTimePtr(p.GDPRConsentDate),
		PaymentMethod:      string(p.PaymentMethod),
		PaymentStatus:      string(p.PaymentStatus),
		ProofOfPayment:     p.ProofOfPayment,
		ValidatedBy:        p.ValidatedBy,
		ValidatedAt:        fmtTimePtr(p.ValidatedAt),
		CancellationReason: p.CancellationReason,
		CancelledAt:        fmtTimePtr(p.CancelledAt),
		CustomFieldValues:  toJSON(p.CustomFieldValues),
		CreatedAt:          fmtTime(p.CreatedAt),
		UpdatedAt:          fmtTime(p.UpdatedAt),
	}
}

func (i PolicyItem) ToCore() core.Policy {
	return core.Policy{
		ID:                 i.ID,
		PolicyNumber:       i.PolicyNumber,
		OfferID:            i.OfferID,
		ClientID:           i.ClientID,
		ClientName:         i.ClientName,
		ProductID:          i.ProductID,
		ProductName:        i.ProductName,
		InsurerName:        i.InsurerName,
		BrokerID:           i.BrokerID,
		BrokerName:         i.BrokerName,
		StartDate:          parseTime(i.StartDate),
		EndDate:            parseTime(i.EndDate),
		Premium:            parseDec(i.Premium),
		SumInsured:         parseDec(i.SumInsured),
		Status:             core.PolicyStatus(i.Status),
		GDPRConsent:        i.GDPRConsent,
		GDPRConsentDate:    parseTimePtr(i.GDPRConsentDate),
		PaymentMethod:      core.PaymentMethod(i.PaymentMethod),
		PaymentStatus:      core.PaymentStatus(i.PaymentStatus),
		ProofOfPayment:     i.ProofOfPayment,
		ValidatedBy:        i.ValidatedBy,
		ValidatedAt:        parseTimePtr(i.ValidatedAt),
		CancellationReason: i.CancellationReason,
		CancelledAt:        parseTimePtr(i.CancelledAt),
		CustomFieldValues:  valuesOrEmpty(i.CustomFieldValues),
		CreatedAt:          parseTime(i.CreatedAt),
		UpdatedAt:          parseTime(i.UpdatedAt),
	}
}

type CommissionItem struct {
	ID           int64  `dynamodbav:"id"`
	PolicyID     int64  `dynamodbav:"policy_id"`
	PolicyNumber string `dynamodbav:"policy_number"`
	BrokerID     int64  `dynamodbav:"broker_id"`
	BrokerName   string `dynamodbav:"broker_name"`
	Rate         string `dynamodbav:"rate"`
	Amount       string `dynamodbav:"amount"`
	Status       string `dynamodbav:"status"`
	PaymentDate  string `dynamodbav:"payment_date,omitempty"`
	CreatedAt    string `dynamodbav:"created_at"`
	UpdatedAt    string `dynamodbav:"updated_at"`
}

func commissionItemFromCore(c core.Commission) CommissionItem {
	return CommissionItem{
		ID:           c.ID,
		PolicyID:     c.PolicyID,
		PolicyNumber: c.PolicyNumber,
		BrokerID:     c.BrokerID,
		BrokerName:   c.BrokerName,
		Rate:         c.Rate.String(),
		Amount:       c.Amount.String(),
		Status:       string(c.Status),
		PaymentDate:  fmtTimePtr(c.PaymentDate),
		CreatedAt:    fmtTime(c.CreatedAt),
		UpdatedAt:    fmtTime(c.UpdatedAt),
	}
}

func (i CommissionItem) ToCore() core.Commission {
	return core.Commission{
		ID:           i.ID,
		PolicyID:     i.PolicyID,
		PolicyNumber: i.PolicyNumber,
		BrokerID:     i.BrokerID,
		BrokerName:   i.BrokerName,
		Rate:         parseDec(i.Rate),
		Amount:       parseDec(i.Amount),
		Status:       core.CommissionStatus(i.Status),
		PaymentDate:  parseTimePtr(i.PaymentDate),
		CreatedAt:    parseTime(i.CreatedAt),
		UpdatedAt:    parseTime(i.UpdatedAt),
	}
}

// ActivityItem is keyed by entity so a timeline is a single Query; the
// range key is the entry id, which grows with every append.
type ActivityItem struct {
	EntityKey    string `dynamodbav:"entity_key"`
	ID           int64  `dynamodbav:"id"`
	EntityType   string `dynamodbav:"entity_type"`
	EntityID     int64  `dynamodbav:"entity_id"`
	ActivityType string `dynamodbav:"activity_type"`
	Description  string `dynamodbav:"description"`
	PerformedBy  int64  `dynamodbav:"performed_by"`
	Metadata     string `dynamodbav:"metadata,omitempty"`
	CreatedAt    string `dynamodbav:"created_at"`
}

func entityKey(t core.EntityType, id int64) string {
	return string(t) + "#" + strconv.FormatInt(id, 10)
}

func activityItemFromCore(e core.ActivityLogEntry) ActivityItem {
	item := ActivityItem{
		EntityKey:    entityKey(e.EntityType, e.EntityID),
		ID:           e.ID,
		EntityType:   string(e.EntityType),
		EntityID:     e.EntityID,
		ActivityType: string(e.ActivityType),
		Description:  e.Description,
		PerformedBy:  e.PerformedBy,
		CreatedAt:    fmtTime(e.CreatedAt),
	}
	if len(e.Metadata) > 0 {
		item.Metadata = toJSON(e.Metadata)
	}
	return item
}

func (i ActivityItem) ToCore() core.ActivityLogEntry {
	return core.ActivityLogEntry{
		ID:           i.ID,
		EntityType:   core.EntityType(i.EntityType),
		EntityID:     i.EntityID,
		ActivityType: core.ActivityType(i.ActivityType),
		Description:  i.Description,
		PerformedBy:  i.PerformedBy,
		Metadata:     fromJSON[map[string]any](i.Metadata),
		CreatedAt:    parseTime(i.CreatedAt),
	}
}
