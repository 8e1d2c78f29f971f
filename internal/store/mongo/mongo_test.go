package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

var t0 = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

func TestDecimalRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "250.00", "0.1234", "-17.5", "1234567890.12"} {
		d := decimal.RequireFromString(s)
		got := fromDec(toDec(d))
		assert.True(t, d.Equal(got), "%s came back as %s", s, got)
	}
}

func TestOfferDocRoundTripThroughBSON(t *testing.T) {
	rate := decimal.RequireFromString("1.25")
	o := core.Offer{
		ID:          7,
		OfferNumber: "OFF-2025-00001",
		ClientID:    3,
		BrokerID:    9,
		StartDate:   t0,
		EndDate:     t0.AddDate(1, 0, 0),
		Premium:     decimal.RequireFromString("250.00"),
		SumInsured:  decimal.NewFromInt(10000),
		Breakdown: core.PremiumBreakdown{
			BasePremium:  decimal.RequireFromString("200.00"),
			Factors:      []core.PremiumFactor{{Name: "Age", Multiplier: rate, Reason: "65+"}},
			FinalPremium: decimal.RequireFromString("250.00"),
		},
		Status:            core.OfferStatusPending,
		CustomFieldValues: map[string]any{"smoker": true, "height": 180.0},
		ExpiresAt:         t0.AddDate(0, 0, 30),
		CreatedAt:         t0,
		UpdatedAt:         t0,
	}

	raw, err := bson.Marshal(toOfferDoc(o))
	require.NoError(t, err)
	var doc OfferDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := fromOfferDoc(doc)

	assert.Equal(t, o.ID, got.ID)
	assert.True(t, o.Premium.Equal(got.Premium))
	assert.True(t, o.Breakdown.Factors[0].Multiplier.Equal(got.Breakdown.Factors[0].Multiplier))
	assert.Equal(t, map[string]any{"smoker": true, "height": 180.0}, got.CustomFieldValues)
	assert.True(t, o.ExpiresAt.Equal(got.ExpiresAt))
	assert.Nil(t, got.AcceptedAt)
}

func TestProductDocKeepsEmptyFieldList(t *testing.T) {
	got := fromProductDoc(toProductDoc(core.Product{Code: "LIFE-1", BaseRate: decimal.RequireFromString("0.02")}))
	assert.NotNil(t, got.CustomFields)
	assert.Empty(t, got.CustomFields)
	assert.Equal(t, "0.02", got.BaseRate.String())
}

func TestOfferFilterUsesEffectiveStatus(t *testing.T) {
	broker := int64(4)

	pending := offerFilter(core.OfferFilter{BrokerID: &broker, Status: core.OfferStatusPending, AsOf: t0})
	assert.Equal(t, bson.M{
		"broker_id":  int64(4),
		"status":     "PENDING",
		"expires_at": bson.M{"$gte": t0},
	}, pending)

	expired := offerFilter(core.OfferFilter{Status: core.OfferStatusExpired, AsOf: t0})
	assert.Equal(t, bson.A{
		bson.M{"status": "EXPIRED"},
		bson.M{"status": "PENDING", "expires_at": bson.M{"$lt": t0}},
	}, expired["$or"])

	stored := offerFilter(core.OfferFilter{Status: core.OfferStatusPending})
	assert.Equal(t, bson.M{"status": "PENDING"}, stored)
}

func TestPolicyFilter(t *testing.T) {
	m := policyFilter(core.PolicyFilter{ClientID: 2, PaymentStatus: core.PaymentStatusValidated, Status: core.PolicyStatusActive, AsOf: t0})
	assert.Equal(t, bson.M{
		"client_id":      int64(2),
		"payment_status": "VALIDATED",
		"status":         "ACTIVE",
		"end_date":       bson.M{"$gte": t0},
	}, m)

	assert.Empty(t, policyFilter(core.PolicyFilter{}))
}

func TestClientFilterEscapesSearch(t *testing.T) {
	m := clientFilter(core.ClientFilter{Search: "  a.b+c "})
	or, ok := m["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 4)
	assert.Equal(t, bson.M{"first_name": primitive.Regex{Pattern: `a\.b\+c`, Options: "i"}}, or[0])
}

func TestMutablePolicyFieldsSkipIdentity(t *testing.T) {
	by := int64(1)
	set := mutablePolicyFields(toPolicyDoc(core.Policy{
		ID:           5,
		PolicyNumber: "POL-2025-00001",
		OfferID:      7,
		Status:       core.PolicyStatusActive,
		ValidatedBy:  &by,
		CreatedAt:    t0,
	}))
	for _, key := range []string{"_id", "policy_number", "offer_id", "created_at"} {
		assert.NotContains(t, set, key)
	}
	assert.Equal(t, "ACTIVE", set["status"])
	assert.Equal(t, int64(1), set["validated_by"])
	assert.NotContains(t, set, "cancelled_at")
}
