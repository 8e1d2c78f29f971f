package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

var t0 = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeOffer(number string, brokerID int64, expiresAt time.Time) *core.Offer {
	return &core.Offer{
		OfferNumber: number,
		ClientID:    1,
		ClientName:  "Ana Pop",
		ProductID:   1,
		ProductName: "Auto RCA",
		InsurerName: "Allianz",
		BrokerID:    brokerID,
		BrokerName:  "Ion Ionescu",
		StartDate:   t0.AddDate(0, 0, 1),
		EndDate:     t0.AddDate(1, 0, 1),
		Premium:     decimal.RequireFromString("1234.50"),
		SumInsured:  decimal.NewFromInt(100000),
		Breakdown: core.PremiumBreakdown{
			BasePremium:  decimal.RequireFromString("1234.50"),
			Factors:      []core.PremiumFactor{},
			FinalPremium: decimal.RequireFromString("1234.50"),
		},
		Status:            core.OfferStatusPending,
		GDPRConsent:       true,
		CustomFieldValues: map[string]any{"vehicle_age": float64(3)},
		ExpiresAt:         expiresAt,
		CreatedAt:         t0,
		UpdatedAt:         t0,
	}
}

func makeIssuance(o *core.Offer, number string) core.Issuance {
	p := core.NewPolicyFromOffer(*o, core.CheckoutInput{PaymentMethod: core.PaymentCash}, number, t0)
	c := core.NewCommission(p, core.Broker{ID: o.BrokerID, FirstName: "Ion", LastName: "Ionescu", CommissionRate: decimal.RequireFromString("0.10")}, t0)
	return core.Issuance{OfferID: o.ID, AcceptedAt: t0, Policy: &p, Commission: &c}
}

func TestCountersAreMonotonicPerName(t *testing.T) {
	s := openTestStore(t)
	seq := s.Repositories().Sequences
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.NextSequence(ctx, "offer-2025")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := seq.NextSequence(ctx, "policy-2025")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestCounterFirstUseUnderConcurrency(t *testing.T) {
	s := openTestStore(t)
	seq := s.Repositories().Sequences
	ctx := context.Background()

	const callers = 10
	got := make([]int64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = seq.NextSequence(ctx, "policy-2026")
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for i := range got {
		require.NoError(t, errs[i])
		seen[got[i]] = true
	}
	assert.Len(t, seen, callers)
	for want := int64(1); want <= callers; want++ {
		assert.True(t, seen[want], "missing %d", want)
	}
}

func TestOfferRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.Repositories().Offers
	ctx := context.Background()

	o := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	require.NoError(t, repo.Create(ctx, o))
	require.NotZero(t, o.ID)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OfferNumber, got.OfferNumber)
	assert.True(t, got.Premium.Equal(o.Premium), "premium %s", got.Premium)
	assert.True(t, got.Breakdown.FinalPremium.Equal(o.Premium))
	assert.Equal(t, float64(3), got.CustomFieldValues["vehicle_age"])
	assert.True(t, got.ExpiresAt.Equal(o.ExpiresAt))

	_, err = repo.Get(ctx, o.ID+100)
	assert.ErrorIs(t, err, core.ErrNotFound)

	dup := makeOffer("OFF-2025-00001", 7, t0)
	assert.ErrorIs(t, repo.Create(ctx, dup), core.ErrConflict)
}

func TestOfferTransitionIsCompareAndSet(t *testing.T) {
	s := openTestStore(t)
	repo := s.Repositories().Offers
	ctx := context.Background()

	o := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	require.NoError(t, repo.Create(ctx, o))

	at := t0.Add(time.Hour)
	require.NoError(t, repo.TransitionStatus(ctx, o.ID, core.OfferStatusPending, core.OfferStatusRejected, at))

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OfferStatusRejected, got.Status)
	require.NotNil(t, got.RejectedAt)
	assert.True(t, got.RejectedAt.Equal(at))

	err = repo.TransitionStatus(ctx, o.ID, core.OfferStatusPending, core.OfferStatusAccepted, at)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	err = repo.TransitionStatus(ctx, 999, core.OfferStatusPending, core.OfferStatusAccepted, at)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestOfferListMatchesEffectiveStatus(t *testing.T) {
	s := openTestStore(t)
	repo := s.Repositories().Offers
	ctx := context.Background()

	live := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	stale := makeOffer("OFF-2025-00002", 7, t0.AddDate(0, 0, -1))
	other := makeOffer("OFF-2025-00003", 8, t0.AddDate(0, 0, 30))
	for _, o := range []*core.Offer{live, stale, other} {
		require.NoError(t, repo.Create(ctx, o))
	}

	broker := int64(7)
	pending, err := repo.List(ctx, core.OfferFilter{BrokerID: &broker, Status: core.OfferStatusPending, AsOf: t0})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, live.ID, pending[0].ID)

	expired, err := repo.List(ctx, core.OfferFilter{Status: core.OfferStatusExpired, AsOf: t0})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)

	n, err := repo.ExpireOffers(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OfferStatusExpired, got.Status)
}

func TestIssuePolicyWritesAllOrNothing(t *testing.T) {
	s := openTestStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	o := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	require.NoError(t, repos.Offers.Create(ctx, o))

	in := makeIssuance(o, "POL-2025-00001")
	require.NoError(t, repos.Issuer.IssuePolicy(ctx, in))
	require.NotZero(t, in.Policy.ID)
	require.NotZero(t, in.Commission.ID)
	assert.Equal(t, in.Policy.ID, in.Commission.PolicyID)

	accepted, err := repos.Offers.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OfferStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	p, err := repos.Policies.GetByNumber(ctx, "POL-2025-00001")
	require.NoError(t, err)
	assert.Equal(t, o.ID, p.OfferID)
	assert.Equal(t, core.PolicyStatusAwaitingPayment, p.Status)

	comms, err := repos.Commissions.List(ctx, core.CommissionFilter{PolicyID: p.ID})
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Equal(t, "123.45", comms[0].Amount.StringFixed(2))

	// second issuance for the same offer loses the compare-and-set and writes nothing
	again := makeIssuance(o, "POL-2025-00002")
	err = repos.Issuer.IssuePolicy(ctx, again)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	_, err = repos.Policies.GetByNumber(ctx, "POL-2025-00002")
	assert.ErrorIs(t, err, core.ErrNotFound)
	all, err := repos.Commissions.List(ctx, core.CommissionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoredValuesKeepTheirTypesThroughIssuance(t *testing.T) {
	s := openTestStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	o := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	o.CustomFieldValues = map[string]any{
		"vehicle_age": float64(3),
		"smoker":      true,
		"tier":        "Gold",
		"drivers":     []any{float64(25), float64(41)},
	}
	require.NoError(t, repos.Offers.Create(ctx, o))

	stored, err := repos.Offers.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.CustomFieldValues, stored.CustomFieldValues)

	in := makeIssuance(&stored, "POL-2025-00001")
	require.NoError(t, repos.Issuer.IssuePolicy(ctx, in))

	p, err := repos.Policies.Get(ctx, in.Policy.ID)
	require.NoError(t, err)
	assert.Equal(t, o.CustomFieldValues, p.CustomFieldValues)
	assert.IsType(t, float64(0), p.CustomFieldValues["vehicle_age"])
}

func TestIssuePolicyRollsBackOnInsertFailure(t *testing.T) {
	s := openTestStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	first := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	second := makeOffer("OFF-2025-00002", 7, t0.AddDate(0, 0, 30))
	require.NoError(t, repos.Offers.Create(ctx, first))
	require.NoError(t, repos.Offers.Create(ctx, second))
	require.NoError(t, repos.Issuer.IssuePolicy(ctx, makeIssuance(first, "POL-2025-00001")))

	// reusing a policy number fails after the offer row was claimed
	err := repos.Issuer.IssuePolicy(ctx, makeIssuance(second, "POL-2025-00001"))
	require.Error(t, err)

	got, err := repos.Offers.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OfferStatusPending, got.Status)
	assert.Nil(t, got.AcceptedAt)
}

func TestConcurrentIssuanceYieldsOnePolicy(t *testing.T) {
	s := openTestStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	o := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	require.NoError(t, repos.Offers.Create(ctx, o))

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := makeIssuance(o, core.PolicyNumber(2025, int64(i+1)))
			errs[i] = repos.Issuer.IssuePolicy(ctx, in)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, core.ErrInvalidState):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)

	_, total, err := repos.Policies.List(ctx, core.PolicyFilter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPolicyUpdateIfGuardsState(t *testing.T) {
	s := openTestStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	o := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	require.NoError(t, repos.Offers.Create(ctx, o))
	in := makeIssuance(o, "POL-2025-00001")
	require.NoError(t, repos.Issuer.IssuePolicy(ctx, in))

	p := *in.Policy
	expect := p.State()
	p.Status = core.PolicyStatusCancelled
	p.CancellationReason = "client request"
	p.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, repos.Policies.UpdateIf(ctx, p, expect))

	got, err := repos.Policies.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PolicyStatusCancelled, got.Status)
	assert.Equal(t, "client request", got.CancellationReason)
	assert.True(t, got.CreatedAt.Equal(t0))

	// stale expectation
	p.Status = core.PolicyStatusActive
	err = repos.Policies.UpdateIf(ctx, p, expect)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestPolicyListPaginatesAndScopes(t *testing.T) {
	s := openTestStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		broker := int64(7)
		if i%2 == 0 {
			broker = 8
		}
		o := makeOffer(core.OfferNumber(2025, int64(i)), broker, t0.AddDate(0, 0, 30))
		o.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repos.Offers.Create(ctx, o))
		in := makeIssuance(o, core.PolicyNumber(2025, int64(i)))
		in.Policy.CreatedAt = o.CreatedAt
		require.NoError(t, repos.Issuer.IssuePolicy(ctx, in))
	}

	broker := int64(7)
	page, total, err := repos.Policies.List(ctx, core.PolicyFilter{BrokerID: &broker}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "POL-2025-00005", page[0].PolicyNumber)
	assert.Equal(t, "POL-2025-00003", page[1].PolicyNumber)

	rest, _, err := repos.Policies.List(ctx, core.PolicyFilter{BrokerID: &broker}, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "POL-2025-00001", rest[0].PolicyNumber)
}

func TestCommissionTransition(t *testing.T) {
	s := openTestStore(t)
	repos := s.Repositories()
	ctx := context.Background()

	o := makeOffer("OFF-2025-00001", 7, t0.AddDate(0, 0, 30))
	require.NoError(t, repos.Offers.Create(ctx, o))
	in := makeIssuance(o, "POL-2025-00001")
	require.NoError(t, repos.Issuer.IssuePolicy(ctx, in))

	paid := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Commissions.TransitionStatus(ctx, in.Commission.ID,
		core.CommissionStatusPending, core.CommissionStatusPaid, &paid, paid))

	got, err := repos.Commissions.Get(ctx, in.Commission.ID)
	require.NoError(t, err)
	assert.Equal(t, core.CommissionStatusPaid, got.Status)
	require.NotNil(t, got.PaymentDate)
	assert.True(t, got.PaymentDate.Equal(paid))

	err = repos.Commissions.TransitionStatus(ctx, in.Commission.ID,
		core.CommissionStatusPending, core.CommissionStatusCancelled, nil, paid)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestActivityNewestFirst(t *testing.T) {
	s := openTestStore(t)
	repo := s.Repositories().Activity
	ctx := context.Background()

	for i, typ := range []core.ActivityType{core.ActivityOfferCreated, core.ActivityStatusChanged, core.ActivityOfferAccepted} {
		e := &core.ActivityLogEntry{
			EntityType:   core.EntityOffer,
			EntityID:     1,
			ActivityType: typ,
			Description:  string(typ),
			PerformedBy:  3,
			Metadata:     map[string]any{"n": float64(i)},
			CreatedAt:    t0.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Append(ctx, e))
		require.NotZero(t, e.ID)
	}
	require.NoError(t, repo.Append(ctx, &core.ActivityLogEntry{
		EntityType: core.EntityOffer, EntityID: 2, ActivityType: core.ActivityOfferCreated, CreatedAt: t0,
	}))

	got, err := repo.ListForEntity(ctx, core.EntityOffer, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, core.ActivityOfferAccepted, got[0].ActivityType)
	assert.Equal(t, core.ActivityOfferCreated, got[2].ActivityType)
	assert.Equal(t, float64(0), got[2].Metadata["n"])
}

func TestProductCustomFieldsSurviveStorage(t *testing.T) {
	s := openTestStore(t)
	repo := s.Repositories().Products
	ctx := context.Background()

	mult := decimal.RequireFromString("1.2")
	cond := core.GreaterThan(decimal.NewFromInt(10))
	p := &core.Product{
		Name:        "Auto CASCO",
		Code:        "CASCO",
		Category:    core.CategoryAuto,
		InsurerName: "Groupama",
		BaseRate:    decimal.RequireFromString("0.035"),
		Active:      true,
		CustomFields: []core.CustomFieldDefinition{{
			Name: "vehicle_age", Label: "Vehicle age", Type: core.FieldNumber,
			Required: true, FactorMultiplier: &mult, FactorCondition: &cond,
		}},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByCode(ctx, "CASCO")
	require.NoError(t, err)
	require.Len(t, got.CustomFields, 1)
	f := got.CustomFields[0]
	require.NotNil(t, f.FactorCondition)
	assert.Equal(t, core.ConditionGreaterThan, f.FactorCondition.Kind)
	assert.True(t, f.FactorCondition.Matches(float64(12)))
	assert.True(t, f.FactorMultiplier.Equal(mult))

	assert.ErrorIs(t, repo.Create(ctx, &core.Product{Name: "x", Code: "CASCO", Category: core.CategoryAuto}), core.ErrConflict)
}
