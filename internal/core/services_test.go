package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

func TestClientLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.broker("ion", "0.10")
	actor := brokerActor(10, b.ID)

	c, err := h.Clients.Create(ctx, actor, core.ClientInput{
		FirstName: "Andrei",
		LastName:  "Stan",
		Email:     "andrei@example.com",
		Phone:     "0722000111",
		CNP:       "1800101123456",
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, c.BrokerID)
	assert.False(t, c.GDPRConsent)
	assert.Nil(t, c.GDPRConsentDate)

	consented, err := h.Clients.GrantConsent(ctx, actor, c.ID)
	require.NoError(t, err)
	assert.True(t, consented.GDPRConsent)
	require.NotNil(t, consented.GDPRConsentDate)

	_, err = h.Clients.GrantConsent(ctx, actor, c.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	phone := "0733999888"
	updated, err := h.Clients.Update(ctx, actor, c.ID, core.ClientPatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.True(t, updated.GDPRConsent, "patching contact data keeps consent")

	badEmail := "not-an-email"
	_, err = h.Clients.Update(ctx, actor, c.ID, core.ClientPatch{Email: &badEmail})
	assert.ErrorIs(t, err, core.ErrValidation)

	assert.Equal(t, []core.ActivityType{
		core.ActivityClientUpdated,
		core.ActivityGDPRSigned,
		core.ActivityClientCreated,
	}, h.activityTypes(core.EntityClient, c.ID))

	err = h.Clients.Delete(ctx, actor, c.ID)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	require.NoError(t, h.Clients.Delete(ctx, manager, c.ID))
	_, err = h.Clients.Get(ctx, manager, c.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClientCreateRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.broker("ion", "0.10")
	other := h.broker("vasile", "0.10")
	in := core.ClientInput{FirstName: "A", LastName: "B", Email: "a@b.ro", Phone: "1", CNP: "1800101123456"}

	bad := in
	bad.CNP = "18001011234"
	_, err := h.Clients.Create(ctx, brokerActor(10, b.ID), bad)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "cnp", verr.Field)

	foreign := in
	foreign.BrokerID = &other.ID
	_, err = h.Clients.Create(ctx, brokerActor(10, b.ID), foreign)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	_, err = h.Clients.Create(ctx, admin, in)
	assert.ErrorIs(t, err, core.ErrValidation, "staff must name the owning broker")

	c, err := h.Clients.Create(ctx, admin, foreign)
	require.NoError(t, err)
	assert.Equal(t, other.ID, c.BrokerID)

	mine, err := h.Clients.List(ctx, brokerActor(10, b.ID), core.ClientFilter{})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestBrokerService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b1 := h.broker("ion", "0.10")
	b2 := h.broker("vasile", "0.15")

	_, err := h.Brokers.Create(ctx, brokerActor(10, b1.ID), core.Broker{FirstName: "x", LastName: "y", Email: "x@y.ro"})
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	_, err = h.Brokers.Create(ctx, admin, core.Broker{FirstName: "x", LastName: "y", Email: b1.Email})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = h.Brokers.Create(ctx, admin, core.Broker{FirstName: "x", LastName: "y", Email: "z@y.ro", CommissionRate: decimal.NewFromInt(2)})
	assert.ErrorIs(t, err, core.ErrValidation)

	own, err := h.Brokers.List(ctx, brokerActor(10, b1.ID))
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, b1.ID, own[0].ID)

	all, err := h.Brokers.List(ctx, core.Actor{UserID: 3, Role: core.RoleBrokerManager})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.Brokers.Get(ctx, brokerActor(10, b1.ID), b2.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	b2.CommissionRate = decimal.RequireFromString("0.2")
	updated, err := h.Brokers.Update(ctx, manager, b2.ID, b2)
	require.NoError(t, err)
	assert.Equal(t, "0.2", updated.CommissionRate.String())
	assert.Equal(t, core.RoleBroker, updated.Role)
}

func TestProductService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := core.Product{Name: "Home", Code: " home-01 ", Category: core.CategoryHome, BaseRate: dec("0.005"), Active: true}
	_, err := h.Products.Create(ctx, manager, p)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	created, err := h.Products.Create(ctx, admin, p)
	require.NoError(t, err)
	assert.Equal(t, "HOME-01", created.Code)

	_, err = h.Products.Create(ctx, admin, p)
	assert.ErrorIs(t, err, core.ErrConflict)

	created.Active = false
	_, err = h.Products.Update(ctx, admin, created.ID, created)
	require.NoError(t, err)

	active, err := h.Products.List(ctx, core.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	start := h.clock.Now().AddDate(0, 0, 1)
	_, err = h.Quotes.Calculate(ctx, admin, core.QuoteRequest{
		ProductID:  created.ID,
		SumInsured: decimal.NewFromInt(1000),
		StartDate:  core.NewDate(start.Year(), start.Month(), start.Day()),
		EndDate:    core.NewDate(start.Year()+1, start.Month(), start.Day()),
	})
	assert.ErrorIs(t, err, core.ErrValidation, "inactive products cannot be quoted")
}

func TestQuoteWithoutClient(t *testing.T) {
	h := newHarness(t)
	p := h.product("0.02")
	start := h.clock.Now().AddDate(0, 0, 1)

	q, err := h.Quotes.Calculate(context.Background(), admin, core.QuoteRequest{
		ProductID:  p.ID,
		ClientCNP:  "1500101123456",
		SumInsured: decimal.NewFromInt(10000),
		StartDate:  core.NewDate(start.Year(), start.Month(), start.Day()),
		EndDate:    core.NewDate(start.Year()+1, start.Month(), start.Day()),
	})
	require.NoError(t, err)
	assert.Equal(t, "250.00", q.Premium.StringFixed(2))
}

func TestCommissionPayout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor, p := h.policy(core.PaymentCardOnline, "")

	comms, err := h.Commissions.List(ctx, actor, core.CommissionFilter{PolicyID: p.ID})
	require.NoError(t, err)
	require.Len(t, comms, 1)
	c := comms[0]
	assert.Equal(t, core.CommissionStatusPending, c.Status)

	_, err = h.Commissions.MarkPaid(ctx, actor, c.ID)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	h.clock.Advance(5 * time.Hour)
	paid, err := h.Commissions.MarkPaid(ctx, manager, c.ID)
	require.NoError(t, err)
	assert.Equal(t, core.CommissionStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, "2025-06-02", paid.PaymentDate.Format("2006-01-02"))

	_, err = h.Commissions.MarkPaid(ctx, manager, c.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState)
	_, err = h.Commissions.Cancel(ctx, manager, c.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	assert.Contains(t, h.activityTypes(core.EntityPolicy, p.ID), core.ActivityCommissionPaid)
}

type failingActivity struct{ calls int }

func (f *failingActivity) Append(context.Context, *core.ActivityLogEntry) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingActivity) ListForEntity(context.Context, core.EntityType, int64, int) ([]core.ActivityLogEntry, error) {
	return nil, nil
}

type recordingPublisher struct{ got []core.ActivityLogEntry }

func (p *recordingPublisher) Publish(_ context.Context, e core.ActivityLogEntry) error {
	p.got = append(p.got, e)
	return errors.New("broker unavailable")
}

func TestActivityFailureDoesNotBlockTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	failing := &failingActivity{}
	rec := core.NewActivityRecorder(failing, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	policies := core.NewPolicyService(h.repos, h.files, rec, core.WithClock(h.clock.Now))

	_, p := h.policy(core.PaymentCardOnline, "")
	cancelled, err := policies.Cancel(ctx, manager, p.ID, "client request")
	require.NoError(t, err)
	assert.Equal(t, core.PolicyStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, failing.calls)
}

func TestActivityRecorderPublishes(t *testing.T) {
	h := newHarness(t)
	pub := &recordingPublisher{}
	rec := core.NewActivityRecorder(h.repos.Activity, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec.Record(context.Background(), core.ActivityLogEntry{
		EntityType:   core.EntityClient,
		EntityID:     5,
		ActivityType: core.ActivityClientCreated,
		Description:  "Client created",
		PerformedBy:  1,
	})
	require.Len(t, pub.got, 1)
	assert.NotZero(t, pub.got[0].ID)
	assert.False(t, pub.got[0].CreatedAt.IsZero())

	var nilRecorder *core.ActivityRecorder
	assert.NotPanics(t, func() { nilRecorder.Record(context.Background(), core.ActivityLogEntry{}) })
}

func TestActivityServiceValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.Activity.ListForEntity(ctx, admin, core.EntityType("INVOICE"), 1, 10)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = h.Activity.ListForEntity(ctx, admin, core.EntityOffer, 0, 10)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = h.Activity.ListForEntity(ctx, core.Actor{}, core.EntityOffer, 1, 10)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = h.Activity.ListForEntity(ctx, admin, core.EntityOffer, 404, 10)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
