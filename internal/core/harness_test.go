package core_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/store/sqlstore"
)

var (
	admin   = core.Actor{UserID: 1, Role: core.RoleAdministrator}
	manager = core.Actor{UserID: 2, Role: core.RoleBrokerManager, ShowAllData: true}
)

func brokerActor(userID, brokerID int64) core.Actor {
	return core.Actor{UserID: userID, Role: core.RoleBroker, BrokerID: &brokerID}
}

// testClock is a settable time source shared by every service of a harness.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memFiles keeps uploaded documents in memory.
type memFiles struct {
	mu    sync.Mutex
	blobs map[string][]byte
	puts  int
}

func (m *memFiles) Put(_ context.Context, name, _ string, body io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs == nil {
		m.blobs = map[string][]byte{}
	}
	m.puts++
	ref := fmt.Sprintf("mem://%d/%s", m.puts, name)
	m.blobs[ref] = b
	return ref, nil
}

func (m *memFiles) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[ref]
	if !ok {
		return nil, core.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memFiles) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref)
	return nil
}

type harness struct {
	t     *testing.T
	clock *testClock
	repos core.Repositories
	files *memFiles
	seq   int

	Products    core.ProductService
	Clients     core.ClientService
	Brokers     core.BrokerService
	Offers      core.OfferService
	Policies    core.PolicyService
	Commissions core.CommissionService
	Activity    core.ActivityService
	Quotes      core.QuoteService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	clock := &testClock{now: time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)}
	repos := store.Repositories()
	files := &memFiles{}
	rec := core.NewActivityRecorder(repos.Activity, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	opt := core.WithClock(clock.Now)

	return &harness{
		t:           t,
		clock:       clock,
		repos:       repos,
		files:       files,
		Products:    core.NewProductService(repos, opt),
		Clients:     core.NewClientService(repos, rec, opt),
		Brokers:     core.NewBrokerService(repos, opt),
		Offers:      core.NewOfferService(repos, rec, opt),
		Policies:    core.NewPolicyService(repos, files, rec, opt),
		Commissions: core.NewCommissionService(repos, rec, opt),
		Activity:    core.NewActivityService(repos),
		Quotes:      core.NewQuoteService(repos, opt),
	}
}

func (h *harness) broker(first, rate string) core.Broker {
	h.t.Helper()
	b, err := h.Brokers.Create(context.Background(), admin, core.Broker{
		FirstName:      first,
		LastName:       "Broker",
		Email:          fmt.Sprintf("%s.%d@brokerage.test", first, h.nextSeq()),
		CommissionRate: decimal.RequireFromString(rate),
		Active:         true,
	})
	require.NoError(h.t, err)
	return b
}

func (h *harness) client(owner core.Broker, cnp string) core.Client {
	h.t.Helper()
	c, err := h.Clients.Create(context.Background(), brokerActor(100+owner.ID, owner.ID), core.ClientInput{
		FirstName:   "Maria",
		LastName:    "Popescu",
		Email:       "maria@example.com",
		Phone:       "+40 721 000 000",
		CNP:         cnp,
		GDPRConsent: true,
	})
	require.NoError(h.t, err)
	return c
}

func (h *harness) product(rate string, fields ...core.CustomFieldDefinition) core.Product {
	h.t.Helper()
	if fields == nil {
		fields = []core.CustomFieldDefinition{}
	}
	p, err := h.Products.Create(context.Background(), admin, core.Product{
		Name:         "Life Basic",
		Code:         fmt.Sprintf("life-%d", h.nextSeq()),
		Category:     core.CategoryLife,
		InsurerName:  "NN Asigurari",
		BaseRate:     decimal.RequireFromString(rate),
		Active:       true,
		CustomFields: fields,
	})
	require.NoError(h.t, err)
	return p
}

func (h *harness) nextSeq() int {
	h.seq++
	return h.seq
}

// offer creates a pending offer priced through the quote service.
func (h *harness) offer(actor core.Actor, c core.Client, p core.Product) core.Offer {
	h.t.Helper()
	ctx := context.Background()
	start := h.clock.Now().AddDate(0, 0, 7)
	startDate := core.NewDate(start.Year(), start.Month(), start.Day())
	endDate := core.NewDate(start.Year()+1, start.Month(), start.Day())

	q, err := h.Quotes.Calculate(ctx, actor, core.QuoteRequest{
		ProductID:  p.ID,
		ClientID:   c.ID,
		SumInsured: decimal.NewFromInt(10000),
		StartDate:  startDate,
		EndDate:    endDate,
	})
	require.NoError(h.t, err)

	o, err := h.Offers.Create(ctx, actor, core.OfferInput{
		ClientID:    c.ID,
		ProductID:   p.ID,
		StartDate:   startDate,
		EndDate:     endDate,
		SumInsured:  decimal.NewFromInt(10000),
		Premium:     &q.Premium,
		Breakdown:   &q.Breakdown,
		GDPRConsent: true,
	})
	require.NoError(h.t, err)
	return o
}

func (h *harness) activityTypes(entityType core.EntityType, id int64) []core.ActivityType {
	h.t.Helper()
	entries, err := h.repos.Activity.ListForEntity(context.Background(), entityType, id, 100)
	require.NoError(h.t, err)
	out := make([]core.ActivityType, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ActivityType)
	}
	return out
}
