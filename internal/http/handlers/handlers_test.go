package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
	transporthttp "github.com/MrKriegler/go-brokerage/internal/http"
	"github.com/MrKriegler/go-brokerage/internal/http/handlers"
	"github.com/MrKriegler/go-brokerage/internal/http/health"
	"github.com/MrKriegler/go-brokerage/internal/platform/auth"
	"github.com/MrKriegler/go-brokerage/internal/store/sqlstore"
	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

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

type api struct {
	t       *testing.T
	handler http.Handler
	signer  *auth.Signer
	admin   string
}

func newAPI(t *testing.T, checks ...health.Check) *api {
	t.Helper()
	ctx := context.Background()
	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	repos := store.Repositories()
	rec := core.NewActivityRecorder(repos.Activity, nil, discard)
	signer, err := auth.NewSigner("handler-test-secret-0123456789", "go-brokerage", time.Hour)
	require.NoError(t, err)

	if checks == nil {
		checks = []health.Check{{Name: "database", Pinger: store}}
	}
	router := transporthttp.NewRouter(transporthttp.Deps{
		Log: discard,
		Mounts: []handlers.Mountable{
			handlers.NewProductHandler(core.NewProductService(repos), discard),
			handlers.NewQuoteHandler(core.NewQuoteService(repos), discard),
			handlers.NewClientHandler(core.NewClientService(repos, rec), discard),
			handlers.NewBrokerHandler(core.NewBrokerService(repos), discard),
			handlers.NewOfferHandler(core.NewOfferService(repos, rec), discard),
			handlers.NewPolicyHandler(core.NewPolicyService(repos, &memFiles{}, rec), discard),
			handlers.NewCommissionHandler(core.NewCommissionService(repos, rec), discard),
			handlers.NewActivityHandler(core.NewActivityService(repos), discard),
		},
		Health: health.New(discard, time.Second, checks...),
		Tokens: signer,
	})

	a := &api{t: t, handler: router, signer: signer}
	a.admin = a.token(1, core.RoleAdministrator, nil)
	return a
}

func (a *api) token(userID int64, role core.Role, brokerID *int64) string {
	a.t.Helper()
	tok, err := a.signer.Issue(userID, role, brokerID)
	require.NoError(a.t, err)
	return tok
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireProblem(t *testing.T, rec *httptest.ResponseRecorder, status int) problem.Problem {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	return decode[problem.Problem](t, rec)
}

// seed creates a broker, a consenting client of that broker and an active product.
func (a *api) seed() (core.Broker, string, core.Client, core.Product) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/brokers", a.admin, map[string]any{
		"first_name":      "Ion",
		"last_name":       "Ionescu",
		"email":           fmt.Sprintf("ion.%d@brokerage.test", time.Now().UnixNano()),
		"commission_rate": "0.10",
		"active":          true,
		"role":            core.RoleBroker,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	broker := decode[core.Broker](a.t, rec)
	brokerToken := a.token(10, core.RoleBroker, &broker.ID)

	rec = a.do(http.MethodPost, "/api/v1/clients", brokerToken, core.ClientInput{
		FirstName:   "Maria",
		LastName:    "Popescu",
		Email:       "maria@example.com",
		Phone:       "+40 721 000 000",
		CNP:         "1850101123456",
		GDPRConsent: true,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	client := decode[core.Client](a.t, rec)

	rec = a.do(http.MethodPost, "/api/v1/products", a.admin, map[string]any{
		"name":          "Life Basic",
		"code":          fmt.Sprintf("life-%d", time.Now().UnixNano()),
		"category":      core.CategoryLife,
		"insurer_name":  "NN Asigurari",
		"base_rate":     "0.02",
		"active":        true,
		"custom_fields": []any{},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[core.Product](a.t, rec)

	return broker, brokerToken, client, product
}

func dates() (string, string) {
	start := time.Now().UTC().AddDate(0, 0, 7)
	return start.Format(time.DateOnly), start.AddDate(1, 0, 0).Format(time.DateOnly)
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	a := newAPI(t)

	p := requireProblem(t, a.do(http.MethodGet, "/api/v1/products", "", nil), http.StatusUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, p.Status)

	requireProblem(t, a.do(http.MethodGet, "/api/v1/products", "not-a-jwt", nil), http.StatusUnauthorized)
}

func TestHealthEndpoints(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"ready","checks":{"database":"ok"}}`, rec.Body.String())

	down := newAPI(t,
		health.Check{Name: "database", Pinger: health.PingFunc(func(context.Context) error { return nil })},
		health.Check{Name: "redis", Pinger: health.PingFunc(func(context.Context) error { return errors.New("connection refused") })},
	)
	rec = down.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not ready","checks":{"database":"ok","redis":"connection refused"}}`, rec.Body.String())
}

func TestOfferToPolicyOverHTTP(t *testing.T) {
	a := newAPI(t)
	_, brokerToken, client, product := a.seed()
	start, end := dates()

	// 1) Quote
	rec := a.do(http.MethodPost, "/api/v1/premium/calculate", brokerToken, map[string]any{
		"product_id":  product.ID,
		"client_id":   client.ID,
		"sum_insured": 10000,
		"start_date":  start,
		"end_date":    end,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decode[core.PremiumQuote](t, rec)
	require.True(t, quote.Premium.IsPositive())

	// 2) Offer
	rec = a.do(http.MethodPost, "/api/v1/offers", brokerToken, map[string]any{
		"client_id":    client.ID,
		"product_id":   product.ID,
		"start_date":   start,
		"end_date":     end,
		"sum_insured":  10000,
		"premium":      quote.Premium.String(),
		"breakdown":    quote.Breakdown,
		"gdpr_consent": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	offer := decode[core.Offer](t, rec)
	assert.Equal(t, core.OfferStatusPending, offer.Status)

	rec = a.do(http.MethodGet, "/api/v1/offers?status=PENDING", brokerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []core.Offer `json:"items"`
		Total int64        `json:"total"`
	}](t, rec)
	assert.EqualValues(t, 1, list.Total)

	// 3) Convert; a second attempt sees the offer already accepted
	convertPath := fmt.Sprintf("/api/v1/offers/%d:convert", offer.ID)
	rec = a.do(http.MethodPost, convertPath, brokerToken, `{"payment_method":"BANK_TRANSFER"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	policy := decode[core.Policy](t, rec)
	assert.Equal(t, core.PolicyStatusAwaitingPayment, policy.Status)
	assert.True(t, strings.HasPrefix(policy.PolicyNumber, "POL-"))

	requireProblem(t, a.do(http.MethodPost, convertPath, brokerToken, `{"payment_method":"BANK_TRANSFER"}`), http.StatusConflict)

	// 4) Proof upload
	rec = a.upload(brokerToken, policy.ID, "receipt.pdf", "application/pdf", []byte("%PDF-1.4 receipt"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.PolicyStatusAwaitingValidation, decode[core.Policy](t, rec).Status)

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/v1/policies/%d/proof", policy.ID), brokerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 receipt", rec.Body.String())

	// 5) Only staff validate payments
	validatePath := fmt.Sprintf("/api/v1/policies/%d:validate-payment", policy.ID)
	requireProblem(t, a.do(http.MethodPost, validatePath, brokerToken, nil), http.StatusForbidden)
	rec = a.do(http.MethodPost, validatePath, a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.PaymentStatusValidated, decode[core.Policy](t, rec).PaymentStatus)

	rec = a.do(http.MethodGet, "/api/v1/policies/by-number/"+policy.PolicyNumber, brokerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, policy.ID, decode[core.Policy](t, rec).ID)

	rec = a.do(http.MethodGet, "/api/v1/policies?limit=1&payment_status=VALIDATED", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items []core.Policy `json:"items"`
		Total int64         `json:"total"`
		Limit int           `json:"limit"`
	}](t, rec)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1, page.Limit)

	// 6) Commission paid out by the administrator
	rec = a.do(http.MethodGet, fmt.Sprintf("/api/v1/commissions?policy_id=%d", policy.ID), brokerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	commissions := decode[struct {
		Items []core.Commission `json:"items"`
	}](t, rec)
	require.Len(t, commissions.Items, 1)
	rec = a.do(http.MethodPost, fmt.Sprintf("/api/v1/commissions/%d:pay", commissions.Items[0].ID), a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.CommissionStatusPaid, decode[core.Commission](t, rec).Status)

	// 7) Timeline
	rec = a.do(http.MethodGet, fmt.Sprintf("/api/v1/activity?entity_type=policy&entity_id=%d", policy.ID), brokerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	timeline := decode[struct {
		Items []core.ActivityLogEntry `json:"items"`
	}](t, rec)
	require.NotEmpty(t, timeline.Items)
	assert.Equal(t, core.ActivityCommissionPaid, timeline.Items[0].ActivityType)
}

func (a *api) upload(token string, policyID int64, name, contentType string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(a.t, err)
	_, err = part.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/policies/%d/proof", policyID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)
	broker, brokerToken, client, _ := a.seed()

	t.Run("bad path id names the field", func(t *testing.T) {
		p := requireProblem(t, a.do(http.MethodGet, "/api/v1/offers/abc", brokerToken, nil), http.StatusBadRequest)
		assert.Equal(t, "offer_id", p.Field)
	})
	t.Run("malformed body", func(t *testing.T) {
		requireProblem(t, a.do(http.MethodPost, "/api/v1/clients", brokerToken, `{"first_name":`), http.StatusBadRequest)
	})
	t.Run("validation error carries field", func(t *testing.T) {
		p := requireProblem(t, a.do(http.MethodPatch, fmt.Sprintf("/api/v1/clients/%d", client.ID), brokerToken,
			`{"email":"not-an-email"}`), http.StatusBadRequest)
		assert.Equal(t, "email", p.Field)
	})
	t.Run("brokers cannot define products", func(t *testing.T) {
		requireProblem(t, a.do(http.MethodPost, "/api/v1/products", brokerToken,
			`{"name":"X","code":"X-1","category":"LIFE","insurer_name":"Y","base_rate":"0.01","active":true}`), http.StatusForbidden)
	})
	t.Run("other brokers see not found", func(t *testing.T) {
		otherID := broker.ID + 1000
		other := a.token(11, core.RoleBroker, &otherID)
		p := requireProblem(t, a.do(http.MethodGet, fmt.Sprintf("/api/v1/clients/%d", client.ID), other, nil), http.StatusNotFound)
		assert.Equal(t, fmt.Sprintf("/api/v1/clients/%d", client.ID), p.Instance)
	})
	t.Run("consent twice conflicts", func(t *testing.T) {
		requireProblem(t, a.do(http.MethodPost, fmt.Sprintf("/api/v1/clients/%d:consent", client.ID), brokerToken, nil), http.StatusConflict)
	})
	t.Run("unknown route", func(t *testing.T) {
		requireProblem(t, a.do(http.MethodGet, "/api/v1/nothing-here", brokerToken, nil), http.StatusNotFound)
	})
	t.Run("activity needs a known entity type", func(t *testing.T) {
		p := requireProblem(t, a.do(http.MethodGet, "/api/v1/activity?entity_type=RENEWAL&entity_id=1", brokerToken, nil), http.StatusBadRequest)
		assert.Equal(t, "entity_type", p.Field)
	})
}

func TestUploadRejectsUnsupportedFiles(t *testing.T) {
	a := newAPI(t)
	_, brokerToken, client, product := a.seed()
	start, end := dates()

	rec := a.do(http.MethodPost, "/api/v1/premium/calculate", brokerToken, map[string]any{
		"product_id": product.ID, "client_id": client.ID, "sum_insured": 5000, "start_date": start, "end_date": end,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quote := decode[core.PremiumQuote](t, rec)

	rec = a.do(http.MethodPost, "/api/v1/offers", brokerToken, map[string]any{
		"client_id": client.ID, "product_id": product.ID, "start_date": start, "end_date": end,
		"sum_insured": 5000, "premium": quote.Premium.String(), "gdpr_consent": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	offer := decode[core.Offer](t, rec)

	rec = a.do(http.MethodPost, fmt.Sprintf("/api/v1/offers/%d:convert", offer.ID), brokerToken, `{"payment_method":"CASH"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	policy := decode[core.Policy](t, rec)

	p := requireProblem(t, a.upload(brokerToken, policy.ID, "notes.txt", "text/plain", []byte("hello")), http.StatusBadRequest)
	assert.Equal(t, "file", p.Field)

	requireProblem(t, a.do(http.MethodGet, fmt.Sprintf("/api/v1/policies/%d/proof", policy.ID), brokerToken, nil), http.StatusNotFound)

	cancelPath := fmt.Sprintf("/api/v1/policies/%d:cancel", policy.ID)
	requireProblem(t, a.do(http.MethodPost, cancelPath, brokerToken, `{"reason":"client request"}`), http.StatusForbidden)
	p = requireProblem(t, a.do(http.MethodPost, cancelPath, a.admin, nil), http.StatusBadRequest)
	assert.Equal(t, "cancellation_reason", p.Field)
	p = requireProblem(t, a.do(http.MethodPost, cancelPath, a.admin, `{"reason":"   "}`), http.StatusBadRequest)
	assert.Equal(t, "cancellation_reason", p.Field)
	rec = a.do(http.MethodPost, cancelPath, a.admin, `{"reason":"client request"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.PolicyStatusCancelled, decode[core.Policy](t, rec).Status)
}
