package core

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Issuance is the unit written when an offer converts: the offer's
// PENDING->ACCEPTED flip, the policy and its commission land together or not at all.
type Issuance struct {
	OfferID    int64
	AcceptedAt time.Time
	Policy     *Policy
	Commission *Commission
}

type PolicyIssuer interface {
	// IssuePolicy fills in Policy.ID, Commission.ID and Commission.PolicyID.
	// It returns ErrInvalidState if the offer is no longer PENDING.
	IssuePolicy(ctx context.Context, in Issuance) error
}

// Sequencer hands out monotonically increasing numbers per named counter.
type Sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// FileStore keeps uploaded documents; the core only ever holds the reference.
type FileStore interface {
	Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (ref string, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// Repositories bundles one storage back end.
type Repositories struct {
	Products    ProductRepo
	Clients     ClientRepo
	Brokers     BrokerRepo
	Offers      OfferRepo
	Policies    PolicyRepo
	Commissions CommissionRepo
	Activity    ActivityRepo
	Issuer      PolicyIssuer
	Sequences   Sequencer
}

// Option customizes a service at construction.
type Option func(*serviceOptions)

type serviceOptions struct {
	clock func() time.Time
	log   *slog.Logger
}

// WithClock pins the time source, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *serviceOptions) { o.clock = clock }
}

// WithLogger sets the logger for failures that do not reach the caller.
func WithLogger(log *slog.Logger) Option {
	return func(o *serviceOptions) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) serviceOptions {
	o := serviceOptions{clock: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
