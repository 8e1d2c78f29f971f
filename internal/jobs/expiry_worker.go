package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

// ExpiryWorker persists offer and policy expiry that reads otherwise only
// derive on the fly. Running it is optional; lazy expiry stays authoritative.
type ExpiryWorker struct {
	BaseWorker
	offers   core.OfferRepo
	policies core.PolicyRepo
	clock    func() time.Time
}

// SweepResult counts the rows one sweep moved to EXPIRED.
type SweepResult struct {
	Offers   int64
	Policies int64
}

func NewExpiryWorker(repos core.Repositories, interval time.Duration, log *slog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		BaseWorker: NewBaseWorker("expiry", interval, log),
		offers:     repos.Offers,
		policies:   repos.Policies,
		clock:      time.Now,
	}
}

// WithClock replaces the time source.
func (w *ExpiryWorker) WithClock(clock func() time.Time) *ExpiryWorker {
	w.clock = clock
	return w
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	w.Poll(ctx, func(ctx context.Context) error {
		_, err := w.RunOnce(ctx)
		return err
	})
}

// RunOnce expires pending offers past expires_at and active policies past end_date.
// Both sweeps run even when the first fails.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (SweepResult, error) {
	now := w.clock()
	var res SweepResult
	var errs []error

	n, err := w.offers.ExpireOffers(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire offers: %w", err))
	}
	res.Offers = n

	n, err = w.policies.ExpirePolicies(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("expire policies: %w", err))
	}
	res.Policies = n

	if res.Offers > 0 || res.Policies > 0 {
		w.log.Info("expired records", "offers", res.Offers, "policies", res.Policies)
	}
	return res, errors.Join(errs...)
}
