package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

const uniqueOfferNumber = "offers.offer_number"

type OfferRepo struct{ base }

func (r *OfferRepo) Create(ctx context.Context, o *core.Offer) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, r.t.Offers)
	if err != nil {
		return err
	}
	item := offerItemFromCore(*o)
	item.ID = id

	put, err := putIf(r.t.Offers, item, notExists())
	if err != nil {
		return err
	}
	_, err = r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			put,
			reserveUnique(r.t.Uniques, uniqueOfferNumber, o.OfferNumber, id),
		},
	})
	if err != nil {
		if _, ok := canceledAt(err, 1); ok {
			return fmt.Errorf("%w: offer number %s already used", core.ErrConflict, o.OfferNumber)
		}
		return fmt.Errorf("offers.create: %w", err)
	}
	o.ID = id
	return nil
}

func (r *OfferRepo) Get(ctx context.Context, id int64) (core.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := getItem[OfferItem](ctx, r.db, r.t.Offers, id)
	if err != nil {
		return core.Offer{}, err
	}
	if !found {
		return core.Offer{}, core.ErrOfferNotFound
	}
	return item.ToCore(), nil
}

// offerConditions matches pending and expired on their effective status when AsOf is set.
func offerConditions(f core.OfferFilter) []expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	if f.BrokerID != nil {
		conds = append(conds, expression.Name("broker_id").Equal(expression.Value(*f.BrokerID)))
	}
	if f.ClientID > 0 {
		conds = append(conds, expression.Name("client_id").Equal(expression.Value(f.ClientID)))
	}
	if f.Status == "" {
		return conds
	}

	status := expression.Name("status")
	if f.AsOf.IsZero() {
		return append(conds, status.Equal(expression.Value(string(f.Status))))
	}
	asOf := expression.Value(fmtTime(f.AsOf))
	switch f.Status {
	case core.OfferStatusPending:
		conds = append(conds,
			status.Equal(expression.Value(string(core.OfferStatusPending))),
			expression.Name("expires_at").GreaterThanEqual(asOf))
	case core.OfferStatusExpired:
		conds = append(conds, expression.Or(
			status.Equal(expression.Value(string(core.OfferStatusExpired))),
			expression.And(
				status.Equal(expression.Value(string(core.OfferStatusPending))),
				expression.Name("expires_at").LessThan(asOf)),
		))
	default:
		conds = append(conds, status.Equal(expression.Value(string(f.Status))))
	}
	return conds
}

func (r *OfferRepo) List(ctx context.Context, filter core.OfferFilter) ([]core.Offer, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := scanAll[OfferItem, core.Offer](ctx, r.db, r.t.Offers, offerConditions(filter))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b core.Offer) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

// offerTransition sets next (and its timestamp) on the condition that the
// offer exists and is still in from.
func offerTransition(from, next core.OfferStatus, at time.Time) (expression.UpdateBuilder, expression.ConditionBuilder) {
	ts := expression.Value(fmtTime(at))
	update := expression.Set(expression.Name("status"), expression.Value(string(next))).
		Set(expression.Name("updated_at"), ts)
	switch next {
	case core.OfferStatusAccepted:
		update = update.Set(expression.Name("accepted_at"), ts)
	case core.OfferStatusRejected:
		update = update.Set(expression.Name("rejected_at"), ts)
	}
	cond := expression.And(exists(), expression.Name("status").Equal(expression.Value(string(from))))
	return update, cond
}

func (r *OfferRepo) TransitionStatus(ctx context.Context, id int64, from, next core.OfferStatus, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	update, cond := offerTransition(from, next, at)
	matched, missing, err := updateIf(ctx, r.db, r.t.Offers, id, update, cond)
	switch {
	case err != nil:
		return err
	case missing:
		return core.ErrOfferNotFound
	case !matched:
		return fmt.Errorf("%w: offer %d is no longer %s", core.ErrInvalidState, id, from)
	}
	return nil
}

// ExpireOffers has no bulk update to lean on: it scans for overdue pending
// offers and flips each one under the same condition.
func (r *OfferRepo) ExpireOffers(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	overdue := expression.And(
		expression.Name("status").Equal(expression.Value(string(core.OfferStatusPending))),
		expression.Name("expires_at").LessThan(expression.Value(fmtTime(before))),
	)
	offers, err := scanAll[OfferItem, core.Offer](ctx, r.db, r.t.Offers, []expression.ConditionBuilder{overdue})
	if err != nil {
		return 0, err
	}

	update := expression.Set(expression.Name("status"), expression.Value(string(core.OfferStatusExpired))).
		Set(expression.Name("updated_at"), expression.Value(fmtTime(before)))
	var count int64
	for _, o := range offers {
		matched, _, err := updateIf(ctx, r.db, r.t.Offers, o.ID, update, overdue)
		if err != nil {
			return count, err
		}
		if matched {
			count++
		}
	}
	return count, nil
}
