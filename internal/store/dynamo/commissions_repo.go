package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type CommissionRepo struct{ base }

func (r *CommissionRepo) Get(ctx context.Context, id int64) (core.Commission, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := getItem[CommissionItem](ctx, r.db, r.t.Commissions, id)
	if err != nil {
		return core.Commission{}, err
	}
	if !found {
		return core.Commission{}, core.ErrCommissionNotFound
	}
	return item.ToCore(), nil
}

func commissionConditions(f core.CommissionFilter) []expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	if f.BrokerID != nil {
		conds = append(conds, expression.Name("broker_id").Equal(expression.Value(*f.BrokerID)))
	}
	if f.PolicyID > 0 {
		conds = append(conds, expression.Name("policy_id").Equal(expression.Value(f.PolicyID)))
	}
	if f.Status != "" {
		conds = append(conds, expression.Name("status").Equal(expression.Value(string(f.Status))))
	}
	return conds
}

func (r *CommissionRepo) List(ctx context.Context, filter core.CommissionFilter) ([]core.Commission, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := scanAll[CommissionItem, core.Commission](ctx, r.db, r.t.Commissions, commissionConditions(filter))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b core.Commission) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (r *CommissionRepo) TransitionStatus(ctx context.Context, id int64, from, next core.CommissionStatus, paidAt *time.Time, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	update := expression.Set(expression.Name("status"), expression.Value(string(next))).
		Set(expression.Name("updated_at"), expression.Value(fmtTime(at)))
	if paidAt != nil {
		update = update.Set(expression.Name("payment_date"), expression.Value(fmtTime(*paidAt)))
	}
	cond := expression.And(exists(), expression.Name("status").Equal(expression.Value(string(from))))

	matched, missing, err := updateIf(ctx, r.db, r.t.Commissions, id, update, cond)
	switch {
	case err != nil:
		return err
	case missing:
		return core.ErrCommissionNotFound
	case !matched:
		return fmt.Errorf("%w: commission %d is no longer %s", core.ErrInvalidState, id, from)
	}
	return nil
}
