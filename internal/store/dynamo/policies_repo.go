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

const (
	uniquePolicyNumber  = "policies.policy_number"
	uniquePolicyOfferID = "policies.offer_id"
)

type PolicyRepo struct{ base }

func (r *PolicyRepo) Get(ctx context.Context, id int64) (core.Policy, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := getItem[PolicyItem](ctx, r.db, r.t.Policies, id)
	if err != nil {
		return core.Policy{}, err
	}
	if !found {
		return core.Policy{}, core.ErrPolicyNotFound
	}
	return item.ToCore(), nil
}

func (r *PolicyRepo) GetByNumber(ctx context.Context, number string) (core.Policy, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := queryOne[PolicyItem](ctx, r.db, r.t.Policies, GSIPoliciesNumber, "policy_number", expression.Value(number))
	if err != nil {
		return core.Policy{}, err
	}
	if !found {
		return core.Policy{}, core.ErrPolicyNotFound
	}
	return item.ToCore(), nil
}

// policyConditions matches active and expired on their effective status when AsOf is set.
func policyConditions(f core.PolicyFilter) []expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	if f.BrokerID != nil {
		conds = append(conds, expression.Name("broker_id").Equal(expression.Value(*f.BrokerID)))
	}
	if f.ClientID > 0 {
		conds = append(conds, expression.Name("client_id").Equal(expression.Value(f.ClientID)))
	}
	if f.PaymentStatus != "" {
		conds = append(conds, expression.Name("payment_status").Equal(expression.Value(string(f.PaymentStatus))))
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
	case core.PolicyStatusActive:
		conds = append(conds,
			status.Equal(expression.Value(string(core.PolicyStatusActive))),
			expression.Name("end_date").GreaterThanEqual(asOf))
	case core.PolicyStatusExpired:
		conds = append(conds, expression.Or(
			status.Equal(expression.Value(string(core.PolicyStatusExpired))),
			expression.And(
				status.Equal(expression.Value(string(core.PolicyStatusActive))),
				expression.Name("end_date").LessThan(asOf)),
		))
	default:
		conds = append(conds, status.Equal(expression.Value(string(f.Status))))
	}
	return conds
}

// List scans the filtered policies and pages in memory; total counts every match.
func (r *PolicyRepo) List(ctx context.Context, filter core.PolicyFilter, limit, offset int) ([]core.Policy, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	all, err := scanAll[PolicyItem, core.Policy](ctx, r.db, r.t.Policies, policyConditions(filter))
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(all, func(a, b core.Policy) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return page(all, limit, offset), int64(len(all)), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[max(offset, 0):]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// policyUpdate sets every mutable attribute of item. Optional fields left
// empty are not touched; identity fields are never written after issuance.
func policyUpdate(item PolicyItem) expression.UpdateBuilder {
	set := func(u expression.UpdateBuilder, name string, v any) expression.UpdateBuilder {
		return u.Set(expression.Name(name), expression.Value(v))
	}
	u := expression.Set(expression.Name("client_name"), expression.Value(item.ClientName))
	u = set(u, "product_name", item.ProductName)
	u = set(u, "insurer_name", item.InsurerName)
	u = set(u, "broker_name", item.BrokerName)
	u = set(u, "start_date", item.StartDate)
	u = set(u, "end_date", item.EndDate)
	u = set(u, "premium", item.Premium)
	u = set(u, "sum_insured", item.SumInsured)
	u = set(u, "status", item.Status)
	u = set(u, "gdpr_consent", item.GDPRConsent)
	u = set(u, "payment_method", item.PaymentMethod)
	u = set(u, "payment_status", item.PaymentStatus)
	u = set(u, "custom_field_values", item.CustomFieldValues)
	u = set(u, "updated_at", item.UpdatedAt)

	optional := []struct{ name, value string }{
		{"gdpr_consent_date", item.GDPRConsentDate},
		{"proof_of_payment", item.ProofOfPayment},
		{"validated_at", item.ValidatedAt},
		{"cancellation_reason", item.CancellationReason},
		{"cancelled_at", item.CancelledAt},
	}
	for _, f := range optional {
		if f.value != "" {
			u = set(u, f.name, f.value)
		}
	}
	if item.ValidatedBy != nil {
		u = set(u, "validated_by", *item.ValidatedBy)
	}
	return u
}

func (r *PolicyRepo) UpdateIf(ctx context.Context, p core.Policy, expect core.PolicyState) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	update := policyUpdate(policyItemFromCore(p))
	cond := expression.And(exists(),
		expression.Name("status").Equal(expression.Value(string(expect.Status))),
		expression.Name("payment_status").Equal(expression.Value(string(expect.PaymentStatus))),
	)
	matched, missing, err := updateIf(ctx, r.db, r.t.Policies, p.ID, update, cond)
	switch {
	case err != nil:
		return err
	case missing:
		return core.ErrPolicyNotFound
	case !matched:
		return fmt.Errorf("%w: policy %s changed concurrently", core.ErrInvalidState, p.PolicyNumber)
	}
	return nil
}

func (r *PolicyRepo) ExpirePolicies(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	overdue := expression.And(
		expression.Name("status").Equal(expression.Value(string(core.PolicyStatusActive))),
		expression.Name("end_date").LessThan(expression.Value(fmtTime(before))),
	)
	policies, err := scanAll[PolicyItem, core.Policy](ctx, r.db, r.t.Policies, []expression.ConditionBuilder{overdue})
	if err != nil {
		return 0, err
	}

	update := expression.Set(expression.Name("status"), expression.Value(string(core.PolicyStatusExpired))).
		Set(expression.Name("updated_at"), expression.Value(fmtTime(before)))
	var count int64
	for _, p := range policies {
		matched, _, err := updateIf(ctx, r.db, r.t.Policies, p.ID, update, overdue)
		if err != nil {
			return count, err
		}
		if matched {
			count++
		}
	}
	return count, nil
}
