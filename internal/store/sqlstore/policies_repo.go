package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type PolicyRepo struct{ base }

func (r *PolicyRepo) Get(ctx context.Context, id int64) (core.Policy, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PolicyRepo) GetByNumber(ctx context.Context, number string) (core.Policy, error) {
	return r.first(ctx, "policy_number = ?", number)
}

func (r *PolicyRepo) first(ctx context.Context, query string, arg any) (core.Policy, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rec policyRecord
	if err := db.Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Policy{}, core.ErrPolicyNotFound
		}
		return core.Policy{}, fmt.Errorf("policies.first: %w", err)
	}
	return rec.toCore(), nil
}

func (r *PolicyRepo) List(ctx context.Context, filter core.PolicyFilter, limit, offset int) ([]core.Policy, int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	where := func(q *gorm.DB) *gorm.DB {
		if filter.BrokerID != nil {
			q = q.Where("broker_id = ?", *filter.BrokerID)
		}
		if filter.ClientID > 0 {
			q = q.Where("client_id = ?", filter.ClientID)
		}
		if filter.PaymentStatus != "" {
			q = q.Where("payment_status = ?", string(filter.PaymentStatus))
		}
		return policyStatusScope(q, filter.Status, filter.AsOf)
	}

	var total int64
	if err := db.Model(&policyRecord{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("policies.count: %w", err)
	}

	var recs []policyRecord
	err := db.Scopes(where).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("policies.find: %w", err)
	}
	out := make([]core.Policy, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toCore())
	}
	return out, total, nil
}

// policyStatusScope matches active and expired on their effective status when asOf is set.
func policyStatusScope(q *gorm.DB, status core.PolicyStatus, asOf time.Time) *gorm.DB {
	if status == "" {
		return q
	}
	if asOf.IsZero() {
		return q.Where("status = ?", string(status))
	}
	asOf = asOf.UTC()
	switch status {
	case core.PolicyStatusActive:
		return q.Where("status = ? AND end_date >= ?", string(core.PolicyStatusActive), asOf)
	case core.PolicyStatusExpired:
		return q.Where("status = ? OR (status = ? AND end_date < ?)",
			string(core.PolicyStatusExpired), string(core.PolicyStatusActive), asOf)
	}
	return q.Where("status = ?", string(status))
}

func (r *PolicyRepo) UpdateIf(ctx context.Context, p core.Policy, expect core.PolicyState) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := policyToRecord(p)
	res := db.Model(&policyRecord{}).
		Where("id = ? AND status = ? AND payment_status = ?", p.ID, string(expect.Status), string(expect.PaymentStatus)).
		Select("*").Omit("id", "policy_number", "offer_id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return fmt.Errorf("policies.update: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&policyRecord{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("policies.count: %w", err)
	}
	if count == 0 {
		return core.ErrPolicyNotFound
	}
	return fmt.Errorf("%w: policy %s changed concurrently", core.ErrInvalidState, p.PolicyNumber)
}

func (r *PolicyRepo) ExpirePolicies(ctx context.Context, before time.Time) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	before = before.UTC()
	res := db.Model(&policyRecord{}).
		Where("status = ? AND end_date < ?", string(core.PolicyStatusActive), before).
		Updates(map[string]any{
			"status":     string(core.PolicyStatusExpired),
			"updated_at": before,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("policies.expireMany: %w", res.Error)
	}
	return res.RowsAffected, nil
}
