package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type CommissionRepo struct{ base }

func (r *CommissionRepo) Get(ctx context.Context, id int64) (core.Commission, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rec commissionRecord
	if err := db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Commission{}, core.ErrCommissionNotFound
		}
		return core.Commission{}, fmt.Errorf("commissions.first: %w", err)
	}
	return rec.toCore(), nil
}

func (r *CommissionRepo) List(ctx context.Context, filter core.CommissionFilter) ([]core.Commission, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	q := db.Model(&commissionRecord{})
	if filter.BrokerID != nil {
		q = q.Where("broker_id = ?", *filter.BrokerID)
	}
	if filter.PolicyID > 0 {
		q = q.Where("policy_id = ?", filter.PolicyID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var recs []commissionRecord
	if err := q.Order("created_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("commissions.find: %w", err)
	}
	out := make([]core.Commission, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toCore())
	}
	return out, nil
}

func (r *CommissionRepo) TransitionStatus(ctx context.Context, id int64, from, next core.CommissionStatus, paidAt *time.Time, at time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	updates := map[string]any{
		"status":     string(next),
		"updated_at": at.UTC(),
	}
	if paidAt != nil {
		updates["payment_date"] = paidAt.UTC()
	}
	res := db.Model(&commissionRecord{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("commissions.transition: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&commissionRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("commissions.count: %w", err)
	}
	if count == 0 {
		return core.ErrCommissionNotFound
	}
	return fmt.Errorf("%w: commission %d is no longer %s", core.ErrInvalidState, id, from)
}
