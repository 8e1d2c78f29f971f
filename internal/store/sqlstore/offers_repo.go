package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type OfferRepo struct{ base }

func (r *OfferRepo) Create(ctx context.Context, o *core.Offer) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := offerToRecord(*o)
	if err := db.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: offer number %s already used", core.ErrConflict, o.OfferNumber)
		}
		return fmt.Errorf("offers.insert: %w", err)
	}
	o.ID = rec.ID
	return nil
}

func (r *OfferRepo) Get(ctx context.Context, id int64) (core.Offer, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rec offerRecord
	if err := db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Offer{}, core.ErrOfferNotFound
		}
		return core.Offer{}, fmt.Errorf("offers.first: %w", err)
	}
	return rec.toCore(), nil
}

func (r *OfferRepo) List(ctx context.Context, filter core.OfferFilter) ([]core.Offer, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	q := db.Model(&offerRecord{})
	if filter.BrokerID != nil {
		q = q.Where("broker_id = ?", *filter.BrokerID)
	}
	if filter.ClientID > 0 {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	q = offerStatusScope(q, filter.Status, filter.AsOf)

	var recs []offerRecord
	if err := q.Order("created_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("offers.find: %w", err)
	}
	out := make([]core.Offer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toCore())
	}
	return out, nil
}

// offerStatusScope matches pending and expired on their effective status when asOf is set.
func offerStatusScope(q *gorm.DB, status core.OfferStatus, asOf time.Time) *gorm.DB {
	if status == "" {
		return q
	}
	if asOf.IsZero() {
		return q.Where("status = ?", string(status))
	}
	asOf = asOf.UTC()
	switch status {
	case core.OfferStatusPending:
		return q.Where("status = ? AND expires_at >= ?", string(core.OfferStatusPending), asOf)
	case core.OfferStatusExpired:
		return q.Where("status = ? OR (status = ? AND expires_at < ?)",
			string(core.OfferStatusExpired), string(core.OfferStatusPending), asOf)
	}
	return q.Where("status = ?", string(status))
}

func (r *OfferRepo) TransitionStatus(ctx context.Context, id int64, from, next core.OfferStatus, at time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return transitionOffer(db, id, from, next, at)
}

func transitionOffer(db *gorm.DB, id int64, from, next core.OfferStatus, at time.Time) error {
	at = at.UTC()
	updates := map[string]any{
		"status":     string(next),
		"updated_at": at,
	}
	switch next {
	case core.OfferStatusAccepted:
		updates["accepted_at"] = at
	case core.OfferStatusRejected:
		updates["rejected_at"] = at
	}

	res := db.Model(&offerRecord{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("offers.transition: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&offerRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("offers.count: %w", err)
	}
	if count == 0 {
		return core.ErrOfferNotFound
	}
	return fmt.Errorf("%w: offer %d is no longer %s", core.ErrInvalidState, id, from)
}

func (r *OfferRepo) ExpireOffers(ctx context.Context, before time.Time) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	before = before.UTC()
	res := db.Model(&offerRecord{}).
		Where("status = ? AND expires_at < ?", string(core.OfferStatusPending), before).
		Updates(map[string]any{
			"status":     string(core.OfferStatusExpired),
			"updated_at": before,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("offers.expireMany: %w", res.Error)
	}
	return res.RowsAffected, nil
}
