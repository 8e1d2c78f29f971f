package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type BrokerRepo struct{ base }

func (r *BrokerRepo) Create(ctx context.Context, b *core.Broker) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := brokerToRecord(*b)
	if err := db.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.ErrBrokerConflict
		}
		return fmt.Errorf("brokers.insert: %w", err)
	}
	b.ID = rec.ID
	return nil
}

func (r *BrokerRepo) Update(ctx context.Context, b core.Broker) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := brokerToRecord(b)
	res := db.Model(&brokerRecord{}).Where("id = ?", b.ID).
		Select("*").Omit("id", "created_at").Updates(&rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return core.ErrBrokerConflict
		}
		return fmt.Errorf("brokers.update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrBrokerNotFound
	}
	return nil
}

func (r *BrokerRepo) Get(ctx context.Context, id int64) (core.Broker, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *BrokerRepo) GetByEmail(ctx context.Context, email string) (core.Broker, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *BrokerRepo) first(ctx context.Context, query string, arg any) (core.Broker, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rec brokerRecord
	if err := db.Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Broker{}, core.ErrBrokerNotFound
		}
		return core.Broker{}, fmt.Errorf("brokers.first: %w", err)
	}
	return rec.toCore(), nil
}

func (r *BrokerRepo) List(ctx context.Context) ([]core.Broker, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var recs []brokerRecord
	if err := db.Order("last_name ASC, first_name ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("brokers.find: %w", err)
	}
	out := make([]core.Broker, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toCore())
	}
	return out, nil
}
