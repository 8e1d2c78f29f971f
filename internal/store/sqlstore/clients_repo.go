package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type ClientRepo struct{ base }

func (r *ClientRepo) Create(ctx context.Context, c *core.Client) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := clientToRecord(*c)
	if err := db.Create(&rec).Error; err != nil {
		return fmt.Errorf("clients.insert: %w", err)
	}
	c.ID = rec.ID
	return nil
}

func (r *ClientRepo) Get(ctx context.Context, id int64) (core.Client, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rec clientRecord
	if err := db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Client{}, core.ErrClientNotFound
		}
		return core.Client{}, fmt.Errorf("clients.first: %w", err)
	}
	return rec.toCore(), nil
}

func (r *ClientRepo) Update(ctx context.Context, c core.Client) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := clientToRecord(c)
	res := db.Model(&clientRecord{}).Where("id = ?", c.ID).
		Select("*").Omit("id", "created_at").Updates(&rec)
	if res.Error != nil {
		return fmt.Errorf("clients.update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepo) Delete(ctx context.Context, id int64) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Delete(&clientRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("clients.delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepo) List(ctx context.Context, filter core.ClientFilter) ([]core.Client, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	q := db.Model(&clientRecord{})
	if filter.BrokerID != nil {
		q = q.Where("broker_id = ?", *filter.BrokerID)
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR cnp LIKE ?",
			like, like, like, like)
	}
	var recs []clientRecord
	if err := q.Order("last_name ASC, first_name ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("clients.find: %w", err)
	}
	out := make([]core.Client, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toCore())
	}
	return out, nil
}
