package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type ProductRepo struct{ base }

func (r *ProductRepo) Create(ctx context.Context, p *core.Product) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := productToRecord(*p)
	if err := db.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.ErrProductConflict
		}
		return fmt.Errorf("products.insert: %w", err)
	}
	p.ID = rec.ID
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, p core.Product) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	rec := productToRecord(p)
	res := db.Model(&productRecord{}).Where("id = ?", p.ID).
		Select("*").Omit("id", "created_at").Updates(&rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return core.ErrProductConflict
		}
		return fmt.Errorf("products.update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (core.Product, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (core.Product, error) {
	return r.first(ctx, "code = ?", code)
}

func (r *ProductRepo) first(ctx context.Context, query string, arg any) (core.Product, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rec productRecord
	if err := db.Where(query, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Product{}, core.ErrProductNotFound
		}
		return core.Product{}, fmt.Errorf("products.first: %w", err)
	}
	return rec.toCore(), nil
}

func (r *ProductRepo) List(ctx context.Context, filter core.ProductFilter) ([]core.Product, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	q := db.Model(&productRecord{})
	if filter.Category != "" {
		q = q.Where("category = ?", string(filter.Category))
	}
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	var recs []productRecord
	if err := q.Order("name ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("products.find: %w", err)
	}
	out := make([]core.Product, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toCore())
	}
	return out, nil
}
