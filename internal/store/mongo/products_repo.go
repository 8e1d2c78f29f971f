package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type ProductRepo struct {
	base
	coll *mongodrv.Collection
}

func (r *ProductRepo) Create(ctx context.Context, p *core.Product) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, ColProducts)
	if err != nil {
		return err
	}
	doc := toProductDoc(*p)
	doc.ID = id
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if isDuplicateKey(err) {
			return core.ErrProductConflict
		}
		return fmt.Errorf("products.insert: %w", err)
	}
	p.ID = id
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, p core.Product) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc := toProductDoc(p)
	res, err := r.coll.UpdateByID(ctx, p.ID, bson.M{"$set": bson.M{
		"name":          doc.Name,
		"code":          doc.Code,
		"description":   doc.Description,
		"category":      doc.Category,
		"insurer_name":  doc.InsurerName,
		"base_premium":  doc.BasePremium,
		"base_rate":     doc.BaseRate,
		"active":        doc.Active,
		"custom_fields": doc.CustomFields,
		"updated_at":    doc.UpdatedAt,
	}})
	if err != nil {
		if isDuplicateKey(err) {
			return core.ErrProductConflict
		}
		return fmt.Errorf("products.update: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (core.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (core.Product, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *ProductRepo) findOne(ctx context.Context, filter bson.M) (core.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc ProductDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Product{}, core.ErrProductNotFound
		}
		return core.Product{}, fmt.Errorf("products.findOne: %w", err)
	}
	return fromProductDoc(doc), nil
}

func productFilter(f core.ProductFilter) bson.M {
	m := bson.M{}
	if f.Category != "" {
		m["category"] = string(f.Category)
	}
	if f.ActiveOnly {
		m["active"] = true
	}
	return m
}

func (r *ProductRepo) List(ctx context.Context, filter core.ProductFilter) ([]core.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, productFilter(filter), options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("products.find: %w", err)
	}
	out, err := decodeAll(ctx, cur, fromProductDoc)
	if err != nil {
		return nil, fmt.Errorf("products.decode: %w", err)
	}
	return out, nil
}
