package dynamo

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

const uniqueProductCode = "products.code"

type ProductRepo struct{ base }

func (r *ProductRepo) Create(ctx context.Context, p *core.Product) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, r.t.Products)
	if err != nil {
		return err
	}
	item := productItemFromCore(*p)
	item.ID = id

	put, err := putIf(r.t.Products, item, notExists())
	if err != nil {
		return err
	}
	_, err = r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			put,
			reserveUnique(r.t.Uniques, uniqueProductCode, p.Code, id),
		},
	})
	if err != nil {
		if _, ok := canceledAt(err, 1); ok {
			return core.ErrProductConflict
		}
		return fmt.Errorf("products.create: %w", err)
	}
	p.ID = id
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, p core.Product) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	current, found, err := getItem[ProductItem](ctx, r.db, r.t.Products, p.ID)
	if err != nil {
		return err
	}
	if !found {
		return core.ErrProductNotFound
	}

	item := productItemFromCore(p)
	item.CreatedAt = current.CreatedAt
	put, err := putIf(r.t.Products, item, exists())
	if err != nil {
		return err
	}
	tx := []types.TransactWriteItem{put}
	if current.Code != p.Code {
		tx = append(tx,
			reserveUnique(r.t.Uniques, uniqueProductCode, p.Code, p.ID),
			releaseUnique(r.t.Uniques, uniqueProductCode, current.Code),
		)
	}

	if _, err := r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx}); err != nil {
		if _, ok := canceledAt(err, 0); ok {
			return core.ErrProductNotFound
		}
		if _, ok := canceledAt(err, 1); ok {
			return core.ErrProductConflict
		}
		return fmt.Errorf("products.update: %w", err)
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id int64) (core.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := getItem[ProductItem](ctx, r.db, r.t.Products, id)
	if err != nil {
		return core.Product{}, err
	}
	if !found {
		return core.Product{}, core.ErrProductNotFound
	}
	return item.ToCore(), nil
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (core.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := queryOne[ProductItem](ctx, r.db, r.t.Products, GSIProductsCode, "code", expression.Value(code))
	if err != nil {
		return core.Product{}, err
	}
	if !found {
		return core.Product{}, core.ErrProductNotFound
	}
	return item.ToCore(), nil
}

func productConditions(f core.ProductFilter) []expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	if f.Category != "" {
		conds = append(conds, expression.Name("category").Equal(expression.Value(string(f.Category))))
	}
	if f.ActiveOnly {
		conds = append(conds, expression.Name("active").Equal(expression.Value(true)))
	}
	return conds
}

func (r *ProductRepo) List(ctx context.Context, filter core.ProductFilter) ([]core.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := scanAll[ProductItem, core.Product](ctx, r.db, r.t.Products, productConditions(filter))
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b core.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}
