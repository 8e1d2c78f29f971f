package core

import (
	"context"
	"strings"
	"time"
)

type ProductService interface {
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, actor Actor, p Product) (Product, error)
	Update(ctx context.Context, actor Actor, id int64, p Product) (Product, error)
}

type productService struct {
	products ProductRepo
	clock    func() time.Time
}

func NewProductService(repos Repositories, opts ...Option) ProductService {
	o := buildOptions(opts)
	return &productService{products: repos.Products, clock: o.clock}
}

func (s *productService) List(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.products.List(ctx, filter)
}

func (s *productService) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, invalid("product_id", "is required")
	}
	return s.products.Get(ctx, id)
}

// Create stores a product definition. Factor conditions arrive already parsed,
// so a malformed one has been rejected before this point.
func (s *productService) Create(ctx context.Context, actor Actor, p Product) (Product, error) {
	if err := Require(actor, PermManageProducts); err != nil {
		return Product{}, err
	}
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	now := s.clock()
	p.ID = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.products.Create(ctx, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *productService) Update(ctx context.Context, actor Actor, id int64, p Product) (Product, error) {
	if err := Require(actor, PermManageProducts); err != nil {
		return Product{}, err
	}
	existing, err := s.products.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.clock()
	if err := s.products.Update(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}
