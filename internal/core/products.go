package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryLife     Category = "LIFE"
	CategoryHealth   Category = "HEALTH"
	CategoryAuto     Category = "AUTO"
	CategoryHome     Category = "HOME"
	CategoryTravel   Category = "TRAVEL"
	CategoryBusiness Category = "BUSINESS"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryLife, CategoryHealth, CategoryAuto, CategoryHome, CategoryTravel, CategoryBusiness:
		return true
	}
	return false
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldDate     FieldType = "date"
	FieldCheckbox FieldType = "checkbox"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldSelect, FieldDate, FieldCheckbox:
		return true
	}
	return false
}

// CustomFieldDefinition is an extra underwriting input a product asks for.
// The factor applies only when both FactorMultiplier and FactorCondition are set.
type CustomFieldDefinition struct {
	Name             string           `json:"name"`
	Label            string           `json:"label"`
	Type             FieldType        `json:"type"`
	Required         bool             `json:"required"`
	Options          []string         `json:"options,omitempty"`
	Placeholder      string           `json:"placeholder,omitempty"`
	FactorMultiplier *decimal.Decimal `json:"factor_multiplier,omitempty"`
	FactorCondition  *FactorCondition `json:"factor_condition,omitempty"`
}

func (f CustomFieldDefinition) hasFactor() bool {
	return f.FactorMultiplier != nil && f.FactorCondition != nil
}

type Product struct {
	ID           int64                   `json:"id"`
	Name         string                  `json:"name"`
	Code         string                  `json:"code"`
	Description  string                  `json:"description,omitempty"`
	Category     Category                `json:"category"`
	InsurerName  string                  `json:"insurer_name"`
	BasePremium  decimal.Decimal         `json:"base_premium"`
	BaseRate     decimal.Decimal         `json:"base_rate"` // fraction of sum insured
	Active       bool                    `json:"active"`
	CustomFields []CustomFieldDefinition `json:"custom_fields"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

type ProductFilter struct {
	Category   Category
	ActiveOnly bool
}

type ProductRepo interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p Product) error
	Get(ctx context.Context, id int64) (Product, error)
	GetByCode(ctx context.Context, code string) (Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "is required")
	}
	if strings.TrimSpace(p.Code) == "" {
		return invalid("code", "is required")
	}
	if !p.Category.Valid() {
		return invalid("category", fmt.Sprintf("unknown category %q", p.Category))
	}
	if p.BasePremium.IsNegative() {
		return invalid("base_premium", "must be >= 0")
	}
	if p.BaseRate.IsNegative() {
		return invalid("base_rate", "must be >= 0")
	}

	seen := make(map[string]bool, len(p.CustomFields))
	for i, f := range p.CustomFields {
		field := fmt.Sprintf("custom_fields[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			return invalid(field+".name", "is required")
		}
		if seen[f.Name] {
			return invalid(field+".name", fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[f.Name] = true
		if !f.Type.Valid() {
			return invalid(field+".type", fmt.Sprintf("unknown type %q", f.Type))
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return invalid(field+".options", "select fields need options")
		}
		if f.FactorMultiplier != nil && f.FactorMultiplier.IsNegative() {
			return invalid(field+".factor_multiplier", "must be >= 0")
		}
		if f.FactorCondition != nil {
			if err := f.FactorCondition.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Field looks up a custom field definition by name.
func (p Product) Field(name string) (CustomFieldDefinition, bool) {
	for _, f := range p.CustomFields {
		if f.Name == name {
			return f, true
		}
	}
	return CustomFieldDefinition{}, false
}

var (
	ErrProductNotFound = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrProductConflict = fmt.Errorf("%w: product code already exists", ErrConflict)
	ErrProductInactive = fmt.Errorf("%w: product is not active", ErrValidation)
)
