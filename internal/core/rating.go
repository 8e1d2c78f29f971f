package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	seniorAgeThreshold = 60
	youngAgeThreshold  = 25

	AgeFactorName         = "Age Factor"
	YoungDriverFactorName = "Young Driver Factor"
)

var (
	seniorMultiplier = decimal.RequireFromString("1.25")
	youngMultiplier  = decimal.RequireFromString("1.15")
)

// RatingInput is everything the premium depends on. The product is read, never mutated.
type RatingInput struct {
	Product           Product
	SumInsured        decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	CustomFieldValues map[string]any
	ClientCNP         string
}

type PremiumFactor struct {
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Reason     string          `json:"reason"`
}

type PremiumBreakdown struct {
	BasePremium  decimal.Decimal `json:"base_premium"`
	Factors      []PremiumFactor `json:"factors"`
	FinalPremium decimal.Decimal `json:"final_premium"`
}

type PremiumQuote struct {
	Premium   decimal.Decimal  `json:"premium"`
	Breakdown PremiumBreakdown `json:"breakdown"`
}

// Round2 rounds money to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// CalculatePremium prices a product for the given inputs. It does no I/O; now pins
// the evaluation date used for the start-date check and the client's age.
func CalculatePremium(in RatingInput, now time.Time) (PremiumQuote, error) {
	if err := in.validate(now); err != nil {
		return PremiumQuote{}, err
	}

	base := Round2(in.SumInsured.Mul(in.Product.BaseRate))
	factors := make([]PremiumFactor, 0, len(in.Product.CustomFields)+1)

	for _, f := range in.Product.CustomFields {
		if !f.hasFactor() {
			continue
		}
		if f.FactorCondition.Matches(in.CustomFieldValues[f.Name]) {
			factors = append(factors, PremiumFactor{
				Name:       f.Label,
				Multiplier: *f.FactorMultiplier,
				Reason:     "Factor applied for " + f.Label,
			})
		}
	}

	if age, err := AgeFromCNP(in.ClientCNP, now); err == nil {
		if f, ok := ageFactor(age); ok {
			factors = append(factors, f)
		}
	}

	premium := base
	for _, f := range factors {
		premium = Round2(premium.Mul(f.Multiplier))
	}

	return PremiumQuote{
		Premium: premium,
		Breakdown: PremiumBreakdown{
			BasePremium:  base,
			Factors:      factors,
			FinalPremium: premium,
		},
	}, nil
}

// ageFactor returns at most one factor; the two age bands are disjoint.
func ageFactor(age int) (PremiumFactor, bool) {
	switch {
	case age > seniorAgeThreshold:
		return PremiumFactor{
			Name:       AgeFactorName,
			Multiplier: seniorMultiplier,
			Reason:     fmt.Sprintf("Client is over %d years old", seniorAgeThreshold),
		}, true
	case age < youngAgeThreshold:
		return PremiumFactor{
			Name:       YoungDriverFactorName,
			Multiplier: youngMultiplier,
			Reason:     fmt.Sprintf("Client is under %d years old", youngAgeThreshold),
		}, true
	}
	return PremiumFactor{}, false
}

func (in RatingInput) validate(now time.Time) error {
	if !in.SumInsured.IsPositive() {
		return invalid("sum_insured", "must be > 0")
	}
	for _, f := range in.Product.CustomFields {
		if f.Required && !present(in.CustomFieldValues[f.Name]) {
			return invalid("custom_field_values."+f.Name, "is required")
		}
	}
	if in.StartDate.IsZero() || !in.StartDate.After(now) {
		return invalid("start_date", "must be in the future")
	}
	if !in.EndDate.After(in.StartDate) {
		return invalid("end_date", "must be after start_date")
	}
	return nil
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	}
	return true
}
