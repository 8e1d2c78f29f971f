package core

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type ConditionKind string

const (
	ConditionEquals      ConditionKind = "equals"
	ConditionLessThan    ConditionKind = "less_than"
	ConditionGreaterThan ConditionKind = "greater_than"
)

// FactorCondition decides whether a custom field's factor applies to a value.
// Literal is set for ConditionEquals, Threshold for the ordered comparisons.
type FactorCondition struct {
	Kind      ConditionKind
	Literal   string
	Threshold decimal.Decimal
}

func Equals(literal string) FactorCondition {
	return FactorCondition{Kind: ConditionEquals, Literal: literal}
}

func LessThan(n decimal.Decimal) FactorCondition {
	return FactorCondition{Kind: ConditionLessThan, Threshold: n}
}

func GreaterThan(n decimal.Decimal) FactorCondition {
	return FactorCondition{Kind: ConditionGreaterThan, Threshold: n}
}

// ParseFactorCondition reads the textual form used in product definitions:
// "value === true", "=== Gold", "value > 50", "< 25". The leading "value" is optional.
func ParseFactorCondition(raw string) (FactorCondition, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "value"))

	switch {
	case strings.HasPrefix(s, "==="):
		return parseEquals(strings.TrimPrefix(s, "==="), raw)
	case strings.HasPrefix(s, "=="):
		return parseEquals(strings.TrimPrefix(s, "=="), raw)
	case strings.HasPrefix(s, "<"):
		n, err := parseThreshold(strings.TrimPrefix(s, "<"), raw)
		if err != nil {
			return FactorCondition{}, err
		}
		return LessThan(n), nil
	case strings.HasPrefix(s, ">"):
		n, err := parseThreshold(strings.TrimPrefix(s, ">"), raw)
		if err != nil {
			return FactorCondition{}, err
		}
		return GreaterThan(n), nil
	}
	return FactorCondition{}, invalid("factor_condition", fmt.Sprintf("unsupported expression %q", raw))
}

func parseEquals(rest, raw string) (FactorCondition, error) {
	lit := strings.TrimSpace(rest)
	if len(lit) >= 2 {
		if q := lit[0]; (q == '"' || q == '\'') && lit[len(lit)-1] == q {
			lit = lit[1 : len(lit)-1]
		}
	}
	if lit == "" {
		return FactorCondition{}, invalid("factor_condition", fmt.Sprintf("missing literal in %q", raw))
	}
	return Equals(lit), nil
}

func parseThreshold(rest, raw string) (decimal.Decimal, error) {
	n, err := decimal.NewFromString(strings.TrimSpace(rest))
	if err != nil {
		return decimal.Decimal{}, invalid("factor_condition", fmt.Sprintf("threshold in %q is not a number", raw))
	}
	return n, nil
}

func (c FactorCondition) validate() error {
	switch c.Kind {
	case ConditionEquals:
		if c.Literal == "" {
			return invalid("factor_condition", "equals needs a literal")
		}
	case ConditionLessThan, ConditionGreaterThan:
	default:
		return invalid("factor_condition", fmt.Sprintf("unknown kind %q", c.Kind))
	}
	return nil
}

// String renders the canonical textual form.
func (c FactorCondition) String() string {
	switch c.Kind {
	case ConditionEquals:
		return "value === " + c.Literal
	case ConditionLessThan:
		return "value < " + c.Threshold.String()
	case ConditionGreaterThan:
		return "value > " + c.Threshold.String()
	}
	return ""
}

// Matches evaluates the condition. A value that cannot be compared never matches.
func (c FactorCondition) Matches(value any) bool {
	switch c.Kind {
	case ConditionEquals:
		if c.Literal == "true" || c.Literal == "false" {
			b, ok := value.(bool)
			return ok && b == (c.Literal == "true")
		}
		s, ok := stringify(value)
		return ok && s == c.Literal
	case ConditionLessThan:
		n, ok := numeric(value)
		return ok && n.LessThan(c.Threshold)
	case ConditionGreaterThan:
		n, ok := numeric(value)
		return ok && n.GreaterThan(c.Threshold)
	}
	return false
}

func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	case decimal.Decimal:
		return x.String(), true
	}
	return fmt.Sprint(v), true
}

func numeric(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case decimal.Decimal:
		return x, true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

type factorConditionJSON struct {
	Kind       ConditionKind    `json:"kind"`
	Literal    string           `json:"literal,omitempty"`
	Threshold  *decimal.Decimal `json:"threshold,omitempty"`
	Expression string           `json:"expression,omitempty"`
}

func (c FactorCondition) MarshalJSON() ([]byte, error) {
	out := factorConditionJSON{Kind: c.Kind, Expression: c.String()}
	if c.Kind == ConditionEquals {
		out.Literal = c.Literal
	} else {
		t := c.Threshold
		out.Threshold = &t
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts either the textual expression or the structured object.
func (c *FactorCondition) UnmarshalJSON(b []byte) error {
	var expr string
	if err := json.Unmarshal(b, &expr); err == nil {
		parsed, err := ParseFactorCondition(expr)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var in factorConditionJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return invalid("factor_condition", "must be an expression or an object")
	}
	if in.Kind == "" && in.Expression != "" {
		parsed, err := ParseFactorCondition(in.Expression)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	parsed := FactorCondition{Kind: in.Kind, Literal: in.Literal}
	if in.Threshold != nil {
		parsed.Threshold = *in.Threshold
	} else if in.Kind == ConditionLessThan || in.Kind == ConditionGreaterThan {
		return invalid("factor_condition", "comparison needs a threshold")
	}
	if err := parsed.validate(); err != nil {
		return err
	}
	*c = parsed
	return nil
}
