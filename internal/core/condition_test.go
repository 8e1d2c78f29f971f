package core_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

func TestParseFactorCondition(t *testing.T) {
	tests := []struct {
		raw  string
		want core.FactorCondition
	}{
		{"value === true", core.Equals("true")},
		{"=== Gold", core.Equals("Gold")},
		{"value == 'Gold'", core.Equals("Gold")},
		{`value === "Premium Plus"`, core.Equals("Premium Plus")},
		{"value > 50", core.GreaterThan(dec("50"))},
		{"  value<25 ", core.LessThan(dec("25"))},
		{"> 2.5", core.GreaterThan(dec("2.5"))},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := core.ParseFactorCondition(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Literal, got.Literal)
			assert.True(t, tt.want.Threshold.Equal(got.Threshold))
		})
	}
}

func TestParseFactorConditionRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "value", "value >= 5", "value > many", "value ===", "value != 3"} {
		t.Run(raw, func(t *testing.T) {
			_, err := core.ParseFactorCondition(raw)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestFactorConditionMatches(t *testing.T) {
	tests := []struct {
		name  string
		cond  core.FactorCondition
		value any
		want  bool
	}{
		{"bool literal true", core.Equals("true"), true, true},
		{"bool literal false", core.Equals("true"), false, false},
		{"bool literal needs a bool", core.Equals("true"), "true", false},
		{"false literal", core.Equals("false"), false, true},
		{"string literal", core.Equals("Gold"), "Gold", true},
		{"string literal is case sensitive", core.Equals("Gold"), "gold", false},
		{"numeric literal against number", core.Equals("3"), float64(3), true},
		{"greater than number", core.GreaterThan(dec("50")), float64(51), true},
		{"greater than boundary", core.GreaterThan(dec("50")), float64(50), false},
		{"greater than numeric string", core.GreaterThan(dec("50")), "75", true},
		{"less than", core.LessThan(dec("25")), 24, true},
		{"less than boundary", core.LessThan(dec("25")), 25, false},
		{"empty string never compares", core.LessThan(dec("25")), "", false},
		{"text never compares", core.LessThan(dec("25")), "young", false},
		{"nil never matches", core.Equals("Gold"), nil, false},
		{"nil never compares", core.GreaterThan(dec("0")), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Matches(tt.value))
		})
	}
}

func TestFactorConditionJSON(t *testing.T) {
	var fromExpr core.FactorCondition
	require.NoError(t, json.Unmarshal([]byte(`"value > 10"`), &fromExpr))
	assert.Equal(t, core.ConditionGreaterThan, fromExpr.Kind)

	var fromObject core.FactorCondition
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"equals","literal":"Gold"}`), &fromObject))
	assert.Equal(t, core.Equals("Gold"), fromObject)

	out, err := json.Marshal(core.LessThan(dec("25")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"less_than","threshold":"25","expression":"value < 25"}`, string(out))

	var bad core.FactorCondition
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"kind":"greater_than"}`), &bad), core.ErrValidation)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"value ~ 3"`), &bad), core.ErrValidation)
}

func TestProductValidateChecksFactorConditions(t *testing.T) {
	p := core.Product{
		Name:     "Travel",
		Code:     "TRV",
		Category: core.CategoryTravel,
		BaseRate: dec("0.01"),
		CustomFields: []core.CustomFieldDefinition{
			{Name: "zone", Label: "Zone", Type: core.FieldSelect, Options: []string{"EU", "World"},
				FactorMultiplier: decPtr("1.8"), FactorCondition: &core.FactorCondition{Kind: "regex"}},
		},
	}
	assert.ErrorIs(t, p.Validate(), core.ErrValidation)

	p.CustomFields[0].FactorCondition = condPtr(core.Equals("World"))
	assert.NoError(t, p.Validate())

	p.CustomFields = append(p.CustomFields, core.CustomFieldDefinition{Name: "zone", Type: core.FieldText})
	assert.ErrorIs(t, p.Validate(), core.ErrValidation)
}
