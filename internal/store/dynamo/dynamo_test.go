package dynamo

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

var t0 = time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)

// fakeDB answers counter bumps and records transactions; anything else panics.
type fakeDB struct {
	api
	seq   map[string]int64
	txs   []*dynamodb.TransactWriteItemsInput
	txErr error
}

func (f *fakeDB) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	name := in.Key["counter_name"].(*types.AttributeValueMemberS).Value
	if f.seq == nil {
		f.seq = map[string]int64{}
	}
	f.seq[name]++
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
		"seq": &types.AttributeValueMemberN{Value: strconv.FormatInt(f.seq[name], 10)},
	}}, nil
}

func (f *fakeDB) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.txs = append(f.txs, in)
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func newBase(db api) base {
	return base{db: db, t: newTableNames("t_"), opTimeout: time.Second}
}

func stringValues(m map[string]types.AttributeValue) []string {
	var out []string
	for _, v := range m {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}

func TestStoredTimesSortAsText(t *testing.T) {
	early := t0.Add(1500 * time.Millisecond)
	late := t0.Add(2 * time.Second)
	assert.Less(t, fmtTime(early), fmtTime(late))
	assert.True(t, parseTime(fmtTime(early)).Equal(early))

	local := time.Date(2025, time.June, 2, 12, 0, 0, 0, time.FixedZone("EET", 2*3600))
	assert.Equal(t, fmtTime(t0), fmtTime(local))

	assert.Nil(t, parseTimePtr(""))
	assert.Empty(t, fmtTimePtr(nil))
}

func TestOfferItemRoundTrip(t *testing.T) {
	accepted := t0.Add(time.Hour)
	o := core.Offer{
		ID:          3,
		OfferNumber: "OFF-2025-00003",
		Premium:     decimal.RequireFromString("310.55"),
		SumInsured:  decimal.NewFromInt(20000),
		Breakdown: core.PremiumBreakdown{
			BasePremium:  decimal.RequireFromString("300.00"),
			Factors:      []core.PremiumFactor{},
			FinalPremium: decimal.RequireFromString("310.55"),
		},
		Status:            core.OfferStatusAccepted,
		CustomFieldValues: map[string]any{"region": "north"},
		ExpiresAt:         t0.AddDate(0, 0, 30),
		AcceptedAt:        &accepted,
		CreatedAt:         t0,
	}

	av, err := attributevalue.MarshalMap(offerItemFromCore(o))
	require.NoError(t, err)
	assert.NotContains(t, av, "rejected_at")

	var item OfferItem
	require.NoError(t, attributevalue.UnmarshalMap(av, &item))
	got := item.ToCore()
	assert.Equal(t, "310.55", got.Premium.StringFixed(2))
	assert.True(t, got.AcceptedAt.Equal(accepted))
	assert.Nil(t, got.RejectedAt)
	assert.Equal(t, map[string]any{"region": "north"}, got.CustomFieldValues)
	assert.True(t, o.Breakdown.FinalPremium.Equal(got.Breakdown.FinalPremium))
}

func TestClientSearchTextIsLowercased(t *testing.T) {
	item := clientItemFromCore(core.Client{FirstName: "Ana", LastName: "POP", Email: "Ana@Example.com", CNP: "2850101123451"})
	assert.Equal(t, "ana pop ana@example.com 2850101123451", item.SearchText)

	conds := clientConditions(core.ClientFilter{Search: "  ANA "})
	require.Len(t, conds, 1)
	expr, err := expression.NewBuilder().WithFilter(conds[0]).Build()
	require.NoError(t, err)
	assert.Contains(t, stringValues(expr.Values()), "ana")
}

func TestOfferConditionsUseEffectiveStatus(t *testing.T) {
	broker := int64(4)
	conds := offerConditions(core.OfferFilter{BrokerID: &broker, Status: core.OfferStatusPending, AsOf: t0})
	require.Len(t, conds, 3)

	in, err := scanInput("t_offers", conds)
	require.NoError(t, err)
	require.NotNil(t, in.FilterExpression)
	values := stringValues(in.ExpressionAttributeValues)
	assert.Contains(t, values, "PENDING")
	assert.Contains(t, values, fmtTime(t0))

	expired := offerConditions(core.OfferFilter{Status: core.OfferStatusExpired, AsOf: t0})
	require.Len(t, expired, 1)
	in, err = scanInput("t_offers", expired)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"EXPIRED", "PENDING", fmtTime(t0)}, stringValues(in.ExpressionAttributeValues))

	in, err = scanInput("t_offers", offerConditions(core.OfferFilter{}))
	require.NoError(t, err)
	assert.Nil(t, in.FilterExpression)
}

func TestPolicyConditions(t *testing.T) {
	conds := policyConditions(core.PolicyFilter{PaymentStatus: core.PaymentStatusPending, Status: core.PolicyStatusSuspended, AsOf: t0})
	require.Len(t, conds, 2)
	assert.Empty(t, policyConditions(core.PolicyFilter{}))
}

func TestPolicyUpdateSkipsIdentityAndEmptyFields(t *testing.T) {
	by := int64(2)
	update := policyUpdate(policyItemFromCore(core.Policy{
		ID:            5,
		PolicyNumber:  "POL-2025-00001",
		OfferID:       7,
		Status:        core.PolicyStatusActive,
		PaymentStatus: core.PaymentStatusValidated,
		ValidatedBy:   &by,
		CreatedAt:     t0,
	}))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	require.NoError(t, err)

	var names []string
	for _, n := range expr.Names() {
		names = append(names, n)
	}
	assert.Contains(t, names, "validated_by")
	assert.Contains(t, names, "payment_status")
	for _, skipped := range []string{"id", "policy_number", "offer_id", "created_at", "cancelled_at", "proof_of_payment"} {
		assert.NotContains(t, names, skipped)
	}
}

func TestPage(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, page(all, 2, 2))
	assert.Equal(t, []int{5}, page(all, 10, 4))
	assert.Equal(t, []int{}, page(all, 2, 9))
	assert.Equal(t, all, page(all, 0, 0))
}

func TestCounterStartsAtOne(t *testing.T) {
	db := &fakeDB{}
	c := &Counters{newBase(db)}

	first, err := c.NextSequence(context.Background(), "offerSequence")
	require.NoError(t, err)
	second, err := c.NextSequence(context.Background(), "offerSequence")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func issuance() core.Issuance {
	return core.Issuance{
		OfferID:    11,
		AcceptedAt: t0,
		Policy:     &core.Policy{PolicyNumber: "POL-2025-00001", OfferID: 11, Status: core.PolicyStatusPending, CreatedAt: t0},
		Commission: &core.Commission{PolicyNumber: "POL-2025-00001", Amount: decimal.RequireFromString("25.00"), CreatedAt: t0},
	}
}

func TestIssuePolicyWritesOneTransaction(t *testing.T) {
	db := &fakeDB{}
	in := issuance()

	require.NoError(t, (&Issuer{newBase(db)}).IssuePolicy(context.Background(), in))

	require.Len(t, db.txs, 1)
	tx := db.txs[0].TransactItems
	require.Len(t, tx, 5)
	assert.Equal(t, "t_offers", aws.ToString(tx[txOffer].Update.TableName))
	assert.Contains(t, stringValues(tx[txOffer].Update.ExpressionAttributeValues), "PENDING")
	assert.Equal(t, "t_policies", aws.ToString(tx[txPolicy].Put.TableName))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "policies.offer_id#11"}, tx[txOfferGuard].Put.Item["key"])
	assert.Equal(t, "t_commissions", aws.ToString(tx[txCommission].Put.TableName))

	assert.Equal(t, int64(1), in.Policy.ID)
	assert.Equal(t, int64(1), in.Commission.ID)
	assert.Equal(t, in.Policy.ID, in.Commission.PolicyID)
}

func TestIssuePolicyMapsCancellation(t *testing.T) {
	ccf := aws.String("ConditionalCheckFailed")
	none := aws.String("None")
	cancelled := func(reasons ...types.CancellationReason) error {
		return &types.TransactionCanceledException{CancellationReasons: reasons}
	}
	oldOffer := map[string]types.AttributeValue{"status": &types.AttributeValueMemberS{Value: "ACCEPTED"}}

	cases := map[string]struct {
		err  error
		want error
	}{
		"offer already claimed": {
			err:  cancelled(types.CancellationReason{Code: ccf, Item: oldOffer}, types.CancellationReason{Code: none}),
			want: core.ErrInvalidState,
		},
		"offer missing": {
			err:  cancelled(types.CancellationReason{Code: ccf}),
			want: core.ErrOfferNotFound,
		},
		"policy for offer exists": {
			err: cancelled(
				types.CancellationReason{Code: none},
				types.CancellationReason{Code: none},
				types.CancellationReason{Code: ccf},
			),
			want: core.ErrPolicyExists,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := &fakeDB{txErr: tc.err}
			in := issuance()
			err := (&Issuer{newBase(db)}).IssuePolicy(context.Background(), in)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, in.Policy.ID)
		})
	}

	t.Run("other failures are wrapped", func(t *testing.T) {
		boom := errors.New("throttled")
		db := &fakeDB{txErr: boom}
		assert.ErrorIs(t, (&Issuer{newBase(db)}).IssuePolicy(context.Background(), issuance()), boom)
	})
}

func TestCreateTableInput(t *testing.T) {
	specs := tableSpecs(newTableNames("p_"))
	byName := map[string]tableSpec{}
	for _, s := range specs {
		byName[s.name] = s
	}

	activity := createTableInput(byName["p_activity_log"])
	require.Len(t, activity.KeySchema, 2)
	assert.Equal(t, types.KeyTypeRange, activity.KeySchema[1].KeyType)
	assert.Len(t, activity.AttributeDefinitions, 2)

	policies := createTableInput(byName["p_policies"])
	assert.Len(t, policies.GlobalSecondaryIndexes, 2)
	assert.Len(t, policies.AttributeDefinitions, 3)
	assert.Equal(t, types.BillingModePayPerRequest, policies.BillingMode)
}
