package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// idCounterPrefix keeps document id counters apart from business numbering.
const idCounterPrefix = "_id:"

type Counters struct{ base }

func (r *Counters) NextSequence(ctx context.Context, name string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.next(ctx, name)
}

// next bumps the counter atomically with ADD; a missing counter starts at 1.
func (b base) next(ctx context.Context, name string) (int64, error) {
	update := expression.Add(expression.Name("seq"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, fmt.Errorf("counters.buildExpr: %w", err)
	}

	out, err := b.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(b.t.Counters),
		Key: map[string]types.AttributeValue{
			"counter_name": &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("counters.next %s: %w", name, err)
	}

	var seq int64
	if err := attributevalue.Unmarshal(out.Attributes["seq"], &seq); err != nil {
		return 0, fmt.Errorf("counters.unmarshal %s: %w", name, err)
	}
	return seq, nil
}

func (b base) nextID(ctx context.Context, table string) (int64, error) {
	return b.next(ctx, idCounterPrefix+table)
}
