package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func idKeyOf(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

// uniqueKey names the guard item that reserves value for field.
func uniqueKey(field, value string) string {
	return field + "#" + value
}

func reserveUnique(table, field, value string, owner int64) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(table),
		Item: map[string]types.AttributeValue{
			"key":      &types.AttributeValueMemberS{Value: uniqueKey(field, value)},
			"owner_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(owner, 10)},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": "key"},
	}}
}

func releaseUnique(table, field, value string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: uniqueKey(field, value)},
		},
	}}
}

// putIf builds a conditional Put for a transaction.
func putIf(table string, item any, cond expression.ConditionBuilder) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal %s: %w", table, err)
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("build %s condition: %w", table, err)
	}
	return types.TransactWriteItem{Put: &types.Put{
		TableName:                           aws.String(table),
		Item:                                av,
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}}, nil
}

func notExists() expression.ConditionBuilder {
	return expression.AttributeNotExists(expression.Name("id"))
}

func exists() expression.ConditionBuilder {
	return expression.AttributeExists(expression.Name("id"))
}

// allOf joins conditions with AND; ok is false when there are none.
func allOf(conds []expression.ConditionBuilder) (expression.ConditionBuilder, bool) {
	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, false
	case 1:
		return conds[0], true
	default:
		return expression.And(conds[0], conds[1], conds[2:]...), true
	}
}

func scanInput(table string, conds []expression.ConditionBuilder) (*dynamodb.ScanInput, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(table)}
	cond, ok := allOf(conds)
	if !ok {
		return in, nil
	}
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("build %s filter: %w", table, err)
	}
	in.FilterExpression = expr.Filter()
	in.ExpressionAttributeNames = expr.Names()
	in.ExpressionAttributeValues = expr.Values()
	return in, nil
}

// scanAll pages through a filtered scan and maps every item to its core value.
func scanAll[I interface{ ToCore() T }, T any](ctx context.Context, db api, table string, conds []expression.ConditionBuilder) ([]T, error) {
	in, err := scanInput(table, conds)
	if err != nil {
		return nil, err
	}
	out := []T{}
	pages := dynamodb.NewScanPaginator(db, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		var items []I
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", table, err)
		}
		for _, item := range items {
			out = append(out, item.ToCore())
		}
	}
	return out, nil
}

// getItem loads one item by id; found is false when it does not exist.
func getItem[I any](ctx context.Context, db api, table string, id int64) (item I, found bool, err error) {
	out, err := db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            idKeyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return item, false, fmt.Errorf("get %s: %w", table, err)
	}
	if out.Item == nil {
		return item, false, nil
	}
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return item, false, fmt.Errorf("unmarshal %s: %w", table, err)
	}
	return item, true, nil
}

// queryOne reads the first item of a single-attribute GSI lookup.
func queryOne[I any](ctx context.Context, db api, table, index, attr string, value expression.ValueBuilder) (item I, found bool, err error) {
	key := expression.Key(attr).Equal(value)
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return item, false, fmt.Errorf("build %s key: %w", index, err)
	}
	out, err := db.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return item, false, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return item, false, nil
	}
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return item, false, fmt.Errorf("unmarshal %s: %w", table, err)
	}
	return item, true, nil
}

// updateIf applies update while cond holds. matched is false when the
// condition failed; missing is true when the item does not exist at all.
func updateIf(ctx context.Context, db api, table string, id int64, update expression.UpdateBuilder, cond expression.ConditionBuilder) (matched, missing bool, err error) {
	in, err := updateInput(table, id, update, cond)
	if err != nil {
		return false, false, err
	}
	if _, err := db.UpdateItem(ctx, in); err != nil {
		if ccf, ok := isConditionFailed(err); ok {
			return false, len(ccf.Item) == 0, nil
		}
		return false, false, fmt.Errorf("update %s: %w", table, err)
	}
	return true, false, nil
}

func updateInput(table string, id int64, update expression.UpdateBuilder, cond expression.ConditionBuilder) (*dynamodb.UpdateItemInput, error) {
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("build %s update: %w", table, err)
	}
	return &dynamodb.UpdateItemInput{
		TableName:                           aws.String(table),
		Key:                                 idKeyOf(id),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}, nil
}
