package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type ActivityRepo struct{ base }

func (r *ActivityRepo) Append(ctx context.Context, e *core.ActivityLogEntry) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, r.t.Activity)
	if err != nil {
		return err
	}
	item := activityItemFromCore(*e)
	item.ID = id

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("activity.marshal: %w", err)
	}
	if _, err := r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.t.Activity),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("activity.putItem: %w", err)
	}
	e.ID = id
	return nil
}

func (r *ActivityRepo) ListForEntity(ctx context.Context, entityType core.EntityType, entityID int64, limit int) ([]core.ActivityLogEntry, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := expression.Key("entity_key").Equal(expression.Value(entityKey(entityType, entityID)))
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, fmt.Errorf("activity.buildExpr: %w", err)
	}
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.t.Activity),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false), // newest first
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := r.db.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("activity.query: %w", err)
	}
	var items []ActivityItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("activity.unmarshal: %w", err)
	}
	entries := make([]core.ActivityLogEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.ToCore())
	}
	return entries, nil
}
