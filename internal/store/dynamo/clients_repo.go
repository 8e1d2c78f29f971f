package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

type ClientRepo struct{ base }

func (r *ClientRepo) Create(ctx context.Context, c *core.Client) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, r.t.Clients)
	if err != nil {
		return err
	}
	item := clientItemFromCore(*c)
	item.ID = id
	if err := r.put(ctx, item, notExists()); err != nil {
		if _, ok := isConditionFailed(err); ok {
			return fmt.Errorf("%w: client id %d already used", core.ErrConflict, id)
		}
		return err
	}
	c.ID = id
	return nil
}

func (r *ClientRepo) Get(ctx context.Context, id int64) (core.Client, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := getItem[ClientItem](ctx, r.db, r.t.Clients, id)
	if err != nil {
		return core.Client{}, err
	}
	if !found {
		return core.Client{}, core.ErrClientNotFound
	}
	return item.ToCore(), nil
}

func (r *ClientRepo) Update(ctx context.Context, c core.Client) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.put(ctx, clientItemFromCore(c), exists()); err != nil {
		if _, ok := isConditionFailed(err); ok {
			return core.ErrClientNotFound
		}
		return err
	}
	return nil
}

func (r *ClientRepo) put(ctx context.Context, item ClientItem, cond expression.ConditionBuilder) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("clients.marshal: %w", err)
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("clients.buildExpr: %w", err)
	}
	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.t.Clients),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if _, ok := isConditionFailed(err); ok {
			return err
		}
		return fmt.Errorf("clients.putItem: %w", err)
	}
	return nil
}

func (r *ClientRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	expr, err := expression.NewBuilder().WithCondition(exists()).Build()
	if err != nil {
		return fmt.Errorf("clients.buildExpr: %w", err)
	}
	_, err = r.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.t.Clients),
		Key:                      idKeyOf(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if _, ok := isConditionFailed(err); ok {
			return core.ErrClientNotFound
		}
		return fmt.Errorf("clients.deleteItem: %w", err)
	}
	return nil
}

// clientConditions matches the search text against the lowercased search_text attribute.
func clientConditions(f core.ClientFilter) []expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	if f.BrokerID != nil {
		conds = append(conds, expression.Name("broker_id").Equal(expression.Value(*f.BrokerID)))
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		conds = append(conds, expression.Name("search_text").Contains(s))
	}
	return conds
}

func (r *ClientRepo) List(ctx context.Context, filter core.ClientFilter) ([]core.Client, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := scanAll[ClientItem, core.Client](ctx, r.db, r.t.Clients, clientConditions(filter))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b core.Client) int {
		return cmp.Or(
			cmp.Compare(a.LastName, b.LastName),
			cmp.Compare(a.FirstName, b.FirstName),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}
