package dynamo

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

const uniqueBrokerEmail = "brokers.email"

type BrokerRepo struct{ base }

func (r *BrokerRepo) Create(ctx context.Context, b *core.Broker) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id, err := r.nextID(ctx, r.t.Brokers)
	if err != nil {
		return err
	}
	item := brokerItemFromCore(*b)
	item.ID = id

	put, err := putIf(r.t.Brokers, item, notExists())
	if err != nil {
		return err
	}
	_, err = r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			put,
			reserveUnique(r.t.Uniques, uniqueBrokerEmail, b.Email, id),
		},
	})
	if err != nil {
		if _, ok := canceledAt(err, 1); ok {
			return core.ErrBrokerConflict
		}
		return fmt.Errorf("brokers.create: %w", err)
	}
	b.ID = id
	return nil
}

func (r *BrokerRepo) Update(ctx context.Context, b core.Broker) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	current, found, err := getItem[BrokerItem](ctx, r.db, r.t.Brokers, b.ID)
	if err != nil {
		return err
	}
	if !found {
		return core.ErrBrokerNotFound
	}

	put, err := putIf(r.t.Brokers, brokerItemFromCore(b), exists())
	if err != nil {
		return err
	}
	tx := []types.TransactWriteItem{put}
	if current.Email != b.Email {
		tx = append(tx,
			reserveUnique(r.t.Uniques, uniqueBrokerEmail, b.Email, b.ID),
			releaseUnique(r.t.Uniques, uniqueBrokerEmail, current.Email),
		)
	}

	if _, err := r.db.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx}); err != nil {
		if _, ok := canceledAt(err, 0); ok {
			return core.ErrBrokerNotFound
		}
		if _, ok := canceledAt(err, 1); ok {
			return core.ErrBrokerConflict
		}
		return fmt.Errorf("brokers.update: %w", err)
	}
	return nil
}

func (r *BrokerRepo) Get(ctx context.Context, id int64) (core.Broker, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := getItem[BrokerItem](ctx, r.db, r.t.Brokers, id)
	if err != nil {
		return core.Broker{}, err
	}
	if !found {
		return core.Broker{}, core.ErrBrokerNotFound
	}
	return item.ToCore(), nil
}

func (r *BrokerRepo) GetByEmail(ctx context.Context, email string) (core.Broker, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	item, found, err := queryOne[BrokerItem](ctx, r.db, r.t.Brokers, GSIBrokersEmail, "email", expression.Value(email))
	if err != nil {
		return core.Broker{}, err
	}
	if !found {
		return core.Broker{}, core.ErrBrokerNotFound
	}
	return item.ToCore(), nil
}

func (r *BrokerRepo) List(ctx context.Context) ([]core.Broker, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	out, err := scanAll[BrokerItem, core.Broker](ctx, r.db, r.t.Brokers, nil)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b core.Broker) int {
		return cmp.Or(
			cmp.Compare(a.LastName, b.LastName),
			cmp.Compare(a.FirstName, b.FirstName),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}
