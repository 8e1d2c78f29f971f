package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

const (
	maxRetries     = 5
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second

	duplicateKeyCode = 11000
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// Store is a MongoDB back end. Policy issuance uses multi-document
// transactions, so the server must run as a replica set.
type Store struct {
	client    *mongodrv.Client
	db        *mongodrv.Database
	opTimeout time.Duration
}

func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	var client *mongodrv.Client
	var err error

	// Retry connection with exponential backoff
	backoff := initialBackoff
	for attempt := 1; attempt <= maxRetries; attempt++ {
		client, err = connectOnce(ctx, clientOpts, connectTimeout)
		if err == nil {
			break
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("connect to mongo after %d attempts: %w", maxRetries, err)
		}
		log.Warn("mongo connect failed, retrying", "attempt", attempt, "backoff", backoff, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Store{client: client, db: client.Database(cfg.Database), opTimeout: opTimeout}, nil
}

func connectOnce(ctx context.Context, opts *options.ClientOptions, timeout time.Duration) (*mongodrv.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongodrv.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Migrate creates the indexes the repositories rely on.
func (s *Store) Migrate(ctx context.Context) error {
	return EnsureIndexes(ctx, s.db)
}

// Ping verifies connectivity (used by /readyz).
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) base() base {
	return base{db: s.db, counters: s.db.Collection(ColCounters), opTimeout: s.opTimeout}
}

// Repositories wires every repository onto this database.
func (s *Store) Repositories() core.Repositories {
	b := s.base()
	return core.Repositories{
		Products:    &ProductRepo{base: b, coll: s.db.Collection(ColProducts)},
		Clients:     &ClientRepo{base: b, coll: s.db.Collection(ColClients)},
		Brokers:     &BrokerRepo{base: b, coll: s.db.Collection(ColBrokers)},
		Offers:      &OfferRepo{base: b, coll: s.db.Collection(ColOffers)},
		Policies:    &PolicyRepo{base: b, coll: s.db.Collection(ColPolicies)},
		Commissions: &CommissionRepo{base: b, coll: s.db.Collection(ColCommissions)},
		Activity:    &ActivityRepo{base: b, coll: s.db.Collection(ColActivity)},
		Issuer:      &Issuer{base: b, client: s.client},
		Sequences:   &Counters{base: b},
	}
}

type base struct {
	db        *mongodrv.Database
	counters  *mongodrv.Collection
	opTimeout time.Duration
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.opTimeout)
}

func isDuplicateKey(err error) bool {
	if mongodrv.IsDuplicateKeyError(err) {
		return true
	}
	var we mongodrv.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == duplicateKeyCode {
				return true
			}
		}
	}
	return false
}

// decodeAll drains a cursor through a doc-to-core mapper.
func decodeAll[D, T any](ctx context.Context, cur *mongodrv.Cursor, conv func(D) T) ([]T, error) {
	defer cur.Close(ctx)
	out := []T{}
	for cur.Next(ctx) {
		var doc D
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, conv(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
