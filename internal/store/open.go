// Package store opens the storage back end selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/platform/config"
	"github.com/MrKriegler/go-brokerage/internal/store/dynamo"
	"github.com/MrKriegler/go-brokerage/internal/store/mongo"
	"github.com/MrKriegler/go-brokerage/internal/store/sqlstore"
)

// Backend is one opened storage back end.
type Backend struct {
	Name  string
	Repos core.Repositories
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// Open connects to the back end named by cfg.DBType and brings its schema up to date.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	opTimeout := time.Duration(cfg.DBOpTimeoutMs) * time.Millisecond

	switch cfg.DBType {
	case config.DBSQL:
		s, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:       cfg.SQLDriver,
			DSN:          cfg.DatabaseDSN,
			MaxOpenConns: cfg.SQLMaxOpenConns,
			OpTimeout:    opTimeout,
			Debug:        cfg.SQLDebug,
		})
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("sqlstore: migrate: %w", err)
		}
		log.Info("connected to sql store", "driver", cfg.SQLDriver)
		return &Backend{
			Name:  cfg.SQLDriver,
			Repos: s.Repositories(),
			Ping:  s.Ping,
			Close: func(context.Context) error { return s.Close() },
		}, nil

	case config.DBMongo:
		s, err := mongo.Connect(ctx, mongo.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDB,
			ConnectTimeout: time.Duration(cfg.MongoConnectTimeoutSec) * time.Second,
			OpTimeout:      opTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("mongo: ensure indexes: %w", err)
		}
		log.Info("connected to mongo", "db", cfg.MongoDB)
		return &Backend{Name: "mongo", Repos: s.Repositories(), Ping: s.Ping, Close: s.Close}, nil

	case config.DBDynamoDB:
		s, err := dynamo.Connect(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			TablePrefix:     cfg.DynamoTablePrefix,
			OpTimeout:       opTimeout,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}, log)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("dynamodb: ensure tables: %w", err)
		}
		log.Info("connected to dynamodb", "region", cfg.AWSRegion, "prefix", cfg.DynamoTablePrefix)
		return &Backend{
			Name:  "dynamodb",
			Repos: s.Repositories(),
			Ping:  s.Ping,
			Close: func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
}
