package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MrKriegler/go-brokerage/internal/core"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	OpTimeout    time.Duration
	Debug        bool
}

// Store is a relational back end behind gorm.
type Store struct {
	db        *gorm.DB
	opTimeout time.Duration
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: sql db: %w", err)
	}
	switch {
	case cfg.Driver == DriverSQLite:
		// one writer; also keeps an in-memory database alive on a single connection
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Store{db: db, opTimeout: opTimeout}, nil
}

// Migrate creates or alters the tables the repositories use.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&productRecord{},
		&clientRecord{},
		&brokerRecord{},
		&offerRecord{},
		&policyRecord{},
		&commissionRecord{},
		&activityRecord{},
		&counterRecord{},
	)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) base() base { return base{db: s.db, opTimeout: s.opTimeout} }

// Repositories wires every repository onto this database.
func (s *Store) Repositories() core.Repositories {
	b := s.base()
	return core.Repositories{
		Products:    &ProductRepo{b},
		Clients:     &ClientRepo{b},
		Brokers:     &BrokerRepo{b},
		Offers:      &OfferRepo{b},
		Policies:    &PolicyRepo{b},
		Commissions: &CommissionRepo{b},
		Activity:    &ActivityRepo{b},
		Issuer:      &Issuer{b},
		Sequences:   &Counters{b},
	}
}

type base struct {
	db        *gorm.DB
	opTimeout time.Duration
}

func (b base) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	return b.db.WithContext(ctx), cancel
}
