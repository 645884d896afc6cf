package main

import (
	"context"
	"database/sql"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/config"
	"github.com/jacentio/dimstore/internal/logging"
	"github.com/jacentio/dimstore/internal/metrics"
	"github.com/jacentio/dimstore/sqlstore"
	"github.com/jacentio/dimstore/store"
)

// backend is an opened storage backend with its sequence store and schema
// management.
type backend struct {
	dimension.Backend
	dimension.SequenceStore

	migrate func(context.Context) error
	close   func() error
}

// openBackend connects to the configured backend. A nil m records no
// metrics.
func (a *app) openBackend(ctx context.Context, m *metrics.Metrics) (*backend, error) {
	logger := a.logger.With(zap.String(logging.FieldBackend, a.cfg.Backend))

	switch a.cfg.Backend {
	case config.BackendDynamoDB:
		return openDynamoDB(ctx, a.cfg.DynamoDB, logger, m)
	case config.BackendPostgres:
		db, err := sqlstore.OpenPostgres(ctx, a.cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return sqlBackend(db, sqlstore.Postgres, logger, m), nil
	case config.BackendSQLite:
		db, err := sqlstore.OpenSQLite(ctx, a.cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return sqlBackend(db, sqlstore.SQLite, logger, m), nil
	default:
		return nil, errors.Newf("unknown backend %q", a.cfg.Backend)
	}
}

func sqlBackend(db *sql.DB, d sqlstore.Dialect, logger *zap.Logger, m *metrics.Metrics) *backend {
	s := sqlstore.New(db, d, sqlstore.WithLogger(logger), sqlstore.WithMetrics(m))
	return &backend{
		Backend:       s,
		SequenceStore: s,
		migrate: func(ctx context.Context) error {
			return sqlstore.Migrate(ctx, db, d, catalog.All()...)
		},
		close: db.Close,
	}
}

func openDynamoDB(ctx context.Context, cfg config.DynamoDBConfig, logger *zap.Logger, m *metrics.Metrics) (*backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS config")
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	storeCfg := store.DefaultConfig()
	storeCfg.TablePrefix = cfg.TablePrefix
	storeCfg.MaxAttempts = cfg.MaxAttempts

	s := store.New(client, storeCfg, store.WithLogger(logger), store.WithMetrics(m))
	return &backend{
		Backend:       s,
		SequenceStore: s,
		migrate: func(ctx context.Context) error {
			return store.EnsureTables(ctx, client, storeCfg, catalog.All()...)
		},
		close: func() error { return nil },
	}, nil
}
