//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/storetest"
	"github.com/jacentio/dimstore/store"
)

func dynamoClient(t *testing.T) *dynamodb.Client {
	t.Helper()
	if os.Getenv("DIMSTORE_E2E_DYNAMODB") == "" {
		t.Skip("DIMSTORE_E2E_DYNAMODB not set")
	}

	cfg, err := config.LoadDefaultConfig(context.Background())
	require.NoError(t, err)

	endpoint := os.Getenv("DIMSTORE_E2E_DYNAMODB_ENDPOINT")
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func TestDynamoDB_Suite(t *testing.T) {
	client := dynamoClient(t)

	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) (dimension.Backend, dimension.SequenceStore) {
			ctx := context.Background()
			cfg := store.DefaultConfig()
			cfg.TablePrefix = "dimstore-e2e-" + uuid.NewString()[:8] + "-"

			require.NoError(t, store.EnsureTables(ctx, client, cfg, catalog.All()...))
			t.Cleanup(func() {
				if err := store.DropTables(context.Background(), client, cfg, catalog.All()...); err != nil {
					t.Logf("drop tables with prefix %s: %v", cfg.TablePrefix, err)
				}
			})

			s := store.New(client, cfg)
			return s, s
		},
	})
}
