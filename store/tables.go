package store

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/jacentio/dimstore/dimension"
)

// TableAPI is the subset of the DynamoDB client used for table management.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	dynamodb.DescribeTableAPIClient
}

// tableWait bounds how long EnsureTables waits for a table to turn ACTIVE.
const tableWait = 2 * time.Minute

// managed lists the attribute names a schema field may not use.
var managed = []string{attrVersion, attrRefs, attrCreatedAt, attrUpdatedAt}

type tableSpec struct {
	name  string
	attrs []types.AttributeDefinition
	keys  []types.KeySchemaElement
}

func tableSpecs(config Config, schemas []*dimension.Schema) ([]tableSpec, error) {
	config.validate()
	specs := []tableSpec{
		{
			name:  config.counterTable(),
			attrs: []types.AttributeDefinition{{AttributeName: aws.String("name"), AttributeType: types.ScalarAttributeTypeS}},
			keys:  []types.KeySchemaElement{{AttributeName: aws.String("name"), KeyType: types.KeyTypeHash}},
		},
		{
			name: config.constraintTable(),
			attrs: []types.AttributeDefinition{
				{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
				{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
			},
			keys: []types.KeySchemaElement{
				{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
			},
		},
	}
	for _, schema := range schemas {
		if err := schema.Validate(); err != nil {
			return nil, err
		}
		for _, name := range managed {
			if _, ok := schema.Field(name); ok {
				return nil, errors.Newf("schema %s: field %q is managed by the store", schema.Entity, name)
			}
		}
		specs = append(specs, tableSpec{
			name:  config.table(schema.Table),
			attrs: []types.AttributeDefinition{{AttributeName: aws.String(dimension.IDField), AttributeType: types.ScalarAttributeTypeN}},
			keys:  []types.KeySchemaElement{{AttributeName: aws.String(dimension.IDField), KeyType: types.KeyTypeHash}},
		})
	}
	return specs, nil
}

// EnsureTables creates the counter table, the constraint table and one table
// per schema, skipping those that exist, and waits until all are ACTIVE.
func EnsureTables(ctx context.Context, client TableAPI, config Config, schemas ...*dimension.Schema) error {
	specs, err := tableSpecs(config, schemas)
	if err != nil {
		return err
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	for _, spec := range specs {
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:            aws.String(spec.name),
			AttributeDefinitions: spec.attrs,
			KeySchema:            spec.keys,
			BillingMode:          types.BillingModePayPerRequest,
		})
		var inUse *types.ResourceInUseException
		if err != nil && !errors.As(err, &inUse) {
			return errors.Wrapf(err, "create table %s", spec.name)
		}
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.name)}, tableWait); err != nil {
			return errors.Wrapf(err, "wait for table %s", spec.name)
		}
	}
	return nil
}

// DropTables deletes every table EnsureTables would create. Missing tables
// are skipped.
func DropTables(ctx context.Context, client TableAPI, config Config, schemas ...*dimension.Schema) error {
	specs, err := tableSpecs(config, schemas)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(spec.name)})
		var notFound *types.ResourceNotFoundException
		if err != nil && !errors.As(err, &notFound) {
			return errors.Wrapf(err, "delete table %s", spec.name)
		}
	}
	return nil
}
