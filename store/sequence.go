package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/logging"
)

// AllocateNext atomically increments the named counter and returns the new
// value. The first allocation of a name returns 1.
func (s *Store) AllocateNext(ctx context.Context, name string) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.counterTable()),
		Key:                       map[string]types.AttributeValue{"name": stringAttr(name)},
		UpdateExpression:          aws.String("ADD #value :one"),
		ExpressionAttributeNames:  map[string]string{"#value": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": numberAttr(1)},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, dimension.Transient(name, "allocate", classify(name, "allocate", err))
	}

	var c counterItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &c); err != nil {
		return 0, errors.Wrapf(err, "sequence %s: decode counter", name)
	}
	if c.Value <= 0 {
		return 0, errors.AssertionFailedf("sequence %s: counter returned %d", name, c.Value)
	}

	s.metrics.Allocated(BackendName, name)
	s.logger.Debug("sequence value allocated",
		zap.String(logging.FieldSequence, name),
		zap.Int64(logging.FieldValue, c.Value),
	)
	return c.Value, nil
}

// Counter returns the last value issued for name, or 0 if none was.
func (s *Store) Counter(ctx context.Context, name string) (dimension.SequenceCounter, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.counterTable()),
		Key:            map[string]types.AttributeValue{"name": stringAttr(name)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dimension.SequenceCounter{}, dimension.Transient(name, "counter", classify(name, "counter", err))
	}
	if out.Item == nil {
		return dimension.SequenceCounter{Name: name}, nil
	}

	var c counterItem
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return dimension.SequenceCounter{}, errors.Wrapf(err, "sequence %s: decode counter", name)
	}
	return dimension.SequenceCounter{Name: name, Value: c.Value}, nil
}
