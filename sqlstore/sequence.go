package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/logging"
)

// AllocateNext increments the named counter with a single upsert and
// returns the new value. The first allocation of a name returns 1.
func (s *Store) AllocateNext(ctx context.Context, name string) (int64, error) {
	p := s.dialect.placeholder
	query := fmt.Sprintf(
		"INSERT INTO %[1]s (%[2]s, %[3]s) VALUES (%[4]s, 1) ON CONFLICT (%[2]s) DO UPDATE SET %[3]s = %[1]s.%[3]s + 1 RETURNING %[3]s",
		quote(CounterTable), quote("name"), quote("value"), p(1),
	)

	var value int64
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&value); err != nil {
		return 0, &dimension.TransientError{Entity: name, Op: "allocate", Err: err}
	}
	if value <= 0 {
		return 0, errors.AssertionFailedf("sequence %s: counter returned %d", name, value)
	}

	s.metrics.Allocated(s.dialect.Name(), name)
	s.logger.Debug("sequence value allocated",
		zap.String(logging.FieldSequence, name),
		zap.Int64(logging.FieldValue, value),
	)
	return value, nil
}

// Counter returns the last value issued for name, or 0 if none was.
func (s *Store) Counter(ctx context.Context, name string) (dimension.SequenceCounter, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		quote("value"), quote(CounterTable), quote("name"), s.dialect.placeholder(1))

	var value int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return dimension.SequenceCounter{Name: name}, nil
	}
	if err != nil {
		return dimension.SequenceCounter{}, &dimension.TransientError{Entity: name, Op: "counter", Err: err}
	}
	return dimension.SequenceCounter{Name: name, Value: value}, nil
}
