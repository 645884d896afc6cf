package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/logging"
	"github.com/jacentio/dimstore/internal/metrics"
)

// DefaultReadTimeout bounds a read request when no timeout is configured.
const DefaultReadTimeout = 5 * time.Second

// Command results reported to metrics.
const (
	resultApplied = "applied"
	resultDropped = "dropped"
	resultRetry   = "retry"
)

// Consumer dispatches bus messages to registered repositories.
type Consumer struct {
	routes      map[string]route
	logger      *zap.Logger
	metrics     *metrics.Metrics
	readTimeout time.Duration
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Consumer) { c.logger = logging.OrNop(l) }
}

// WithMetrics sets the collectors handled messages are reported to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) { c.metrics = m }
}

// WithReadTimeout bounds each read request. Non-positive values keep the
// default.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// NewConsumer returns a consumer with no routes. Use Register or
// RegisterCatalog before handling messages.
func NewConsumer(opts ...Option) *Consumer {
	c := &Consumer{
		routes:      make(map[string]route),
		logger:      zap.NewNop(),
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleCommands applies a batch of commands. Messages that failed for a
// reason a redelivery could fix are returned as batch item failures.
func (c *Consumer) HandleCommands(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, msg := range event.Records {
		if c.handleMessage(ctx, msg) == resultRetry {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: msg.MessageId,
			})
		}
	}
	if n := len(resp.BatchItemFailures); n > 0 {
		c.logger.Warn("batch partially failed",
			zap.Int(logging.FieldCount, n),
			zap.Int("batch_size", len(event.Records)),
		)
	}
	return resp, nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg events.SQSMessage) string {
	cmd, err := decodeCommand(msg.Body)
	if err != nil {
		c.logger.Warn("dropping undecodable command",
			zap.String(logging.FieldMessageID, msg.MessageId),
			zap.Error(err),
		)
		c.metrics.Message("", "", resultDropped)
		return resultDropped
	}

	fields := []zap.Field{
		zap.String(logging.FieldMessageID, msg.MessageId),
		zap.String(logging.FieldCommandID, cmd.ID),
		zap.String(logging.FieldEntity, cmd.Entity),
		zap.String(logging.FieldOperation, string(cmd.Op)),
	}

	key, err := c.apply(ctx, cmd)
	result := commandResult(err)
	c.metrics.Message(cmd.Entity, string(cmd.Op), result)

	switch result {
	case resultApplied:
		c.logger.Info("command applied", append(fields, zap.Int64(logging.FieldKey, key))...)
	case resultDropped:
		c.logger.Warn("command rejected", append(fields, zap.Error(err))...)
	default:
		if errors.Is(err, dimension.ErrTransient) {
			c.logger.Warn("command failed transiently, will be redelivered", append(fields, zap.Error(err))...)
		} else {
			c.logger.Error("command failed", append(fields, zap.Error(err))...)
		}
	}
	return result
}

// apply runs cmd and returns the key it affected.
func (c *Consumer) apply(ctx context.Context, cmd Command) (int64, error) {
	r, ok := c.routes[cmd.Entity]
	if !ok {
		return 0, errors.Mark(errors.Newf("unknown entity %q", cmd.Entity), ErrInvalid)
	}
	switch cmd.Op {
	case OpCreate:
		return r.create(ctx, cmd.Payload)
	case OpUpdate:
		return cmd.Key, r.update(ctx, cmd.Key, cmd.Payload)
	case OpDelete:
		return cmd.Key, r.delete(ctx, cmd.Key)
	default:
		return 0, errors.Mark(errors.Newf("unknown command op %q", cmd.Op), ErrInvalid)
	}
}

func commandResult(err error) string {
	switch {
	case err == nil:
		return resultApplied
	case errors.Is(err, dimension.ErrTransient):
		return resultRetry
	case errors.Is(err, dimension.ErrConflict),
		errors.Is(err, dimension.ErrNotFound),
		errors.Is(err, dimension.ErrInvalidRecord),
		errors.Is(err, ErrInvalid):
		return resultDropped
	default:
		return resultRetry
	}
}

// HandleRead answers a read request within the configured timeout.
func (c *Consumer) HandleRead(ctx context.Context, req ReadRequest) ReadResponse {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	data, err := c.read(ctx, req)
	resp := readResponse(data, err)
	c.metrics.Message(req.Entity, string(req.Op), string(resp.Status))

	fields := []zap.Field{
		zap.String(logging.FieldEntity, req.Entity),
		zap.String(logging.FieldOperation, string(req.Op)),
		zap.Int64(logging.FieldKey, req.Key),
		zap.String(logging.FieldStatus, string(resp.Status)),
	}
	if resp.Status == StatusUnavailable {
		c.logger.Warn("read failed", append(fields, zap.Error(err))...)
		return resp
	}
	c.logger.Debug("read served", fields...)
	return resp
}

func (c *Consumer) read(ctx context.Context, req ReadRequest) (any, error) {
	r, ok := c.routes[req.Entity]
	if !ok {
		return nil, errors.Mark(errors.Newf("unknown entity %q", req.Entity), ErrInvalid)
	}
	switch req.Op {
	case OpGet:
		return r.get(ctx, req.Key)
	case OpList:
		return r.list(ctx, req.Where, req.OrderBy)
	default:
		return nil, errors.Mark(errors.Newf("unknown read op %q", req.Op), ErrInvalid)
	}
}

func readResponse(data any, err error) ReadResponse {
	switch {
	case err == nil:
		raw, err := json.Marshal(data)
		if err != nil {
			return ReadResponse{Status: StatusUnavailable, Error: err.Error()}
		}
		return ReadResponse{Status: StatusOK, Data: raw}
	case errors.Is(err, dimension.ErrNotFound):
		return ReadResponse{Status: StatusNotFound, Error: err.Error()}
	case errors.Is(err, ErrInvalid), errors.Is(err, dimension.ErrInvalidRecord):
		return ReadResponse{Status: StatusInvalid, Error: err.Error()}
	default:
		return ReadResponse{Status: StatusUnavailable, Error: err.Error()}
	}
}
