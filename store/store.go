package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/logging"
	"github.com/jacentio/dimstore/internal/metrics"
)

// BackendName labels metrics and logs produced by this package.
const BackendName = "dynamodb"

// API is the subset of the DynamoDB client used by the Store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var (
	_ dimension.Backend       = (*Store)(nil)
	_ dimension.SequenceStore = (*Store)(nil)
)

// Store is a DynamoDB dimension backend.
type Store struct {
	client  API
	config  Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithMetrics sets the collectors operations are reported to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a new Store instance.
func New(client API, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		client: client,
		config: config,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert allocates a key from the schema's sequence and writes the record,
// its natural-key claims and the reference counts of its parents in one
// transaction.
func (s *Store) Insert(ctx context.Context, schema *dimension.Schema, rec dimension.Record) (id int64, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(BackendName, schema.Entity, "insert", start, err) }()

	id, err = s.AllocateNext(ctx, schema.Sequence)
	if err != nil {
		return 0, err
	}
	rec.ID = id

	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(s.config.table(schema.Table)),
			Item:                marshalRecord(schema, rec, s.now()),
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}}
	roles := []role{{kind: roleKey}}
	for _, c := range schema.Unique {
		items = append(items, s.claim(schema, c, rec))
		roles = append(roles, role{kind: roleConstraint, name: c.Name})
	}
	for _, d := range refDeltas(schema, nil, &rec) {
		items = append(items, s.parentUpdate(d))
		roles = append(roles, role{kind: roleParent, name: d.ref.Name})
	}

	for attempt := 1; ; attempt++ {
		err = s.transact(ctx, schema, "insert", items, roles, rec)
		if !errors.Is(err, errConcurrentModification) {
			break
		}
		if attempt >= s.config.MaxAttempts {
			err = &dimension.TransientError{Entity: schema.Entity, Op: "insert", Err: err}
			break
		}
		s.retried(schema, "insert", rec.ID, attempt)
	}
	if err != nil {
		return 0, err
	}
	s.logger.Debug("record inserted",
		zap.String(logging.FieldEntity, schema.Entity),
		zap.Int64(logging.FieldKey, id),
	)
	return id, nil
}

// Fetch loads the record stored under id.
func (s *Store) Fetch(ctx context.Context, schema *dimension.Schema, id int64) (rec dimension.Record, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(BackendName, schema.Entity, "fetch", start, err) }()

	st, err := s.load(ctx, schema, id)
	if err != nil {
		return dimension.Record{}, err
	}
	return st.rec, nil
}

// Select scans the schema's table with the equality filters of q and sorts
// the result by q.OrderBy.
func (s *Store) Select(ctx context.Context, schema *dimension.Schema, q dimension.Query) (recs []dimension.Record, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(BackendName, schema.Entity, "select", start, err) }()

	input := &dynamodb.ScanInput{
		TableName:      aws.String(s.config.table(schema.Table)),
		ConsistentRead: aws.Bool(true),
	}
	if len(q.Where) > 0 {
		terms := make([]string, len(q.Where))
		input.ExpressionAttributeNames = make(map[string]string, len(q.Where))
		input.ExpressionAttributeValues = make(map[string]types.AttributeValue, len(q.Where))
		for i, c := range q.Where {
			name, value := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
			input.ExpressionAttributeNames[name] = c.Field
			input.ExpressionAttributeValues[value] = valueAttr(c.Value)
			terms[i] = name + " = " + value
		}
		input.FilterExpression = aws.String(strings.Join(terms, " AND "))
	}

	recs = make([]dimension.Record, 0)
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(schema.Entity, "select", err)
		}
		for _, item := range page.Items {
			st, err := unmarshalRecord(schema, item)
			if err != nil {
				return nil, err
			}
			recs = append(recs, st.rec)
		}
	}

	slices.SortFunc(recs, func(a, b dimension.Record) int {
		return compareRecords(q.OrderBy, a, b)
	})
	return recs, nil
}

// Replace overwrites the fields of an existing record. A change to a
// natural key moves its claim; a change to a reference moves the parent's
// reference count. Writes are guarded by the version read beforehand and
// retried when it moved.
func (s *Store) Replace(ctx context.Context, schema *dimension.Schema, rec dimension.Record) (err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(BackendName, schema.Entity, "replace", start, err) }()

	return s.retry(schema, "replace", rec.ID, func() error {
		return s.replaceOnce(ctx, schema, rec)
	})
}

func (s *Store) replaceOnce(ctx context.Context, schema *dimension.Schema, rec dimension.Record) error {
	current, err := s.load(ctx, schema, rec.ID)
	if err != nil {
		return err
	}
	update := s.entityUpdate(schema, rec, current.meta.Version)

	var changed []dimension.Constraint
	for _, c := range schema.Unique {
		if !c.SameValues(current.rec, rec) {
			changed = append(changed, c)
		}
	}
	deltas := refDeltas(schema, &current.rec, &rec)

	if len(changed) == 0 && len(deltas) == 0 {
		_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 update.TableName,
			Key:                       update.Key,
			UpdateExpression:          update.UpdateExpression,
			ConditionExpression:       update.ConditionExpression,
			ExpressionAttributeNames:  update.ExpressionAttributeNames,
			ExpressionAttributeValues: update.ExpressionAttributeValues,
		})
		if isConditionFailed(err) {
			return errConcurrentModification
		}
		return classify(schema.Entity, "replace", err)
	}

	items := []types.TransactWriteItem{{Update: update}}
	roles := []role{{kind: roleEntity}}
	for _, c := range changed {
		items = append(items, s.release(schema, c, current.rec), s.claim(schema, c, rec))
		roles = append(roles, role{kind: roleCleanup}, role{kind: roleConstraint, name: c.Name})
	}
	for _, d := range deltas {
		items = append(items, s.parentUpdate(d))
		if d.delta > 0 {
			roles = append(roles, role{kind: roleParent, name: d.ref.Name})
		} else {
			roles = append(roles, role{kind: roleRelease})
		}
	}
	return s.transact(ctx, schema, "replace", items, roles, rec)
}

// Remove deletes a record that nothing references, together with its
// natural-key claims, and decrements the reference counts of its parents.
func (s *Store) Remove(ctx context.Context, schema *dimension.Schema, id int64) (err error) {
	start := time.Now()
	defer func() { s.metrics.Observe(BackendName, schema.Entity, "remove", start, err) }()

	return s.retry(schema, "remove", id, func() error {
		return s.removeOnce(ctx, schema, id)
	})
}

func (s *Store) removeOnce(ctx context.Context, schema *dimension.Schema, id int64) error {
	current, err := s.load(ctx, schema, id)
	if err != nil {
		return err
	}
	if current.meta.Refs > 0 {
		return s.translator(schema).Translate(dimension.Violation{
			Kind:   dimension.ViolationReferenced,
			Record: current.rec,
		})
	}

	items := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName:           aws.String(s.config.table(schema.Table)),
			Key:                 idKey(id),
			ConditionExpression: aws.String("#version = :expected_version AND #refs = :zero"),
			ExpressionAttributeNames: map[string]string{
				"#version": attrVersion,
				"#refs":    attrRefs,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected_version": numberAttr(current.meta.Version),
				":zero":             numberAttr(0),
			},
		},
	}}
	roles := []role{{kind: roleEntity}}
	for _, c := range schema.Unique {
		items = append(items, s.release(schema, c, current.rec))
		roles = append(roles, role{kind: roleCleanup})
	}
	for _, d := range refDeltas(schema, &current.rec, nil) {
		items = append(items, s.parentUpdate(d))
		roles = append(roles, role{kind: roleRelease})
	}
	return s.transact(ctx, schema, "remove", items, roles, current.rec)
}

// load reads the record and its managed attributes with a strongly
// consistent read.
func (s *Store) load(ctx context.Context, schema *dimension.Schema, id int64) (stored, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.table(schema.Table)),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return stored{}, classify(schema.Entity, "fetch", err)
	}
	if out.Item == nil {
		return stored{}, &dimension.NotFoundError{Entity: schema.Entity, Key: id}
	}
	return unmarshalRecord(schema, out.Item)
}

// retry runs fn until it stops reporting a concurrent modification, at most
// MaxAttempts times.
func (s *Store) retry(schema *dimension.Schema, op string, id int64, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, errConcurrentModification) {
			return err
		}
		if attempt < s.config.MaxAttempts {
			s.retried(schema, op, id, attempt)
		}
	}
	s.logger.Warn("giving up after concurrent modifications",
		zap.String(logging.FieldEntity, schema.Entity),
		zap.String(logging.FieldOperation, op),
		zap.Int64(logging.FieldKey, id),
		zap.Int(logging.FieldAttempt, s.config.MaxAttempts),
	)
	return &dimension.TransientError{Entity: schema.Entity, Op: op, Err: err}
}

func (s *Store) retried(schema *dimension.Schema, op string, id int64, attempt int) {
	s.metrics.Retried(BackendName, schema.Entity, op)
	s.logger.Debug("concurrent modification, retrying",
		zap.String(logging.FieldEntity, schema.Entity),
		zap.String(logging.FieldOperation, op),
		zap.Int64(logging.FieldKey, id),
		zap.Int(logging.FieldAttempt, attempt),
	)
}

// transact executes a write transaction and maps a cancellation back to the
// item that caused it.
func (s *Store) transact(ctx context.Context, schema *dimension.Schema, op string, items []types.TransactWriteItem, roles []role, rec dimension.Record) error {
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		return nil
	}

	index, failed, retry := failedRole(err)
	switch {
	case failed:
		r := roles[index]
		switch r.kind {
		case roleKey:
			return s.translator(schema).Translate(dimension.Violation{
				Kind:       dimension.ViolationUnique,
				Constraint: schema.PrimaryKey().Name,
				Record:     rec,
			})
		case roleConstraint:
			return s.translator(schema).Translate(dimension.Violation{
				Kind:       dimension.ViolationUnique,
				Constraint: r.name,
				Record:     rec,
			})
		case roleParent:
			return s.translator(schema).Translate(dimension.Violation{
				Kind:      dimension.ViolationMissingParent,
				Reference: r.name,
				Record:    rec,
			})
		default:
			return errConcurrentModification
		}
	case retry:
		return errConcurrentModification
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		return classifyCancellation(schema.Entity, op, txErr, err)
	}
	return classify(schema.Entity, op, err)
}

func (s *Store) translator(schema *dimension.Schema) *dimension.Translator {
	return dimension.NewTranslator(schema, s.logger)
}

// entityUpdate sets every field of rec, guarded by the expected version.
func (s *Store) entityUpdate(schema *dimension.Schema, rec dimension.Record, expectedVersion int64) *types.Update {
	names := map[string]string{
		"#version":    attrVersion,
		"#updated_at": attrUpdatedAt,
	}
	values := map[string]types.AttributeValue{
		":one":              numberAttr(1),
		":expected_version": numberAttr(expectedVersion),
		":updated_at":       stringAttr(s.now().UTC().Format(time.RFC3339)),
	}
	sets := make([]string, 0, len(schema.Fields)+2)
	for i, f := range schema.Fields {
		name, value := fmt.Sprintf("#a%d", i), fmt.Sprintf(":v%d", i)
		names[name] = f.Name
		values[value] = valueAttr(rec.Fields[f.Name])
		sets = append(sets, name+" = "+value)
	}
	sets = append(sets, "#updated_at = :updated_at", "#version = #version + :one")

	return &types.Update{
		TableName:                 aws.String(s.config.table(schema.Table)),
		Key:                       idKey(rec.ID),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("#version = :expected_version"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
}

// claim writes the constraint item of c for rec, failing if it is taken.
func (s *Store) claim(schema *dimension.Schema, c dimension.Constraint, rec dimension.Record) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.config.constraintTable()),
			Item:                s.constraintItem(schema, c, rec),
			ConditionExpression: aws.String("attribute_not_exists(pk)"),
		},
	}
}

// release deletes the constraint item of c held by rec.
func (s *Store) release(schema *dimension.Schema, c dimension.Constraint, rec dimension.Record) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(s.config.constraintTable()),
			Key:       s.constraintKey(schema, c, rec),
		},
	}
}

// refDelta is a net change to one parent's reference count.
type refDelta struct {
	ref   dimension.Reference
	id    int64
	delta int64
}

// refDeltas computes the reference-count changes of moving from before to
// after. Either may be nil. Changes that cancel out are dropped.
func refDeltas(schema *dimension.Schema, before, after *dimension.Record) []refDelta {
	var out []refDelta
	add := func(r dimension.Reference, id, delta int64) {
		for i := range out {
			if out[i].ref.Parent.Table == r.Parent.Table && out[i].id == id {
				out[i].delta += delta
				return
			}
		}
		out = append(out, refDelta{ref: r, id: id, delta: delta})
	}
	for _, r := range schema.References {
		if before != nil {
			add(r, before.Fields[r.Field].AsInt(), -1)
		}
		if after != nil {
			add(r, after.Fields[r.Field].AsInt(), 1)
		}
	}
	return slices.DeleteFunc(out, func(d refDelta) bool { return d.delta == 0 })
}

// parentUpdate applies d to the parent, which must exist.
func (s *Store) parentUpdate(d refDelta) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.config.table(d.ref.Parent.Table)),
			Key:                       idKey(d.id),
			UpdateExpression:          aws.String("ADD #refs :delta"),
			ConditionExpression:       aws.String("attribute_exists(id)"),
			ExpressionAttributeNames:  map[string]string{"#refs": attrRefs},
			ExpressionAttributeValues: map[string]types.AttributeValue{":delta": numberAttr(d.delta)},
		},
	}
}

// compareRecords orders records by the given fields, then by key.
func compareRecords(order []string, a, b dimension.Record) int {
	for _, name := range order {
		var c int
		if name == dimension.IDField {
			c = cmp.Compare(a.ID, b.ID)
		} else {
			c = a.Fields[name].Compare(b.Fields[name])
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}
