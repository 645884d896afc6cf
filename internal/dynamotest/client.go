// Package dynamotest provides an in-memory DynamoDB double that honours the
// subset of the API used by the dimension store: keyed items, condition and
// update expressions, all-or-nothing transactions, scans and table
// management.
package dynamotest

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

type table struct {
	name  string
	keys  []types.KeySchemaElement
	items map[string]item
}

// Client is a concurrency-safe in-memory DynamoDB. Every request is applied
// atomically under a single lock.
type Client struct {
	mu       sync.Mutex
	tables   map[string]*table
	failures map[string][]error
	hooks    map[string][]func()
	calls    map[string]int

	// ScanPageSize limits items per Scan page. Zero returns one page.
	ScanPageSize int
}

// New returns an empty client.
func New() *Client {
	return &Client{
		tables:   make(map[string]*table),
		failures: make(map[string][]error),
		hooks:    make(map[string][]func()),
		calls:    make(map[string]int),
	}
}

// FailNext makes the next call of op return err without touching state.
func (c *Client) FailNext(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = append(c.failures[op], err)
}

// BeforeNext runs fn once, before the next call of op is applied. fn runs
// without the client lock held and may call the client.
func (c *Client) BeforeNext(op string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[op] = append(c.hooks[op], fn)
}

// Calls reports how many times op was invoked.
func (c *Client) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Items returns a snapshot of every item in a table, ordered by key.
func (c *Client) Items(tableName string) []map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[tableName]
	if !ok {
		return nil
	}
	out := make([]map[string]types.AttributeValue, 0, len(t.items))
	for _, k := range t.sortedKeys() {
		out = append(out, copyItem(t.items[k]))
	}
	return out
}

// begin runs pending hooks, records the call and returns any injected
// failure. On success the lock is held.
func (c *Client) begin(op string) error {
	c.mu.Lock()
	hooks := c.hooks[op]
	delete(c.hooks, op)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	c.mu.Lock()
	c.calls[op]++
	if queued := c.failures[op]; len(queued) > 0 {
		c.failures[op] = queued[1:]
		c.mu.Unlock()
		return queued[0]
	}
	return nil
}

func (c *Client) table(name *string) (*table, error) {
	t, ok := c.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String("Requested resource not found: Table: " + aws.ToString(name) + " not found"),
		}
	}
	return t, nil
}

func (t *table) keyOf(attrs item) (string, item, error) {
	parts := make([]string, 0, len(t.keys))
	key := make(item, len(t.keys))
	for _, k := range t.keys {
		name := aws.ToString(k.AttributeName)
		v, ok := attrs[name]
		if !ok {
			return "", nil, validation("One of the required keys was not given a value: %s", name)
		}
		switch x := v.(type) {
		case *types.AttributeValueMemberS:
			parts = append(parts, "S:"+x.Value)
		case *types.AttributeValueMemberN:
			parts = append(parts, "N:"+x.Value)
		case *types.AttributeValueMemberB:
			parts = append(parts, "B:"+hex.EncodeToString(x.Value))
		default:
			return "", nil, validation("Invalid key attribute type for %s", name)
		}
		key[name] = v
	}
	return strings.Join(parts, "\x00"), key, nil
}

func (t *table) sortedKeys() []string {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validation(format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
		Fault:   smithy.FaultClient,
	}
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

// CreateTable registers a table with its key schema.
func (c *Client) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if err := c.begin("CreateTable"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	name := aws.ToString(in.TableName)
	if _, ok := c.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}
	keys := append([]types.KeySchemaElement(nil), in.KeySchema...)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].KeyType == types.KeyTypeHash && keys[j].KeyType != types.KeyTypeHash })
	c.tables[name] = &table{name: name, keys: keys, items: make(map[string]item)}
	return &dynamodb.CreateTableOutput{TableDescription: c.describe(c.tables[name])}, nil
}

// DescribeTable reports an existing table as ACTIVE.
func (c *Client) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if err := c.begin("DescribeTable"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: c.describe(t)}, nil
}

// DeleteTable drops a table and its items.
func (c *Client) DeleteTable(_ context.Context, in *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if err := c.begin("DeleteTable"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	delete(c.tables, t.name)
	return &dynamodb.DeleteTableOutput{TableDescription: c.describe(t)}, nil
}

func (c *Client) describe(t *table) *types.TableDescription {
	return &types.TableDescription{
		TableName:   aws.String(t.name),
		TableStatus: types.TableStatusActive,
		KeySchema:   append([]types.KeySchemaElement(nil), t.keys...),
		ItemCount:   aws.Int64(int64(len(t.items))),
	}
}

// GetItem returns the item stored under the key, if any.
func (c *Client) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := c.begin("GetItem"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, _, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.GetItemOutput{}
	if it, ok := t.items[k]; ok {
		out.Item = copyItem(it)
	}
	return out, nil
}

// PutItem stores an item, subject to its condition.
func (c *Client) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if err := c.begin("PutItem"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, _, err := t.keyOf(in.Item)
	if err != nil {
		return nil, err
	}
	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	ok, err := ec.evalCondition(t.items[k], aws.ToString(in.ConditionExpression))
	if err != nil {
		return nil, validation("%v", err)
	}
	if !ok {
		return nil, conditionFailed()
	}
	t.items[k] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// UpdateItem applies an update expression, creating the item if absent.
func (c *Client) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if err := c.begin("UpdateItem"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, key, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	current := t.items[k]
	ok, err := ec.evalCondition(current, aws.ToString(in.ConditionExpression))
	if err != nil {
		return nil, validation("%v", err)
	}
	if !ok {
		return nil, conditionFailed()
	}

	base := current
	if base == nil {
		base = key
	}
	next, touched, err := ec.applyUpdate(base, aws.ToString(in.UpdateExpression))
	if err != nil {
		return nil, validation("%v", err)
	}
	t.items[k] = next

	out := &dynamodb.UpdateItemOutput{}
	switch in.ReturnValues {
	case types.ReturnValueAllNew:
		out.Attributes = copyItem(next)
	case types.ReturnValueUpdatedNew:
		out.Attributes = make(item, len(touched))
		for _, name := range touched {
			if v, ok := next[name]; ok {
				out.Attributes[name] = v
			}
		}
	}
	return out, nil
}

// Scan returns items matching the filter, ordered by key.
func (c *Client) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if err := c.begin("Scan"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	start := ""
	if len(in.ExclusiveStartKey) > 0 {
		if start, _, err = t.keyOf(in.ExclusiveStartKey); err != nil {
			return nil, err
		}
	}

	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	out := &dynamodb.ScanOutput{}
	scanned := 0
	last := ""
	for _, k := range t.sortedKeys() {
		if start != "" && k <= start {
			continue
		}
		if c.ScanPageSize > 0 && scanned == c.ScanPageSize {
			_, key, _ := t.keyOf(t.items[last])
			out.LastEvaluatedKey = key
			break
		}
		scanned++
		last = k
		ok, err := ec.evalCondition(t.items[k], aws.ToString(in.FilterExpression))
		if err != nil {
			return nil, validation("%v", err)
		}
		if ok {
			out.Items = append(out.Items, copyItem(t.items[k]))
		}
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(scanned)
	return out, nil
}

type writeOp struct {
	table     *table
	key       string
	keyAttrs  item
	condition string
	ctx       exprContext
	apply     func(current item) (item, error)
}

// TransactWriteItems applies every action or none. A failed condition
// cancels the transaction with one reason per action.
func (c *Client) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if err := c.begin("TransactWriteItems"); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if len(in.TransactItems) == 0 || len(in.TransactItems) > 100 {
		return nil, validation("Member must have length between 1 and 100")
	}

	ops := make([]writeOp, 0, len(in.TransactItems))
	targets := make(map[string]bool, len(in.TransactItems))
	for _, ti := range in.TransactItems {
		op, err := c.prepare(ti)
		if err != nil {
			return nil, err
		}
		target := op.table.name + "\x01" + op.key
		if targets[target] {
			return nil, validation("Transaction request cannot include multiple operations on one item")
		}
		targets[target] = true
		ops = append(ops, op)
	}

	reasons := make([]types.CancellationReason, len(ops))
	failed := false
	for i, op := range ops {
		ok, err := op.ctx.evalCondition(op.table.items[op.key], op.condition)
		if err != nil {
			return nil, validation("%v", err)
		}
		if ok {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
			continue
		}
		failed = true
		reasons[i] = types.CancellationReason{
			Code:    aws.String("ConditionalCheckFailed"),
			Message: aws.String("The conditional request failed"),
		}
	}
	if failed {
		codes := make([]string, len(reasons))
		for i, r := range reasons {
			codes[i] = aws.ToString(r.Code)
		}
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons [" + strings.Join(codes, ", ") + "]"),
			CancellationReasons: reasons,
		}
	}

	results := make([]item, len(ops))
	for i, op := range ops {
		next, err := op.apply(op.table.items[op.key])
		if err != nil {
			return nil, validation("%v", err)
		}
		results[i] = next
	}
	for i, op := range ops {
		if results[i] == nil {
			delete(op.table.items, op.key)
			continue
		}
		op.table.items[op.key] = results[i]
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (c *Client) prepare(ti types.TransactWriteItem) (writeOp, error) {
	switch {
	case ti.ConditionCheck != nil:
		cc := ti.ConditionCheck
		return c.op(cc.TableName, cc.Key, cc.ConditionExpression, cc.ExpressionAttributeNames, cc.ExpressionAttributeValues,
			func(current item) (item, error) { return current, nil })
	case ti.Put != nil:
		p := ti.Put
		return c.op(p.TableName, p.Item, p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues,
			func(item) (item, error) { return copyItem(p.Item), nil })
	case ti.Delete != nil:
		d := ti.Delete
		return c.op(d.TableName, d.Key, d.ConditionExpression, d.ExpressionAttributeNames, d.ExpressionAttributeValues,
			func(item) (item, error) { return nil, nil })
	case ti.Update != nil:
		u := ti.Update
		ec := exprContext{names: u.ExpressionAttributeNames, values: u.ExpressionAttributeValues}
		op, err := c.op(u.TableName, u.Key, u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues, nil)
		if err != nil {
			return op, err
		}
		op.apply = func(current item) (item, error) {
			base := current
			if base == nil {
				base = op.keyAttrs
			}
			next, _, err := ec.applyUpdate(base, aws.ToString(u.UpdateExpression))
			return next, err
		}
		return op, nil
	default:
		return writeOp{}, validation("TransactWriteItem must contain exactly one action")
	}
}

func (c *Client) op(tableName *string, attrs item, condition *string, names map[string]string, values map[string]types.AttributeValue, apply func(item) (item, error)) (writeOp, error) {
	t, err := c.table(tableName)
	if err != nil {
		return writeOp{}, err
	}
	k, key, err := t.keyOf(attrs)
	if err != nil {
		return writeOp{}, err
	}
	return writeOp{
		table:     t,
		key:       k,
		keyAttrs:  key,
		condition: aws.ToString(condition),
		ctx:       exprContext{names: names, values: values},
		apply:     apply,
	}, nil
}
