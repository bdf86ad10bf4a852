// Package ddbfake is an in-memory stand-in for the DynamoDB API used by tests.
//
// It parses and evaluates the condition and update expressions it receives
// instead of mocking individual calls, so a test exercises the exact request
// the code under test built. Like DynamoDB it rejects unused aliases,
// overlapping update paths, updates to key attributes, writes below missing
// map attributes and transactions touching one item twice.
package ddbfake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// Operation names used by Calls and Hook.
const (
	OpGetItem            = "GetItem"
	OpUpdateItem         = "UpdateItem"
	OpDeleteItem         = "DeleteItem"
	OpTransactWriteItems = "TransactWriteItems"
	OpQuery              = "Query"
)

// Hook runs before every call. n is the 1-based count of calls to op so far.
// A non-nil error is returned to the caller instead of executing the call.
type Hook func(op string, n int) error

// Change is one item-level modification, shaped like a stream record.
type Change struct {
	Table     string
	EventName string // INSERT, MODIFY or REMOVE
	Keys      map[string]types.AttributeValue
	OldImage  map[string]types.AttributeValue
	NewImage  map[string]types.AttributeValue
}

// Client is a concurrency-safe in-memory DynamoDB.
type Client struct {
	mu      sync.Mutex
	tables  map[string]*table
	calls   map[string]int
	hook    Hook
	changes []Change
}

type table struct {
	name     string
	hashKey  string
	rangeKey string
	items    map[string]map[string]types.AttributeValue
}

// New returns an empty Client with no tables.
func New() *Client {
	return &Client{
		tables: make(map[string]*table),
		calls:  make(map[string]int),
	}
}

// CreateTable registers a table. rangeKey may be empty.
func (c *Client) CreateTable(name, hashKey, rangeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = &table{
		name:     name,
		hashKey:  hashKey,
		rangeKey: rangeKey,
		items:    make(map[string]map[string]types.AttributeValue),
	}
}

// SetHook installs h; nil removes it.
func (c *Client) SetHook(h Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hook = h
}

// Calls returns how many times op has been called.
func (c *Client) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (c *Client) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// Seed stores item directly, bypassing conditions and the change log.
func (c *Client) Seed(tableName string, item map[string]types.AttributeValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(tableName)
	if err != nil {
		return err
	}
	k, err := t.keyOf(t.keyAttrs(item))
	if err != nil {
		return err
	}
	t.items[k] = cloneItem(item)
	return nil
}

// Item returns a copy of the stored item at key, or nil.
func (c *Client) Item(tableName string, key map[string]types.AttributeValue) map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(tableName)
	if err != nil {
		return nil
	}
	k, err := t.keyOf(key)
	if err != nil {
		return nil
	}
	return cloneItem(t.items[k])
}

// Len returns the number of items in a table.
func (c *Client) Len(tableName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

// DrainChanges returns the changes recorded since the last drain and clears them.
func (c *Client) DrainChanges() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.changes
	c.changes = nil
	return out
}

// GetItem implements the DynamoDB GetItem operation.
func (c *Client) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := c.before(OpGetItem); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.lookup(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: cloneItem(t.items[k])}, nil
}

// UpdateItem implements the DynamoDB UpdateItem operation.
func (c *Client) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if err := c.before(OpUpdateItem); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	w, err := c.prepareUpdate(aws.ToString(in.TableName), in.Key, aws.ToString(in.UpdateExpression),
		in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !w.passed {
		return nil, conditionFailed()
	}
	c.commit(w)
	return &dynamodb.UpdateItemOutput{Attributes: w.returnValues(in.ReturnValues)}, nil
}

// DeleteItem implements the DynamoDB DeleteItem operation.
func (c *Client) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if err := c.before(OpDeleteItem); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	w, err := c.prepareDelete(aws.ToString(in.TableName), in.Key,
		in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !w.passed {
		return nil, conditionFailed()
	}
	c.commit(w)

	out := &dynamodb.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = cloneItem(w.old)
	}
	return out, nil
}

// TransactWriteItems implements the DynamoDB TransactWriteItems operation.
// All conditions are evaluated before anything is written.
func (c *Client) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if err := c.before(OpTransactWriteItems); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(in.TransactItems) == 0 || len(in.TransactItems) > 100 {
		return nil, validationError("member must have length between 1 and 100")
	}

	writes := make([]*write, 0, len(in.TransactItems))
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	seen := make(map[string]bool)
	canceled := false

	for i, item := range in.TransactItems {
		var (
			w   *write
			err error
		)
		switch {
		case item.Update != nil:
			u := item.Update
			w, err = c.prepareUpdate(aws.ToString(u.TableName), u.Key, aws.ToString(u.UpdateExpression),
				u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
		case item.Delete != nil:
			d := item.Delete
			w, err = c.prepareDelete(aws.ToString(d.TableName), d.Key,
				d.ConditionExpression, d.ExpressionAttributeNames, d.ExpressionAttributeValues)
		case item.ConditionCheck != nil:
			cc := item.ConditionCheck
			w, err = c.prepareCheck(aws.ToString(cc.TableName), cc.Key,
				cc.ConditionExpression, cc.ExpressionAttributeNames, cc.ExpressionAttributeValues)
		case item.Put != nil:
			p := item.Put
			w, err = c.preparePut(aws.ToString(p.TableName), p.Item,
				p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues)
		default:
			err = validationError("transact item %d has no operation", i)
		}
		if err != nil {
			return nil, err
		}

		id := w.table.name + "|" + w.key
		if seen[id] {
			return nil, validationError("Transaction request cannot include multiple operations on one item")
		}
		seen[id] = true

		if w.passed {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
		} else {
			canceled = true
			reasons[i] = types.CancellationReason{
				Code:    aws.String("ConditionalCheckFailed"),
				Message: aws.String("The conditional request failed"),
			}
		}
		writes = append(writes, w)
	}

	if canceled {
		codes := make([]string, len(reasons))
		for i, r := range reasons {
			codes[i] = aws.ToString(r.Code)
		}
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons [" + strings.Join(codes, ", ") + "]"),
			CancellationReasons: reasons,
		}
	}

	for _, w := range writes {
		if !w.checkOnly {
			c.commit(w)
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// Query implements the DynamoDB Query operation on the base table, including
// Limit / ExclusiveStartKey pagination. Results are ordered by key.
func (c *Client) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if err := c.before(OpQuery); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.lookup(aws.ToString(in.TableName))
	if err != nil {
		return nil, err
	}
	if in.IndexName != nil {
		return nil, validationError("ddbfake: secondary indexes are not supported")
	}

	p := newParser(in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	keyCond, err := p.parseCondition(aws.ToString(in.KeyConditionExpression))
	if err != nil {
		return nil, validationError("Invalid KeyConditionExpression: %v", err)
	}
	var filter condNode
	if in.FilterExpression != nil {
		if filter, err = p.parseCondition(*in.FilterExpression); err != nil {
			return nil, validationError("Invalid FilterExpression: %v", err)
		}
	}
	if err := p.checkUnused(); err != nil {
		return nil, validationError("%v", err)
	}

	var keys []string
	for k, item := range t.items {
		if keyCond.eval(item) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}

	if in.ExclusiveStartKey != nil {
		start, err := t.keyOf(in.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		for i, k := range keys {
			if k == start {
				keys = keys[i+1:]
				break
			}
		}
	}

	out := &dynamodb.QueryOutput{}
	limit := len(keys)
	if in.Limit != nil && int(*in.Limit) < limit {
		limit = int(*in.Limit)
		out.LastEvaluatedKey = t.keyAttrs(t.items[keys[limit-1]])
	}
	for _, k := range keys[:limit] {
		item := t.items[k]
		if filter == nil || filter.eval(item) {
			out.Items = append(out.Items, cloneItem(item))
		}
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(limit)
	return out, nil
}

type write struct {
	table     *table
	key       string
	keyAttrs  map[string]types.AttributeValue
	old       map[string]types.AttributeValue
	new       map[string]types.AttributeValue
	touched   []string
	passed    bool
	checkOnly bool
}

func (w *write) returnValues(rv types.ReturnValue) map[string]types.AttributeValue {
	switch rv {
	case types.ReturnValueAllOld:
		return cloneItem(w.old)
	case types.ReturnValueAllNew:
		return cloneItem(w.new)
	case types.ReturnValueUpdatedOld:
		return subset(w.old, w.touched)
	case types.ReturnValueUpdatedNew:
		return subset(w.new, w.touched)
	}
	return nil
}

func subset(item map[string]types.AttributeValue, names []string) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue)
	for _, n := range names {
		if v, ok := item[n]; ok {
			out[n] = cloneAV(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Client) prepareUpdate(tableName string, key map[string]types.AttributeValue, update string,
	condition *string, names map[string]string, values map[string]types.AttributeValue) (*write, error) {
	t, err := c.lookup(tableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(key)
	if err != nil {
		return nil, err
	}

	p := newParser(names, values)
	u, err := p.parseUpdate(update)
	if err != nil {
		return nil, validationError("Invalid UpdateExpression: %v", err)
	}
	cond, err := parseOptionalCondition(p, condition)
	if err != nil {
		return nil, err
	}
	if err := p.checkUnused(); err != nil {
		return nil, validationError("%v", err)
	}

	w := &write{table: t, key: k, keyAttrs: cloneItem(key), old: t.items[k]}
	for _, s := range u.sets {
		if err := t.checkNotKey(s.path); err != nil {
			return nil, err
		}
		w.touched = append(w.touched, s.path[0])
	}
	for _, r := range u.removes {
		if err := t.checkNotKey(r); err != nil {
			return nil, err
		}
		w.touched = append(w.touched, r[0])
	}

	w.passed = cond == nil || cond.eval(w.old)
	if !w.passed {
		return w, nil
	}

	next := cloneItem(w.old)
	if next == nil {
		next = cloneItem(key)
	}
	for _, s := range u.sets {
		v, ok := s.value.resolve(w.old)
		if !ok {
			return nil, validationError("The provided expression refers to an attribute that does not exist in the item")
		}
		if err := setPath(next, s.path, v); err != nil {
			return nil, validationError("%v", err)
		}
	}
	for _, r := range u.removes {
		if err := removePath(next, r); err != nil {
			return nil, validationError("%v", err)
		}
	}
	w.new = next
	return w, nil
}

func (c *Client) prepareDelete(tableName string, key map[string]types.AttributeValue,
	condition *string, names map[string]string, values map[string]types.AttributeValue) (*write, error) {
	w, err := c.prepareCheck(tableName, key, condition, names, values)
	if err != nil {
		return nil, err
	}
	w.checkOnly = false
	w.new = nil
	return w, nil
}

func (c *Client) prepareCheck(tableName string, key map[string]types.AttributeValue,
	condition *string, names map[string]string, values map[string]types.AttributeValue) (*write, error) {
	t, err := c.lookup(tableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(key)
	if err != nil {
		return nil, err
	}
	p := newParser(names, values)
	cond, err := parseOptionalCondition(p, condition)
	if err != nil {
		return nil, err
	}
	if err := p.checkUnused(); err != nil {
		return nil, validationError("%v", err)
	}

	old := t.items[k]
	return &write{
		table:     t,
		key:       k,
		keyAttrs:  cloneItem(key),
		old:       old,
		new:       old,
		passed:    cond == nil || cond.eval(old),
		checkOnly: true,
	}, nil
}

func (c *Client) preparePut(tableName string, item map[string]types.AttributeValue,
	condition *string, names map[string]string, values map[string]types.AttributeValue) (*write, error) {
	t, err := c.lookup(tableName)
	if err != nil {
		return nil, err
	}
	w, err := c.prepareCheck(tableName, t.keyAttrs(item), condition, names, values)
	if err != nil {
		return nil, err
	}
	w.checkOnly = false
	w.new = cloneItem(item)
	return w, nil
}

func parseOptionalCondition(p *parser, condition *string) (condNode, error) {
	if condition == nil {
		return nil, nil
	}
	cond, err := p.parseCondition(*condition)
	if err != nil {
		return nil, validationError("Invalid ConditionExpression: %v", err)
	}
	return cond, nil
}

// commit applies w and records the change. Callers hold c.mu.
func (c *Client) commit(w *write) {
	change := Change{
		Table:    w.table.name,
		Keys:     cloneItem(w.keyAttrs),
		OldImage: cloneItem(w.old),
		NewImage: cloneItem(w.new),
	}
	switch {
	case w.new == nil && w.old == nil:
		return
	case w.new == nil:
		delete(w.table.items, w.key)
		change.EventName = "REMOVE"
	case w.old == nil:
		w.table.items[w.key] = w.new
		change.EventName = "INSERT"
	default:
		w.table.items[w.key] = w.new
		if equalItem(w.old, w.new) {
			return
		}
		change.EventName = "MODIFY"
	}
	c.changes = append(c.changes, change)
}

func (c *Client) before(op string) error {
	c.mu.Lock()
	c.calls[op]++
	n := c.calls[op]
	h := c.hook
	c.mu.Unlock()

	if h != nil {
		return h(op, n)
	}
	return nil
}

func (c *Client) lookup(name string) (*table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: Table: " + name + " not found")}
	}
	return t, nil
}

func (t *table) keyOf(key map[string]types.AttributeValue) (string, error) {
	want := 1
	if t.rangeKey != "" {
		want = 2
	}
	if len(key) != want {
		return "", validationError("The provided key element does not match the schema")
	}
	h, ok := scalarString(key[t.hashKey])
	if !ok {
		return "", validationError("The provided key element does not match the schema")
	}
	if t.rangeKey == "" {
		return h, nil
	}
	r, ok := scalarString(key[t.rangeKey])
	if !ok {
		return "", validationError("The provided key element does not match the schema")
	}
	return h + "\x00" + r, nil
}

func (t *table) keyAttrs(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, 2)
	if v, ok := item[t.hashKey]; ok {
		out[t.hashKey] = cloneAV(v)
	}
	if t.rangeKey != "" {
		if v, ok := item[t.rangeKey]; ok {
			out[t.rangeKey] = cloneAV(v)
		}
	}
	return out
}

func (t *table) checkNotKey(path docPath) error {
	if path[0] == t.hashKey || (t.rangeKey != "" && path[0] == t.rangeKey) {
		return validationError("Cannot update attribute %s. This attribute is part of the key", path[0])
	}
	return nil
}

func validationError(format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
		Fault:   smithy.FaultClient,
	}
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}
