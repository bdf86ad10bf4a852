package expression

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type absent struct{}

// Absent marks a value that should not be written. Set(path, Absent) is a no-op.
var Absent = absent{}

// IsAbsent reports whether Set would skip v: the Absent sentinel, an untyped
// nil, or a nil pointer, map, slice or interface.
func IsAbsent(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(absent); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Builder accumulates the pieces of a single UpdateItem request.
//
// Every path segment and every value is passed by alias (#n<i> and :n<i>) and
// the alias index only ever grows, so repeated or overlapping paths are safe.
// Errors are recorded and returned from Build; the first one wins.
//
// A Builder is not safe for concurrent use. Build one per request.
type Builder struct {
	key          map[string]types.AttributeValue
	table        string
	index        int
	names        map[string]string
	values       map[string]types.AttributeValue
	sets         []string
	removes      []string
	condition    Condition
	returnValues types.ReturnValue
	err          error
}

// NewUpdate returns an empty Builder.
func NewUpdate() *Builder {
	b := &Builder{}
	return b.Clear()
}

// Clear resets all accumulated state so the builder can be reused.
func (b *Builder) Clear() *Builder {
	b.key = make(map[string]types.AttributeValue)
	b.table = ""
	b.index = 0
	b.names = make(map[string]string)
	b.values = make(map[string]types.AttributeValue)
	b.sets = nil
	b.removes = nil
	b.condition = nil
	b.returnValues = types.ReturnValueNone
	b.err = nil
	return b
}

// Key sets one string component of the primary key. Last write wins per name.
func (b *Builder) Key(name, value string) *Builder {
	b.key[name] = &types.AttributeValueMemberS{Value: value}
	return b
}

// Set records "path = value". It is a no-op when IsAbsent(value).
func (b *Builder) Set(path Path, value any) *Builder {
	if IsAbsent(value) {
		return b
	}
	if err := path.Validate(); err != nil {
		return b.fail(fmt.Errorf("set %q: %w", path.String(), err))
	}
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return b.fail(fmt.Errorf("set %q: marshal value: %w", path.String(), err))
	}

	p := b.addPath(path)
	alias := ":n" + strconv.Itoa(b.index)
	b.index++
	b.values[alias] = av
	b.sets = append(b.sets, p+" = "+alias)
	return b
}

// Remove records the removal of path.
func (b *Builder) Remove(path Path) *Builder {
	if err := path.Validate(); err != nil {
		return b.fail(fmt.Errorf("remove %q: %w", path.String(), err))
	}
	b.removes = append(b.removes, b.addPath(path))
	return b
}

// Condition attaches the condition that must hold for the write to succeed.
// A nil condition makes the write unconditional.
func (b *Builder) Condition(c Condition) *Builder {
	b.condition = c
	return b
}

// Table selects the target table.
func (b *Builder) Table(name string) *Builder {
	b.table = name
	return b
}

// Return selects what DynamoDB hands back after a successful write.
func (b *Builder) Return(rv types.ReturnValue) *Builder {
	b.returnValues = rv
	return b
}

// Build assembles the UpdateItem request. It does not reset the builder and
// building twice yields the same request.
func (b *Builder) Build() (*dynamodb.UpdateItemInput, error) {
	c, err := b.compile()
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(b.table),
		Key:                       c.key,
		UpdateExpression:          aws.String(c.update),
		ConditionExpression:       c.condition,
		ExpressionAttributeNames:  c.names,
		ExpressionAttributeValues: c.values,
		ReturnValues:              b.returnValues,
	}, nil
}

// BuildTransactUpdate assembles the same write as a TransactWriteItems member.
// The return mode does not apply inside a transaction and is ignored.
func (b *Builder) BuildTransactUpdate() (*types.Update, error) {
	c, err := b.compile()
	if err != nil {
		return nil, err
	}
	return &types.Update{
		TableName:                 aws.String(b.table),
		Key:                       c.key,
		UpdateExpression:          aws.String(c.update),
		ConditionExpression:       c.condition,
		ExpressionAttributeNames:  c.names,
		ExpressionAttributeValues: c.values,
	}, nil
}

type compiled struct {
	key       map[string]types.AttributeValue
	update    string
	condition *string
	names     map[string]string
	values    map[string]types.AttributeValue
}

func (b *Builder) compile() (*compiled, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.table == "" {
		return nil, ErrMissingTable
	}
	if len(b.key) == 0 {
		return nil, ErrMissingKey
	}

	var clauses []string
	if len(b.sets) > 0 {
		clauses = append(clauses, "SET "+strings.Join(b.sets, ", "))
	}
	if len(b.removes) > 0 {
		clauses = append(clauses, "REMOVE "+strings.Join(b.removes, ", "))
	}
	if len(clauses) == 0 {
		return nil, ErrEmptyUpdate
	}

	// Render into copies so Build leaves the builder untouched.
	a := newAliases(b.names, b.values)
	c := &compiled{update: strings.Join(clauses, " ")}
	if b.condition != nil {
		expr, err := b.condition.render(a, "")
		if err != nil {
			return nil, err
		}
		c.condition = aws.String(expr)
	}

	c.key = make(map[string]types.AttributeValue, len(b.key))
	for k, v := range b.key {
		c.key[k] = v
	}
	c.names = nilIfEmptyNames(a.names)
	c.values = nilIfEmptyValues(a.values)
	return c, nil
}

func (b *Builder) addPath(path Path) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		alias := "#n" + strconv.Itoa(b.index)
		b.index++
		b.names[alias] = seg
		parts[i] = alias
	}
	return strings.Join(parts, ".")
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// aliases is the shared name/value table a condition renders into.
type aliases struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func newAliases(names map[string]string, values map[string]types.AttributeValue) *aliases {
	a := &aliases{
		names:  make(map[string]string, len(names)),
		values: make(map[string]types.AttributeValue, len(values)),
	}
	for k, v := range names {
		a.names[k] = v
	}
	for k, v := range values {
		a.values[k] = v
	}
	return a
}

func (a *aliases) addName(alias, name string) error {
	if _, ok := a.names[alias]; ok {
		return fmt.Errorf("%w: %s", ErrAliasCollision, alias)
	}
	a.names[alias] = name
	return nil
}

func (a *aliases) addValue(alias string, v types.AttributeValue) error {
	if _, ok := a.values[alias]; ok {
		return fmt.Errorf("%w: %s", ErrAliasCollision, alias)
	}
	a.values[alias] = v
	return nil
}

func (a *aliases) conditionPath(path Path, n *counter) (string, error) {
	if err := path.Validate(); err != nil {
		return "", fmt.Errorf("condition on %q: %w", path.String(), err)
	}
	parts := make([]string, len(path))
	for i, seg := range path {
		alias := "#c" + n.next()
		if err := a.addName(alias, seg); err != nil {
			return "", err
		}
		parts[i] = alias
	}
	return strings.Join(parts, "."), nil
}

func nilIfEmptyNames(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

func nilIfEmptyValues(m map[string]types.AttributeValue) map[string]types.AttributeValue {
	if len(m) == 0 {
		return nil
	}
	return m
}
