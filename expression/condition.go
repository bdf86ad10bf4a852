package expression

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition is a predicate evaluated by DynamoDB at write time. The set of
// implementations is closed: use Exists, NotExists, NotEqual and And.
//
// Conditions are immutable once constructed and may be shared between
// builders and goroutines.
type Condition interface {
	render(a *aliases, scope string) (string, error)
}

// ConditionExpression is a rendered condition ready to be placed on a
// DeleteItem, Put or ConditionCheck input.
type ConditionExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// RenderCondition renders c on its own, outside of an update builder.
func RenderCondition(c Condition) (*ConditionExpression, error) {
	a := newAliases(nil, nil)
	expr, err := renderCondition(c, a)
	if err != nil {
		return nil, err
	}
	return &ConditionExpression{
		Expression: expr,
		Names:      nilIfEmptyNames(a.names),
		Values:     nilIfEmptyValues(a.values),
	}, nil
}

func renderCondition(c Condition, a *aliases) (string, error) {
	if c == nil {
		return "", ErrIncompleteCondition
	}
	return c.render(a, "")
}

// Exists holds when the attribute at path is present.
func Exists(path Path) Condition {
	return existsCondition{path: path}
}

// NotExists holds when the attribute at path is absent.
func NotExists(path Path) Condition {
	return notExistsCondition{path: path}
}

// NotEqual holds when the attribute at path is present and differs from value.
func NotEqual(path Path, value any) Condition {
	return notEqualCondition{path: path, value: value}
}

// And holds when every child holds. Each child renders in its own alias
// scope, so identical children never share a placeholder.
func And(conditions ...Condition) Condition {
	return andCondition{conditions: conditions}
}

type existsCondition struct{ path Path }

func (c existsCondition) render(a *aliases, scope string) (string, error) {
	n := &counter{scope: scope}
	p, err := a.conditionPath(c.path, n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("attribute_exists (%s)", p), nil
}

type notExistsCondition struct{ path Path }

func (c notExistsCondition) render(a *aliases, scope string) (string, error) {
	n := &counter{scope: scope}
	p, err := a.conditionPath(c.path, n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("attribute_not_exists (%s)", p), nil
}

type notEqualCondition struct {
	path  Path
	value any
}

func (c notEqualCondition) render(a *aliases, scope string) (string, error) {
	n := &counter{scope: scope}

	av, err := attributevalue.Marshal(c.value)
	if err != nil {
		return "", fmt.Errorf("marshal condition value for %q: %w", c.path.String(), err)
	}
	valueAlias := ":c" + n.next()
	if err := a.addValue(valueAlias, av); err != nil {
		return "", err
	}

	p, err := a.conditionPath(c.path, n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s <> %s", p, valueAlias), nil
}

type andCondition struct{ conditions []Condition }

func (c andCondition) render(a *aliases, scope string) (string, error) {
	if len(c.conditions) == 0 {
		return "", fmt.Errorf("%w: empty And", ErrIncompleteCondition)
	}
	parts := make([]string, 0, len(c.conditions))
	for i, child := range c.conditions {
		if child == nil {
			return "", fmt.Errorf("%w: And child %d is nil", ErrIncompleteCondition, i)
		}
		part, err := child.render(a, scope+strconv.Itoa(i)+"_")
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

// counter hands out the per-node alias suffixes. Every node starts at zero;
// the scope (sibling indexes, each terminated by '_') keeps nodes apart.
type counter struct {
	scope string
	n     int
}

func (c *counter) next() string {
	s := c.scope + strconv.Itoa(c.n)
	c.n++
	return s
}
