package expression

import "errors"

var (
	// ErrInvalidPath is returned when an attribute path is empty or has an empty segment.
	ErrInvalidPath = errors.New("expression: invalid attribute path")

	// ErrIncompleteCondition is returned when a condition is rendered without a concrete
	// predicate (a nil condition or an And with no children). It always indicates a
	// composition bug in the caller.
	ErrIncompleteCondition = errors.New("expression: condition has no concrete predicate")

	// ErrAliasCollision is returned when two placeholders would render to the same alias.
	ErrAliasCollision = errors.New("expression: alias collision")

	// ErrMissingTable is returned by Build when no table was selected.
	ErrMissingTable = errors.New("expression: table name is required")

	// ErrEmptyUpdate is returned by Build when neither Set nor Remove recorded a clause.
	ErrEmptyUpdate = errors.New("expression: update has no SET or REMOVE clauses")

	// ErrMissingKey is returned by Build when no key component was set.
	ErrMissingKey = errors.New("expression: key is required")
)
