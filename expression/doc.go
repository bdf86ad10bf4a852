// Package expression builds DynamoDB update and condition expressions.
//
// DynamoDB reserves several hundred ordinary words and does not accept literal
// values inline, so every attribute path segment and every value is passed by
// alias. The package guarantees those aliases are unique no matter how many
// times a caller touches the same or overlapping paths.
//
// # Updates
//
//	in, err := expression.NewUpdate().
//	    Table("prod-directories").
//	    Key("owner", "alice").
//	    Key("id", "home").
//	    Set(expression.Path{"items", "1500-1600#g1"}, item).
//	    Set(expression.Path{"updatedAt"}, now).
//	    Remove(expression.MustParsePath("legacy.field")).
//	    Condition(expression.Exists(expression.Path{"id"})).
//	    Return(types.ReturnValueAllNew).
//	    Build()
//
// Update clauses alias names as #n<i> and values as :n<i>.
//
// # Conditions
//
// Exists, NotExists, NotEqual and And form a small closed algebra. Each node
// numbers its own aliases from zero and And places each child in a scope
// derived from its position, so
//
//	And(Exists(Path{"a"}), Exists(Path{"a"}))
//
// renders as "(attribute_exists (#c0_0) AND attribute_exists (#c1_0))".
// Condition aliases use the #c / :c prefixes and never meet update aliases.
package expression
