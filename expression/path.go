package expression

import (
	"fmt"
	"strings"
)

// Path is an attribute path as an ordered list of segments. Each segment is
// aliased on its own, so segments may contain characters such as '#' or '.'
// that are not legal in a raw expression.
type Path []string

// ParsePath splits a dotted path ("items.abc.metadata") into segments.
func ParsePath(s string) (Path, error) {
	p := Path(strings.Split(s, "."))
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %q", err, s)
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error. Use it for literals.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate reports whether the path has at least one segment and no empty segments.
func (p Path) Validate() error {
	if len(p) == 0 {
		return ErrInvalidPath
	}
	for _, seg := range p {
		if seg == "" {
			return ErrInvalidPath
		}
	}
	return nil
}

// Append returns a new path with segs added after p. p is never modified.
func (p Path) Append(segs ...string) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, ".")
}
