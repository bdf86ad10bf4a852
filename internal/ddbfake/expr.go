package ddbfake

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// This file parses the subset of the DynamoDB expression grammar the
// repository emits:
//
//	condition := or
//	or        := and ("OR" and)*
//	and       := primary ("AND" primary)*
//	primary   := "(" condition ")"
//	           | ("attribute_exists" | "attribute_not_exists") "(" path ")"
//	           | operand ("=" | "<>") operand
//	update    := ("SET" path "=" operand ("," path "=" operand)*
//	           |  "REMOVE" path ("," path)*)+
//	operand   := ":value" | path
//	path      := name ("." name)*

type token struct {
	text  string
	ident bool
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		ch := s[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(' || ch == ')' || ch == ',' || ch == '.' || ch == '=':
			toks = append(toks, token{text: string(ch)})
			i++
		case ch == '<':
			if i+1 < len(s) && s[i+1] == '>' {
				toks = append(toks, token{text: "<>"})
				i += 2
				continue
			}
			return nil, fmt.Errorf("unsupported operator at offset %d", i)
		case isIdentChar(ch):
			start := i
			for i < len(s) && isIdentChar(s[i]) {
				i++
			}
			toks = append(toks, token{text: s[start:i], ident: true})
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", ch, i)
		}
	}
	return toks, nil
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch == '#' || ch == ':' || ch == '-' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// docPath is a resolved attribute path (aliases already substituted).
type docPath []string

func (p docPath) String() string { return strings.Join(p, ".") }

func (p docPath) overlaps(o docPath) bool {
	n := len(p)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

type operand struct {
	path  docPath
	value types.AttributeValue
}

func (o operand) resolve(item map[string]types.AttributeValue) (types.AttributeValue, bool) {
	if o.value != nil {
		return o.value, true
	}
	return getPath(item, o.path)
}

type condNode interface {
	eval(item map[string]types.AttributeValue) bool
}

type existsNode struct {
	path   docPath
	negate bool
}

func (n existsNode) eval(item map[string]types.AttributeValue) bool {
	_, ok := getPath(item, n.path)
	return ok != n.negate
}

type compareNode struct {
	op          string
	left, right operand
}

func (n compareNode) eval(item map[string]types.AttributeValue) bool {
	l, ok := n.left.resolve(item)
	if !ok {
		return false
	}
	r, ok := n.right.resolve(item)
	if !ok {
		return false
	}
	eq := equalAV(l, r)
	if n.op == "=" {
		return eq
	}
	return !eq
}

type logicNode struct {
	or       bool
	children []condNode
}

func (n logicNode) eval(item map[string]types.AttributeValue) bool {
	for _, c := range n.children {
		v := c.eval(item)
		if n.or && v {
			return true
		}
		if !n.or && !v {
			return false
		}
	}
	return !n.or
}

type setAction struct {
	path  docPath
	value operand
}

type updateExpr struct {
	sets    []setAction
	removes []docPath
}

// parser resolves aliases while parsing and records which ones were used,
// so a request can be rejected for unused aliases like DynamoDB does.
type parser struct {
	toks   []token
	pos    int
	names  map[string]string
	values map[string]types.AttributeValue

	usedNames  map[string]bool
	usedValues map[string]bool
}

func newParser(names map[string]string, values map[string]types.AttributeValue) *parser {
	return &parser{
		names:      names,
		values:     values,
		usedNames:  make(map[string]bool),
		usedValues: make(map[string]bool),
	}
}

func (p *parser) reset(expr string) error {
	toks, err := tokenize(expr)
	if err != nil {
		return err
	}
	p.toks = toks
	p.pos = 0
	return nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) expect(text string) error {
	t, ok := p.next()
	if !ok || t.text != text {
		return fmt.Errorf("expected %q, got %q", text, t.text)
	}
	return nil
}

func (p *parser) peekKeyword(kw string) bool {
	t, ok := p.peek()
	return ok && t.ident && strings.EqualFold(t.text, kw)
}

func (p *parser) parseCondition(expr string) (condNode, error) {
	if err := p.reset(expr); err != nil {
		return nil, err
	}
	c, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
	return c, nil
}

func (p *parser) parseOr() (condNode, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []condNode{first}
	for p.peekKeyword("OR") {
		p.pos++
		c, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return first, nil
	}
	return logicNode{or: true, children: children}, nil
}

func (p *parser) parseAnd() (condNode, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	children := []condNode{first}
	for p.peekKeyword("AND") {
		p.pos++
		c, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	if len(children) == 1 {
		return first, nil
	}
	return logicNode{children: children}, nil
}

func (p *parser) parsePrimary() (condNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of condition")
	}

	if t.text == "(" {
		p.pos++
		c, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return c, p.expect(")")
	}

	if t.ident && (strings.EqualFold(t.text, "attribute_exists") || strings.EqualFold(t.text, "attribute_not_exists")) {
		p.pos++
		if err := p.expect("("); err != nil {
			return nil, err
		}
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return existsNode{path: path, negate: strings.EqualFold(t.text, "attribute_not_exists")}, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, ok := p.next()
	if !ok || (op.text != "=" && op.text != "<>") {
		return nil, fmt.Errorf("expected comparator, got %q", op.text)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareNode{op: op.text, left: left, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t, ok := p.peek()
	if ok && t.ident && strings.HasPrefix(t.text, ":") {
		p.pos++
		v, found := p.values[t.text]
		if !found {
			return operand{}, fmt.Errorf("value %s is not defined", t.text)
		}
		p.usedValues[t.text] = true
		return operand{value: v}, nil
	}
	path, err := p.parsePath()
	if err != nil {
		return operand{}, err
	}
	return operand{path: path}, nil
}

func (p *parser) parsePath() (docPath, error) {
	var path docPath
	for {
		t, ok := p.next()
		if !ok || !t.ident || strings.HasPrefix(t.text, ":") {
			return nil, fmt.Errorf("expected attribute name, got %q", t.text)
		}
		seg := t.text
		if strings.HasPrefix(seg, "#") {
			name, found := p.names[seg]
			if !found {
				return nil, fmt.Errorf("name %s is not defined", seg)
			}
			p.usedNames[seg] = true
			seg = name
		}
		path = append(path, seg)

		if nt, ok := p.peek(); !ok || nt.text != "." {
			return path, nil
		}
		p.pos++
	}
}

func (p *parser) parseUpdate(expr string) (*updateExpr, error) {
	if err := p.reset(expr); err != nil {
		return nil, err
	}
	u := &updateExpr{}
	for {
		kw, ok := p.next()
		if !ok {
			break
		}
		switch {
		case kw.ident && strings.EqualFold(kw.text, "SET"):
			for {
				path, err := p.parsePath()
				if err != nil {
					return nil, err
				}
				if err := p.expect("="); err != nil {
					return nil, err
				}
				value, err := p.parseOperand()
				if err != nil {
					return nil, err
				}
				u.sets = append(u.sets, setAction{path: path, value: value})
				if t, ok := p.peek(); !ok || t.text != "," {
					break
				}
				p.pos++
			}
		case kw.ident && strings.EqualFold(kw.text, "REMOVE"):
			for {
				path, err := p.parsePath()
				if err != nil {
					return nil, err
				}
				u.removes = append(u.removes, path)
				if t, ok := p.peek(); !ok || t.text != "," {
					break
				}
				p.pos++
			}
		default:
			return nil, fmt.Errorf("unexpected token %q in update expression", kw.text)
		}
	}
	if len(u.sets) == 0 && len(u.removes) == 0 {
		return nil, fmt.Errorf("empty update expression")
	}

	all := make([]docPath, 0, len(u.sets)+len(u.removes))
	for _, s := range u.sets {
		all = append(all, s.path)
	}
	all = append(all, u.removes...)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].overlaps(all[j]) {
				return nil, fmt.Errorf("two document paths overlap with each other: [%s], [%s]", all[i], all[j])
			}
		}
	}
	return u, nil
}

// checkUnused rejects aliases that were supplied but never referenced.
func (p *parser) checkUnused() error {
	for k := range p.names {
		if !p.usedNames[k] {
			return fmt.Errorf("value provided in ExpressionAttributeNames unused in expressions: keys: {%s}", k)
		}
	}
	for k := range p.values {
		if !p.usedValues[k] {
			return fmt.Errorf("value provided in ExpressionAttributeValues unused in expressions: keys: {%s}", k)
		}
	}
	return nil
}
