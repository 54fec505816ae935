package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-onboarding/pkg/condition"
)

// Evaluator is a small, dependency-free predicate evaluator for
// conditional requirements.
//
// Supported forms:
// - truthiness: `has_license`
// - comparisons: `role == "driver"`, `experience_years != 0`, `photo == null`
// - composition: `!mode.edit && role == "driver"`, `a || (b && c)`
//
// Identifiers resolve against condition.Context.Values. `role` and
// `mode.edit` resolve against the context itself.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Eval parses and evaluates rule. An empty rule always holds.
func (e *Evaluator) Eval(rule string, ctx condition.Context) (bool, error) {
	pred, err := Compile(rule)
	if err != nil {
		return false, err
	}
	return pred.Eval(ctx)
}

// Predicate is a parsed expression. Evaluation reads the context only.
type Predicate struct {
	root node
}

// Compile parses rule into a reusable Predicate.
func Compile(rule string) (Predicate, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return Predicate{}, nil
	}
	toks, err := lex(trimmed)
	if err != nil {
		return Predicate{}, err
	}
	p := &parser{toks: toks}
	root, err := p.or()
	if err != nil {
		return Predicate{}, err
	}
	if p.pos < len(p.toks) {
		return Predicate{}, fmt.Errorf("condition/expr: unexpected token %q", p.toks[p.pos].text)
	}
	return Predicate{root: root}, nil
}

// Eval evaluates the predicate. The zero Predicate holds.
func (p Predicate) Eval(ctx condition.Context) (bool, error) {
	if p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

type kind int

const (
	kIdent kind = iota
	kString
	kNumber
	kBool
	kNull
	kEq
	kNeq
	kAnd
	kOr
	kNot
	kLParen
	kRParen
)

type tok struct {
	kind kind
	text string
}

func lex(input string) ([]tok, error) {
	var out []tok
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			out = append(out, tok{kLParen, "("})
			i++
		case ch == ')':
			out = append(out, tok{kRParen, ")"})
			i++
		case strings.HasPrefix(input[i:], "=="):
			out = append(out, tok{kEq, "=="})
			i += 2
		case strings.HasPrefix(input[i:], "!="):
			out = append(out, tok{kNeq, "!="})
			i += 2
		case strings.HasPrefix(input[i:], "&&"):
			out = append(out, tok{kAnd, "&&"})
			i += 2
		case strings.HasPrefix(input[i:], "||"):
			out = append(out, tok{kOr, "||"})
			i += 2
		case ch == '!':
			out = append(out, tok{kNot, "!"})
			i++
		case ch == '"' || ch == '\'':
			end := i + 1
			for end < len(input) && input[end] != ch {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, errors.New("condition/expr: unterminated string literal")
			}
			raw := input[i+1 : end]
			if ch == '"' {
				unquoted, err := strconv.Unquote(`"` + raw + `"`)
				if err != nil {
					return nil, fmt.Errorf("condition/expr: invalid string literal: %w", err)
				}
				raw = unquoted
			}
			out = append(out, tok{kString, raw})
			i = end + 1
		case ch == '=' || ch == '&' || ch == '|':
			return nil, fmt.Errorf("condition/expr: unexpected %q", string(ch))
		default:
			start := i
			for i < len(input) && !strings.ContainsRune(" \t\n\r()!=&|\"'", rune(input[i])) {
				i++
			}
			word := input[start:i]
			switch strings.ToLower(word) {
			case "true", "false":
				out = append(out, tok{kBool, strings.ToLower(word)})
			case "null", "nil":
				out = append(out, tok{kNull, "null"})
			default:
				if _, err := strconv.ParseFloat(word, 64); err == nil {
					out = append(out, tok{kNumber, word})
				} else {
					out = append(out, tok{kIdent, word})
				}
			}
		}
	}
	return out, nil
}

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) peek(k kind) bool {
	return p.pos < len(p.toks) && p.toks[p.pos].kind == k
}

func (p *parser) accept(k kind) bool {
	if p.peek(k) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(kOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(kAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(kNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.accept(kLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(kRParen) {
			return nil, errors.New("condition/expr: missing closing ')'")
		}
		return inner, nil
	}
	if !p.peek(kIdent) {
		if p.pos >= len(p.toks) {
			return nil, errors.New("condition/expr: unexpected end of expression")
		}
		return nil, fmt.Errorf("condition/expr: expected identifier, got %q", p.toks[p.pos].text)
	}
	ident := p.toks[p.pos].text
	p.pos++

	for _, op := range []kind{kEq, kNeq} {
		if !p.accept(op) {
			continue
		}
		if p.pos >= len(p.toks) {
			return nil, errors.New("condition/expr: missing literal")
		}
		lit := p.toks[p.pos]
		p.pos++
		switch lit.kind {
		case kString, kNumber, kBool, kNull:
		case kIdent:
			lit.kind = kString
		default:
			return nil, fmt.Errorf("condition/expr: expected literal, got %q", lit.text)
		}
		return compareNode{ident: ident, negate: op == kNeq, lit: lit}, nil
	}
	return truthyNode{ident}, nil
}

type node interface {
	eval(ctx condition.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx condition.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx condition.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx condition.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ ident string }

func (n truthyNode) eval(ctx condition.Context) (bool, error) {
	value, ok := lookup(ctx, n.ident)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type compareNode struct {
	ident  string
	negate bool
	lit    tok
}

func (n compareNode) eval(ctx condition.Context) (bool, error) {
	value, _ := lookup(ctx, n.ident)
	var equal bool
	switch n.lit.kind {
	case kNull:
		equal = value == nil
	case kBool:
		equal = truthy(value) == (n.lit.text == "true")
	case kNumber:
		want, err := strconv.ParseFloat(n.lit.text, 64)
		if err != nil {
			return false, fmt.Errorf("condition/expr: invalid number literal %q", n.lit.text)
		}
		got, ok := number(value)
		equal = ok && got == want
	default:
		equal = text(value) == n.lit.text
	}
	if n.negate {
		return !equal, nil
	}
	return equal, nil
}

func lookup(ctx condition.Context, ident string) (any, bool) {
	switch strings.ToLower(ident) {
	case "role":
		return ctx.Role, true
	case "mode.edit":
		return ctx.EditMode, true
	}
	if ctx.Values == nil {
		return nil, false
	}
	value, ok := ctx.Values[ident]
	return value, ok
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
		return trimmed != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
