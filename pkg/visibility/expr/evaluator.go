package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Evaluator is a small, dependency-free rule evaluator.
//
// Grammar:
//
//	or      := and ( "||" and )*
//	and     := unary ( "&&" unary )*
//	unary   := "!" unary | primary
//	primary := "(" or ")" | ident [ ("==" | "!=") literal ]
//
// A bare identifier is true when the referenced value is truthy, so a
// checked control id reads naturally: `s1q1-op2 && s1q4-op1`. Identifiers
// prefixed with `extras.` read from Context.Extras.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Eval parses and evaluates rule. An empty rule is false: out conditions must
// opt in explicitly.
func (e *Evaluator) Eval(subject, rule string, ctx visibility.Context) (bool, error) {
	if strings.TrimSpace(rule) == "" {
		return false, nil
	}
	p := &parser{lex: lexer{src: rule}}
	if err := p.advance(); err != nil {
		return false, fmt.Errorf("visibility/expr: %s: %w", subject, err)
	}
	node, err := p.parseOr()
	if err != nil {
		return false, fmt.Errorf("visibility/expr: %s: %w", subject, err)
	}
	if p.tok.kind != tokEOF {
		return false, fmt.Errorf("visibility/expr: %s: unexpected %q", subject, p.tok.text)
	}
	return node.eval(ctx), nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokNumber
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type tok struct {
	kind tokKind
	text string
}

type lexer struct {
	src string
	pos int
}

func isIdentRune(r byte) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsLetter(rune(r)) || unicode.IsDigit(rune(r))
}

func (l *lexer) next() (tok, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return tok{kind: tokEOF}, nil
	}
	rest := l.src[l.pos:]
	for _, op := range []struct {
		text string
		kind tokKind
	}{{"==", tokEq}, {"!=", tokNeq}, {"&&", tokAnd}, {"||", tokOr}, {"!", tokNot}, {"(", tokLParen}, {")", tokRParen}} {
		if strings.HasPrefix(rest, op.text) {
			l.pos += len(op.text)
			return tok{kind: op.kind, text: op.text}, nil
		}
	}

	switch ch := l.src[l.pos]; {
	case ch == '"' || ch == '\'':
		end := strings.IndexByte(l.src[l.pos+1:], ch)
		if end < 0 {
			return tok{}, fmt.Errorf("unterminated string literal")
		}
		text := l.src[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
		return tok{kind: tokString, text: text}, nil
	case isIdentRune(ch):
		start := l.pos
		for l.pos < len(l.src) && isIdentRune(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		if _, err := strconv.ParseFloat(text, 64); err == nil {
			return tok{kind: tokNumber, text: text}, nil
		}
		return tok{kind: tokIdent, text: text}, nil
	default:
		return tok{}, fmt.Errorf("unexpected character %q", ch)
	}
}

type parser struct {
	lex lexer
	tok tok
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.tok.kind == tokNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	switch p.tok.kind {
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("missing closing ')'")
		}
		return inner, p.advance()
	case tokIdent:
		ident := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokEq && p.tok.kind != tokNeq {
			return truthyNode{ident}, nil
		}
		negate := p.tok.kind == tokNeq
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.kind {
		case tokString, tokNumber, tokIdent:
		default:
			return nil, fmt.Errorf("expected literal after comparison, got %q", p.tok.text)
		}
		lit := p.tok.text
		return compareNode{ident: ident, literal: lit, negate: negate}, p.advance()
	case tokEOF:
		return nil, fmt.Errorf("empty expression")
	default:
		return nil, fmt.Errorf("expected identifier, got %q", p.tok.text)
	}
}

type node interface {
	eval(ctx visibility.Context) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) bool { return n.left.eval(ctx) || n.right.eval(ctx) }

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) bool { return n.left.eval(ctx) && n.right.eval(ctx) }

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) bool { return !n.inner.eval(ctx) }

type truthyNode struct{ ident string }

func (n truthyNode) eval(ctx visibility.Context) bool {
	value, ok := lookup(ctx, n.ident)
	return ok && truthy(value)
}

// compareNode compares the stringified value with the literal. Numbers are
// compared numerically when both sides parse.
type compareNode struct {
	ident   string
	literal string
	negate  bool
}

func (n compareNode) eval(ctx visibility.Context) bool {
	value, _ := lookup(ctx, n.ident)
	got := stringify(value)
	equal := got == n.literal
	if !equal {
		a, errA := strconv.ParseFloat(got, 64)
		b, errB := strconv.ParseFloat(n.literal, 64)
		equal = errA == nil && errB == nil && a == b
	}
	if n.literal == "null" && value == nil {
		equal = true
	}
	return equal != n.negate
}

func lookup(ctx visibility.Context, ident string) (any, bool) {
	if path, ok := strings.CutPrefix(ident, "extras."); ok {
		v, found := ctx.Extras[path]
		return v, found
	}
	v, found := ctx.Values[ident]
	return v, found
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}
