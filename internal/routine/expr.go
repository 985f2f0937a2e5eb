package routine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseExpression parses a free-text boolean expression over condition
// ordinals into a condition tree. Ordinals (C1, C2, ...) are 1-based
// references into conditions; the returned tree shares those nodes.
//
// Grammar, loosest-binding first:
//
//	expr    := orExpr
//	orExpr  := xorExpr ('OR' xorExpr)*
//	xorExpr := andExpr ('XOR' andExpr)*
//	andExpr := notExpr ('AND' notExpr)*
//	notExpr := 'NOT' notExpr | primary
//	primary := '(' expr ')' | 'C' digits
//
// Operators are case-insensitive; the synonyms ET, OU and NON are
// accepted for AND, OR and NOT. Binary operators fold left into
// 2-child nodes, NOT is right-associative. Errors identify the
// offending token and its position.
func ParseExpression(text string, conditions []*ConditionNode) (*ConditionNode, error) {
	tokens := tokenizeExpression(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	p := exprParser{tokens: tokens, conditions: conditions}
	node, pos, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if pos != len(tokens) {
		return nil, fmt.Errorf("%w: unexpected token %q at position %d",
			ErrInvalidExpression, tokens[pos], pos)
	}
	return node, nil
}

// tokenizeExpression splits an expression on whitespace and
// parentheses, uppercasing tokens and normalising operator synonyms.
func tokenizeExpression(text string) []string {
	text = strings.ReplaceAll(text, "(", " ( ")
	text = strings.ReplaceAll(text, ")", " ) ")

	var tokens []string
	for _, field := range strings.Fields(text) {
		tok := strings.ToUpper(field)
		switch tok {
		case "ET":
			tok = "AND"
		case "OU":
			tok = "OR"
		case "NON":
			tok = "NOT"
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// exprParser is a recursive-descent parser over a fixed token slice.
// Each rule returns (node, nextPosition) instead of mutating shared
// cursor state, so the rules stay independently testable.
type exprParser struct {
	tokens     []string
	conditions []*ConditionNode
}

func (p *exprParser) parseOr(pos int) (*ConditionNode, int, error) {
	left, pos, err := p.parseXor(pos)
	if err != nil {
		return nil, 0, err
	}

	for pos < len(p.tokens) && p.tokens[pos] == "OR" {
		right, next, err := p.parseXor(pos + 1)
		if err != nil {
			return nil, 0, err
		}
		left = &ConditionNode{Type: NodeOr, Children: []*ConditionNode{left, right}}
		pos = next
	}
	return left, pos, nil
}

func (p *exprParser) parseXor(pos int) (*ConditionNode, int, error) {
	left, pos, err := p.parseAnd(pos)
	if err != nil {
		return nil, 0, err
	}

	for pos < len(p.tokens) && p.tokens[pos] == "XOR" {
		right, next, err := p.parseAnd(pos + 1)
		if err != nil {
			return nil, 0, err
		}
		left = &ConditionNode{Type: NodeXor, Children: []*ConditionNode{left, right}}
		pos = next
	}
	return left, pos, nil
}

func (p *exprParser) parseAnd(pos int) (*ConditionNode, int, error) {
	left, pos, err := p.parseNot(pos)
	if err != nil {
		return nil, 0, err
	}

	for pos < len(p.tokens) && p.tokens[pos] == "AND" {
		right, next, err := p.parseNot(pos + 1)
		if err != nil {
			return nil, 0, err
		}
		left = &ConditionNode{Type: NodeAnd, Children: []*ConditionNode{left, right}}
		pos = next
	}
	return left, pos, nil
}

func (p *exprParser) parseNot(pos int) (*ConditionNode, int, error) {
	if pos < len(p.tokens) && p.tokens[pos] == "NOT" {
		child, next, err := p.parseNot(pos + 1)
		if err != nil {
			return nil, 0, err
		}
		return &ConditionNode{Type: NodeNot, Children: []*ConditionNode{child}}, next, nil
	}
	return p.parsePrimary(pos)
}

func (p *exprParser) parsePrimary(pos int) (*ConditionNode, int, error) {
	if pos >= len(p.tokens) {
		return nil, 0, fmt.Errorf("%w: unexpected end of expression", ErrInvalidExpression)
	}

	tok := p.tokens[pos]

	if tok == "(" {
		node, next, err := p.parseOr(pos + 1)
		if err != nil {
			return nil, 0, err
		}
		if next >= len(p.tokens) || p.tokens[next] != ")" {
			return nil, 0, fmt.Errorf("%w: missing closing parenthesis for '(' at position %d",
				ErrInvalidExpression, pos)
		}
		return node, next + 1, nil
	}

	if strings.HasPrefix(tok, "C") && len(tok) > 1 {
		ordinal, err := strconv.Atoi(tok[1:])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: unexpected token %q at position %d",
				ErrInvalidExpression, tok, pos)
		}
		if ordinal < 1 || ordinal > len(p.conditions) {
			return nil, 0, fmt.Errorf("%w: C%d (routine has %d conditions)",
				ErrConditionOutOfRange, ordinal, len(p.conditions))
		}
		return p.conditions[ordinal-1], pos + 1, nil
	}

	return nil, 0, fmt.Errorf("%w: unexpected token %q at position %d",
		ErrInvalidExpression, tok, pos)
}
