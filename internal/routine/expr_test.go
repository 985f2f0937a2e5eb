package routine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func exprConditions(n int) []*ConditionNode {
	conditions := make([]*ConditionNode, n)
	for i := range conditions {
		conditions[i] = leaf(LeafUserID, OpEqual, fmt.Sprintf("u%d", i+1))
	}
	return conditions
}

func TestParseExpressionSingleOrdinal(t *testing.T) {
	conditions := exprConditions(2)

	node, err := ParseExpression("C1", conditions)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	// Ordinals resolve to the stored nodes themselves, not copies.
	if node != conditions[0] {
		t.Error("C1 should return the shared condition pointer")
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	conditions := exprConditions(3)

	// AND binds tighter than OR: C1 OR C2 AND C3 = C1 OR (C2 AND C3)
	node, err := ParseExpression("C1 OR C2 AND C3", conditions)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	if node.Type != NodeOr {
		t.Fatalf("root = %q, want or", node.Type)
	}
	if node.Children[0] != conditions[0] {
		t.Error("left child should be C1")
	}
	right := node.Children[1]
	if right.Type != NodeAnd {
		t.Fatalf("right child = %q, want and", right.Type)
	}
	if right.Children[0] != conditions[1] || right.Children[1] != conditions[2] {
		t.Error("and node should hold C2 and C3")
	}
}

func TestParseExpressionParentheses(t *testing.T) {
	conditions := exprConditions(3)

	node, err := ParseExpression("(C1 AND C2) OR C3", conditions)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	if node.Type != NodeOr {
		t.Fatalf("root = %q, want or", node.Type)
	}
	if node.Children[0].Type != NodeAnd {
		t.Errorf("left child = %q, want and", node.Children[0].Type)
	}
	if node.Children[1] != conditions[2] {
		t.Error("right child should be C3")
	}
}

func TestParseExpressionLeftFold(t *testing.T) {
	conditions := exprConditions(3)

	// C1 AND C2 AND C3 folds left: and(and(C1, C2), C3)
	node, err := ParseExpression("C1 AND C2 AND C3", conditions)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	if node.Type != NodeAnd || len(node.Children) != 2 {
		t.Fatalf("root should be a 2-child and, got %q with %d children",
			node.Type, len(node.Children))
	}
	inner := node.Children[0]
	if inner.Type != NodeAnd || len(inner.Children) != 2 {
		t.Fatalf("left child should be a 2-child and, got %q", inner.Type)
	}
	if inner.Children[0] != conditions[0] || inner.Children[1] != conditions[1] {
		t.Error("inner and should hold C1 and C2")
	}
	if node.Children[1] != conditions[2] {
		t.Error("outer and should end with C3")
	}
}

func TestParseExpressionNot(t *testing.T) {
	conditions := exprConditions(2)

	// NOT is right-associative and binds tighter than AND.
	node, err := ParseExpression("NOT NOT C1 AND C2", conditions)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	if node.Type != NodeAnd {
		t.Fatalf("root = %q, want and", node.Type)
	}
	outer := node.Children[0]
	if outer.Type != NodeNot {
		t.Fatalf("left child = %q, want not", outer.Type)
	}
	inner := outer.Children[0]
	if inner.Type != NodeNot || inner.Children[0] != conditions[0] {
		t.Error("double negation should nest not(not(C1))")
	}
}

func TestParseExpressionXorPrecedence(t *testing.T) {
	conditions := exprConditions(3)

	// XOR sits between OR and AND: C1 OR C2 XOR C3 = C1 OR (C2 XOR C3)
	node, err := ParseExpression("C1 OR C2 XOR C3", conditions)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	if node.Type != NodeOr {
		t.Fatalf("root = %q, want or", node.Type)
	}
	if node.Children[1].Type != NodeXor {
		t.Errorf("right child = %q, want xor", node.Children[1].Type)
	}
}

func TestParseExpressionSynonyms(t *testing.T) {
	conditions := exprConditions(3)

	tests := []struct {
		expr string
		want NodeType
	}{
		{"C1 ET C2", NodeAnd},
		{"C1 OU C2", NodeOr},
		{"NON C1", NodeNot},
		{"c1 and c2", NodeAnd}, // case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			node, err := ParseExpression(tt.expr, conditions)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error = %v", tt.expr, err)
			}
			if node.Type != tt.want {
				t.Errorf("root = %q, want %q", node.Type, tt.want)
			}
		})
	}
}

func TestParseExpressionErrors(t *testing.T) {
	conditions := exprConditions(2)

	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"empty", "", ErrInvalidExpression},
		{"ordinal out of range", "C5", ErrConditionOutOfRange},
		{"ordinal zero", "C0", ErrConditionOutOfRange},
		{"unbalanced open paren", "(C1 AND C2", ErrInvalidExpression},
		{"trailing close paren", "C1 AND C2)", ErrInvalidExpression},
		{"dangling operator", "C1 AND", ErrInvalidExpression},
		{"unknown token", "C1 NAND C2", ErrInvalidExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExpression(tt.expr, conditions)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseExpression(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestParseExpressionErrorNamesToken(t *testing.T) {
	_, err := ParseExpression("C1 NAND C2", exprConditions(2))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `"NAND"`) || !strings.Contains(err.Error(), "position 1") {
		t.Errorf("error should name the token and position, got %q", err.Error())
	}
}
