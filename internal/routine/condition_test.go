package routine

import (
	"testing"
	"time"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// fixedEvaluator returns an evaluator whose clock is pinned.
func fixedEvaluator(t time.Time) *Evaluator {
	return NewEvaluatorAt(func() time.Time { return t })
}

func leaf(kind LeafKind, op Operator, value string) *ConditionNode {
	return &ConditionNode{Type: NodeLeaf, Kind: kind, Operator: op, Value: value}
}

func TestEvaluateNilTree(t *testing.T) {
	eval := NewEvaluator()
	if !eval.Evaluate(nil, ExecutionContext{}) {
		t.Error("nil tree should be unconditionally true")
	}
}

func TestEvaluateCombinators(t *testing.T) {
	eval := NewEvaluator()
	ctx := ExecutionContext{
		ScopeID:   "scope-1",
		ChannelID: "room-1",
		Member:    &platform.Member{ID: "u1"},
	}

	trueLeaf := leaf(LeafUserID, OpEqual, "u1")
	falseLeaf := leaf(LeafUserID, OpEqual, "u2")

	tests := []struct {
		name string
		node *ConditionNode
		want bool
	}{
		{"empty and is true", &ConditionNode{Type: NodeAnd}, true},
		{"empty or is false", &ConditionNode{Type: NodeOr}, false},
		{"empty xor is false", &ConditionNode{Type: NodeXor}, false},
		{"childless not is true", &ConditionNode{Type: NodeNot}, true},
		{
			"and all true",
			&ConditionNode{Type: NodeAnd, Children: []*ConditionNode{trueLeaf, trueLeaf}},
			true,
		},
		{
			"and one false",
			&ConditionNode{Type: NodeAnd, Children: []*ConditionNode{trueLeaf, falseLeaf}},
			false,
		},
		{
			"or one true",
			&ConditionNode{Type: NodeOr, Children: []*ConditionNode{falseLeaf, trueLeaf}},
			true,
		},
		{
			"or all false",
			&ConditionNode{Type: NodeOr, Children: []*ConditionNode{falseLeaf, falseLeaf}},
			false,
		},
		{
			"xor exactly one true",
			&ConditionNode{Type: NodeXor, Children: []*ConditionNode{trueLeaf, falseLeaf}},
			true,
		},
		{
			"xor two true",
			&ConditionNode{Type: NodeXor, Children: []*ConditionNode{trueLeaf, trueLeaf}},
			false,
		},
		{
			"xor none true",
			&ConditionNode{Type: NodeXor, Children: []*ConditionNode{falseLeaf, falseLeaf}},
			false,
		},
		{
			"not inverts",
			&ConditionNode{Type: NodeNot, Children: []*ConditionNode{falseLeaf}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eval.Evaluate(tt.node, ctx); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateLeaves(t *testing.T) {
	eval := NewEvaluator()

	member := &platform.Member{ID: "u1", RoleIDs: []string{"mod", "dj"}}
	full := ExecutionContext{ScopeID: "s", ChannelID: "room-1", Member: member}

	tests := []struct {
		name string
		node *ConditionNode
		ctx  ExecutionContext
		want bool
	}{
		{"user match", leaf(LeafUserID, OpEqual, "u1"), full, true},
		{"user mismatch", leaf(LeafUserID, OpEqual, "u2"), full, false},
		{"user not-equal", leaf(LeafUserID, OpNotEqual, "u2"), full, true},
		{"channel match", leaf(LeafChannelID, OpEqual, "room-1"), full, true},
		{"channel not-equal mismatch", leaf(LeafChannelID, OpNotEqual, "room-1"), full, false},
		{"role held", leaf(LeafRoleID, OpEqual, "dj"), full, true},
		{"role not held", leaf(LeafRoleID, OpEqual, "admin"), full, false},
		{"role not-equal", leaf(LeafRoleID, OpNotEqual, "admin"), full, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eval.Evaluate(tt.node, tt.ctx); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// A leaf whose subject is absent from the context is false even under
// the not-equal operator.
func TestEvaluateAbsentSubject(t *testing.T) {
	eval := NewEvaluator()
	empty := ExecutionContext{ScopeID: "s"}

	tests := []struct {
		name string
		node *ConditionNode
	}{
		{"user equal without member", leaf(LeafUserID, OpEqual, "u1")},
		{"user not-equal without member", leaf(LeafUserID, OpNotEqual, "u1")},
		{"role not-equal without member", leaf(LeafRoleID, OpNotEqual, "mod")},
		{"channel equal without room", leaf(LeafChannelID, OpEqual, "room-1")},
		{"channel not-equal without room", leaf(LeafChannelID, OpNotEqual, "room-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if eval.Evaluate(tt.node, empty) {
				t.Error("leaf with absent subject should be false")
			}
		})
	}
}

func TestEvaluateTimeRange(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 8, 26, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		value string
		now   time.Time
		want  bool
	}{
		{"inside plain range", "09:00-17:00", at(12, 0), true},
		{"outside plain range", "09:00-17:00", at(20, 0), false},
		{"range start inclusive", "09:00-17:00", at(9, 0), true},
		{"range end inclusive", "09:00-17:00", at(17, 0), true},
		{"overnight before midnight", "22:00-06:00", at(23, 30), true},
		{"overnight after midnight", "22:00-06:00", at(2, 0), true},
		{"overnight outside", "22:00-06:00", at(12, 0), false},
		{"malformed range is false", "not-a-range", at(12, 0), false},
		{"bad clock is false", "25:00-26:00", at(12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := fixedEvaluator(tt.now)
			node := leaf(LeafTimeRange, OpEqual, tt.value)
			if got := eval.Evaluate(node, ExecutionContext{}); got != tt.want {
				t.Errorf("Evaluate(%q at %s) = %v, want %v",
					tt.value, tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestEvaluateTimeRangeNotEqual(t *testing.T) {
	eval := fixedEvaluator(time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))
	node := leaf(LeafTimeRange, OpNotEqual, "09:00-17:00")
	if eval.Evaluate(node, ExecutionContext{}) {
		t.Error("inside range with != should be false")
	}
}

func TestEvaluateDateRange(t *testing.T) {
	on := func(day int, month time.Month) time.Time {
		return time.Date(2026, month, day, 12, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		value string
		now   time.Time
		want  bool
	}{
		{"inside plain range", "01/06-31/08", on(26, time.August), true},
		{"outside plain range", "01/06-31/08", on(15, time.October), false},
		{"colon separator variant", "01:06-31:08", on(26, time.August), true},
		{"year crossing december side", "20/12-05/01", on(25, time.December), true},
		{"year crossing january side", "20/12-05/01", on(2, time.January), true},
		{"year crossing outside", "20/12-05/01", on(15, time.June), false},
		{"malformed date is false", "99/99-00/00", on(1, time.January), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := fixedEvaluator(tt.now)
			node := leaf(LeafDateRange, OpEqual, tt.value)
			if got := eval.Evaluate(node, ExecutionContext{}); got != tt.want {
				t.Errorf("Evaluate(%q on %s) = %v, want %v",
					tt.value, tt.now.Format("02/01"), got, tt.want)
			}
		})
	}
}

func TestEvaluateNestedTree(t *testing.T) {
	eval := fixedEvaluator(time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC))
	ctx := ExecutionContext{
		ScopeID:   "s",
		ChannelID: "lounge",
		Member:    &platform.Member{ID: "u1"},
	}

	// (user==u1 AND time==22:00-06:00) OR channel==stage
	tree := &ConditionNode{
		Type: NodeOr,
		Children: []*ConditionNode{
			{
				Type: NodeAnd,
				Children: []*ConditionNode{
					leaf(LeafUserID, OpEqual, "u1"),
					leaf(LeafTimeRange, OpEqual, "22:00-06:00"),
				},
			},
			leaf(LeafChannelID, OpEqual, "stage"),
		},
	}

	if !eval.Evaluate(tree, ctx) {
		t.Error("left branch should satisfy the tree")
	}

	ctx.Member = &platform.Member{ID: "u2"}
	if eval.Evaluate(tree, ctx) {
		t.Error("neither branch should satisfy the tree")
	}
}
