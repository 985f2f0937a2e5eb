package routine

import (
	"strconv"
	"strings"
	"time"
)

// Evaluator evaluates condition trees against execution contexts.
//
// The clock is injectable so time/date range leaves can be tested
// deterministically.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator creates an evaluator using the system clock.
func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// NewEvaluatorAt creates an evaluator with a fixed clock, for tests.
func NewEvaluatorAt(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Evaluate returns the truth value of a condition tree in a context.
//
// A nil tree is unconditionally true: a routine with no conditions is
// always eligible. Combinator semantics:
//   - And: true if empty, short-circuits on first false child
//   - Or: false if empty, short-circuits on first true child
//   - Xor: true iff exactly one child is true (all children evaluated)
//   - Not: negates its single child; vacuously true without one
func (e *Evaluator) Evaluate(node *ConditionNode, ctx ExecutionContext) bool {
	if node == nil {
		return true
	}

	switch node.Type {
	case NodeAnd:
		for _, child := range node.Children {
			if !e.Evaluate(child, ctx) {
				return false
			}
		}
		return true

	case NodeOr:
		for _, child := range node.Children {
			if e.Evaluate(child, ctx) {
				return true
			}
		}
		return false

	case NodeXor:
		trueCount := 0
		for _, child := range node.Children {
			if e.Evaluate(child, ctx) {
				trueCount++
			}
		}
		return trueCount == 1

	case NodeNot:
		if len(node.Children) == 0 {
			return true
		}
		return !e.Evaluate(node.Children[0], ctx)

	case NodeLeaf:
		return e.evaluateLeaf(node, ctx)
	}

	return false
}

// evaluateLeaf evaluates an atomic predicate. A leaf whose subject is
// absent from the context (no member for user/role checks, no room for
// channel checks) is false regardless of operator.
func (e *Evaluator) evaluateLeaf(node *ConditionNode, ctx ExecutionContext) bool {
	switch node.Kind {
	case LeafUserID:
		if ctx.Member == nil {
			return false
		}
		return compare(node.Operator, ctx.Member.ID == node.Value)

	case LeafChannelID:
		if ctx.ChannelID == "" {
			return false
		}
		return compare(node.Operator, ctx.ChannelID == node.Value)

	case LeafRoleID:
		if ctx.Member == nil {
			return false
		}
		hasRole := false
		for _, id := range ctx.Member.RoleIDs {
			if id == node.Value {
				hasRole = true
				break
			}
		}
		return compare(node.Operator, hasRole)

	case LeafTimeRange:
		in, ok := e.inTimeRange(node.Value)
		if !ok {
			return false
		}
		return compare(node.Operator, in)

	case LeafDateRange:
		in, ok := e.inDateRange(node.Value)
		if !ok {
			return false
		}
		return compare(node.Operator, in)
	}

	return false
}

// compare applies the leaf operator to a raw match result.
func compare(op Operator, matched bool) bool {
	if op == OpNotEqual {
		return !matched
	}
	return matched
}

// inTimeRange evaluates a "HH:MM-HH:MM" range against the current
// time of day. A start later than the end means the range crosses
// midnight: true when now >= start or now <= end.
func (e *Evaluator) inTimeRange(value string) (in, ok bool) {
	start, end, ok := splitRange(value)
	if !ok {
		return false, false
	}

	startMin, ok := parseClock(start)
	if !ok {
		return false, false
	}
	endMin, ok := parseClock(end)
	if !ok {
		return false, false
	}

	now := e.now()
	nowMin := now.Hour()*60 + now.Minute()

	if startMin > endMin {
		return nowMin >= startMin || nowMin <= endMin, true
	}
	return nowMin >= startMin && nowMin <= endMin, true
}

// inDateRange evaluates a "DD/MM-DD/MM" range against today's
// day-of-year in the current calendar year. Ranges may cross the year
// boundary the same way time ranges cross midnight. "DD:MM" is
// accepted as a separator variant.
func (e *Evaluator) inDateRange(value string) (in, ok bool) {
	normalised := strings.ReplaceAll(value, ":", "/")
	start, end, ok := splitRange(normalised)
	if !ok {
		return false, false
	}

	now := e.now()
	startDay, ok := dayOfYear(start, now.Year())
	if !ok {
		return false, false
	}
	endDay, ok := dayOfYear(end, now.Year())
	if !ok {
		return false, false
	}

	today := now.YearDay()

	if startDay > endDay {
		return today >= startDay || today <= endDay, true
	}
	return today >= startDay && today <= endDay, true
}

// splitRange splits "A-B" into its two halves.
func splitRange(value string) (start, end string, ok bool) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(value string) (minutes int, ok bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// dayOfYear converts "DD/MM" to a day-of-year in the given year.
func dayOfYear(value string, year int) (day int, ok bool) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 {
		return 0, false
	}
	d, err := strconv.Atoi(parts[0])
	if err != nil || d < 1 || d > 31 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC).YearDay(), true
}
