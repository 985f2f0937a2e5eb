package routine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wavecue/wavecue-core/internal/platform"
)

// RandomSound is the sentinel sound name that makes a play action pick
// uniformly among the sounds visible to the scope.
const RandomSound = "RANDOM"

// ─── Routine ────────────────────────────────────────────────────────────────

// Routine is a stored automation rule: a trigger, an optional boolean
// condition tree and an ordered action list, bound to one scope.
type Routine struct {
	// Identity
	ID      string `json:"id"`
	ScopeID string `json:"scope_id"`
	Name    string `json:"name"`

	Enabled bool `json:"enabled"`

	Trigger Trigger `json:"trigger"`

	// Conditions gates firing. A nil tree means unconditionally eligible.
	Conditions *ConditionNode `json:"conditions,omitempty"`

	// Actions execute strictly in order per firing.
	Actions []Action `json:"actions"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastRun is memory-only scheduler state. It is deliberately not
	// persisted: a snapshot reload resets it, so a freshly reloaded
	// timer routine is immediately due.
	LastRun time.Time `json:"-"`
}

// DeepCopy returns a full copy of the routine. The condition tree and
// action slice are copied so callers can mutate the result safely.
func (r *Routine) DeepCopy() *Routine {
	c := *r
	c.Conditions = r.Conditions.deepCopy()
	c.Actions = make([]Action, len(r.Actions))
	copy(c.Actions, r.Actions)
	return &c
}

// ─── Trigger ────────────────────────────────────────────────────────────────

// TriggerKind identifies the activation source of a routine.
type TriggerKind string

const (
	// TriggerTimer fires on a periodic interval.
	TriggerTimer TriggerKind = "timer"

	// TriggerEvent fires on a classified membership event.
	TriggerEvent TriggerKind = "event"
)

// Trigger describes when a routine fires.
type Trigger struct {
	Kind TriggerKind `json:"kind"`

	// Timer triggers: interval in seconds, or minutes (×60).
	// At most one of the two is set.
	IntervalSeconds int `json:"interval_seconds,omitempty"`
	IntervalMinutes int `json:"interval_minutes,omitempty"`

	// Event triggers: the semantic event type to match.
	EventType EventType `json:"event_type,omitempty"`
}

// Interval returns the effective timer interval. Zero or negative
// intervals make the routine never due.
func (t Trigger) Interval() time.Duration {
	if t.IntervalSeconds > 0 {
		return time.Duration(t.IntervalSeconds) * time.Second
	}
	return time.Duration(t.IntervalMinutes) * time.Minute
}

// UnmarshalJSON decodes a trigger, rejecting unknown kinds at the
// boundary instead of letting them reach evaluation.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	type alias Trigger
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case TriggerTimer, TriggerEvent:
	default:
		return fmt.Errorf("%w: unknown trigger kind %q", ErrInvalidTrigger, raw.Kind)
	}

	if raw.Kind == TriggerEvent && !raw.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidTrigger, raw.EventType)
	}

	*t = Trigger(raw)
	return nil
}

// ─── Events ─────────────────────────────────────────────────────────────────

// EventType is a semantic membership event emitted by the classifier.
type EventType string

const (
	EventJoin  EventType = "join"
	EventLeave EventType = "leave"
	EventMove  EventType = "move"

	EventMuteStart   EventType = "mute_start"
	EventMuteStop    EventType = "mute_stop"
	EventDeafenStart EventType = "deafen_start"
	EventDeafenStop  EventType = "deafen_stop"
	EventStreamStart EventType = "stream_start"
	EventStreamStop  EventType = "stream_stop"
	EventVideoStart  EventType = "video_start"
	EventVideoStop   EventType = "video_stop"
)

// Valid reports whether the event type is one the classifier can emit.
func (e EventType) Valid() bool {
	switch e {
	case EventJoin, EventLeave, EventMove,
		EventMuteStart, EventMuteStop,
		EventDeafenStart, EventDeafenStop,
		EventStreamStart, EventStreamStop,
		EventVideoStart, EventVideoStop:
		return true
	}
	return false
}

// Event is one classified membership event: what happened, and in
// which voice room.
type Event struct {
	Type      EventType `json:"type"`
	ChannelID string    `json:"channel_id,omitempty"`
}

// ─── Condition tree ─────────────────────────────────────────────────────────

// NodeType discriminates condition tree nodes.
type NodeType string

const (
	NodeAnd  NodeType = "and"
	NodeOr   NodeType = "or"
	NodeXor  NodeType = "xor"
	NodeNot  NodeType = "not"
	NodeLeaf NodeType = "condition"
)

// LeafKind identifies the atomic predicate of a leaf condition.
type LeafKind string

const (
	LeafUserID    LeafKind = "user_id"
	LeafChannelID LeafKind = "channel_id"
	LeafRoleID    LeafKind = "role_id"
	LeafTimeRange LeafKind = "time_range"
	LeafDateRange LeafKind = "date_range"
)

// Operator is the comparison applied by a leaf condition.
type Operator string

const (
	OpEqual    Operator = "=="
	OpNotEqual Operator = "!="
)

// ConditionNode is one node of a routine's boolean condition tree:
// either a leaf predicate or a logical combinator over children.
type ConditionNode struct {
	Type NodeType `json:"type"`

	// Leaf fields (Type == NodeLeaf)
	Kind     LeafKind `json:"kind,omitempty"`
	Operator Operator `json:"operator,omitempty"`
	Value    string   `json:"value,omitempty"`

	// Combinator children (Type != NodeLeaf)
	Children []*ConditionNode `json:"children,omitempty"`
}

// UnmarshalJSON decodes a condition node, rejecting unknown node types,
// leaf kinds and operators at the boundary.
func (n *ConditionNode) UnmarshalJSON(data []byte) error {
	type alias ConditionNode
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case NodeAnd, NodeOr, NodeXor, NodeNot:
	case NodeLeaf:
		switch raw.Kind {
		case LeafUserID, LeafChannelID, LeafRoleID, LeafTimeRange, LeafDateRange:
		default:
			return fmt.Errorf("%w: unknown condition kind %q", ErrInvalidCondition, raw.Kind)
		}
		switch raw.Operator {
		case OpEqual, OpNotEqual:
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, raw.Operator)
		}
	default:
		return fmt.Errorf("%w: unknown node type %q", ErrInvalidCondition, raw.Type)
	}

	*n = ConditionNode(raw)
	return nil
}

// deepCopy clones the tree. nil in, nil out.
func (n *ConditionNode) deepCopy() *ConditionNode {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*ConditionNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.deepCopy()
		}
	}
	return &c
}

// ContainsKind reports whether any leaf of the tree has the given kind.
func (n *ConditionNode) ContainsKind(kind LeafKind) bool {
	if n == nil {
		return false
	}
	if n.Type == NodeLeaf {
		return n.Kind == kind
	}
	for _, child := range n.Children {
		if child.ContainsKind(kind) {
			return true
		}
	}
	return false
}

// Leaves returns the leaf conditions of the tree in depth-first order.
// Ordinals in boolean expressions (C1, C2, ...) index this sequence.
func (n *ConditionNode) Leaves() []*ConditionNode {
	if n == nil {
		return nil
	}
	if n.Type == NodeLeaf {
		return []*ConditionNode{n}
	}
	var leaves []*ConditionNode
	for _, child := range n.Children {
		leaves = append(leaves, child.Leaves()...)
	}
	return leaves
}

// ─── Actions ────────────────────────────────────────────────────────────────

// ActionType discriminates routine actions.
type ActionType string

const (
	ActionPlay    ActionType = "play"
	ActionWait    ActionType = "wait"
	ActionMessage ActionType = "message"
)

// Play target strategies.
const (
	StrategySpecific = "specific"
	StrategyRandom   = "random"
)

// Action is one step of a routine's ordered action list.
type Action struct {
	Type ActionType `json:"type"`

	// Play fields. SoundName may be the RandomSound sentinel.
	// Strategy "specific" binds the playback target to ChannelID when
	// the execution context carries no room.
	SoundName string `json:"sound_name,omitempty"`
	Strategy  string `json:"strategy,omitempty"`

	// ChannelID is the bound room for "specific" play actions and the
	// target channel for messages.
	ChannelID string `json:"channel_id,omitempty"`

	// Wait fields.
	Seconds int `json:"seconds,omitempty"`

	// Message fields. {user} and {username} are substituted when the
	// execution context carries a member.
	Content string `json:"content,omitempty"`
}

// UnmarshalJSON decodes an action, rejecting unknown types at the boundary.
func (a *Action) UnmarshalJSON(data []byte) error {
	type alias Action
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case ActionPlay, ActionWait, ActionMessage:
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, raw.Type)
	}

	*a = Action(raw)
	return nil
}

// ─── Execution context ──────────────────────────────────────────────────────

// ExecutionContext is the transient (scope, room, member) tuple that
// conditions and actions resolve against. It is rebuilt fresh after
// every wait suspension; the member may have moved in the meantime.
type ExecutionContext struct {
	ScopeID   string
	ChannelID string
	Member    *platform.Member
}
