package routine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength    = 100
	maxActions       = 50
	maxWaitSeconds   = 3600 // 1 hour
	maxMessageLength = 2000
	maxTreeDepth     = 16
)

// Validate performs comprehensive validation on a routine.
// Returns an error describing the first validation failure found.
func Validate(r *Routine) error {
	if r == nil {
		return ErrInvalidRoutine
	}

	if err := ValidateName(r.Name); err != nil {
		return err
	}

	if r.ScopeID == "" {
		return fmt.Errorf("%w: scope_id is required", ErrInvalidRoutine)
	}

	if err := ValidateTrigger(r.Trigger); err != nil {
		return err
	}

	if r.Conditions != nil {
		if err := validateConditionNode(r.Conditions, 0); err != nil {
			return err
		}
	}

	if len(r.Actions) == 0 {
		return ErrNoActions
	}
	if len(r.Actions) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}
	for i, action := range r.Actions {
		if err := ValidateAction(action); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
	}

	return nil
}

// ValidateName checks if a routine name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateTrigger checks if a trigger definition is valid.
func ValidateTrigger(t Trigger) error {
	switch t.Kind {
	case TriggerTimer:
		if t.Interval() <= 0 {
			return fmt.Errorf("%w: timer requires a positive interval", ErrInvalidTrigger)
		}
	case TriggerEvent:
		if !t.EventType.Valid() {
			return fmt.Errorf("%w: unknown event type %q", ErrInvalidTrigger, t.EventType)
		}
	default:
		return fmt.Errorf("%w: unknown trigger kind %q", ErrInvalidTrigger, t.Kind)
	}
	return nil
}

// ValidateAction checks if a routine action is valid.
func ValidateAction(action Action) error {
	switch action.Type {
	case ActionPlay:
		if action.SoundName == "" {
			return fmt.Errorf("%w: play requires a sound name", ErrInvalidAction)
		}
		if action.Strategy != "" && action.Strategy != StrategySpecific && action.Strategy != StrategyRandom {
			return fmt.Errorf("%w: unknown target strategy %q", ErrInvalidAction, action.Strategy)
		}
		if action.Strategy == StrategySpecific && action.ChannelID == "" {
			return fmt.Errorf("%w: specific strategy requires a channel id", ErrInvalidAction)
		}
	case ActionWait:
		if action.Seconds <= 0 || action.Seconds > maxWaitSeconds {
			return fmt.Errorf("%w: wait seconds must be 1-%d", ErrInvalidAction, maxWaitSeconds)
		}
	case ActionMessage:
		if strings.TrimSpace(action.Content) == "" {
			return fmt.Errorf("%w: message requires content", ErrInvalidAction)
		}
		if len(action.Content) > maxMessageLength {
			return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidAction, maxMessageLength)
		}
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, action.Type)
	}
	return nil
}

func validateConditionNode(node *ConditionNode, depth int) error {
	if node == nil {
		return fmt.Errorf("%w: nil condition node", ErrInvalidCondition)
	}
	if depth > maxTreeDepth {
		return fmt.Errorf("%w: condition tree exceeds depth %d", ErrInvalidCondition, maxTreeDepth)
	}

	switch node.Type {
	case NodeLeaf:
		return validateLeaf(node)
	case NodeAnd, NodeOr, NodeXor:
		for _, child := range node.Children {
			if err := validateConditionNode(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	case NodeNot:
		if len(node.Children) > 1 {
			return fmt.Errorf("%w: NOT takes at most one operand", ErrInvalidCondition)
		}
		if len(node.Children) == 1 {
			return validateConditionNode(node.Children[0], depth+1)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown node type %q", ErrInvalidCondition, node.Type)
	}
}

func validateLeaf(node *ConditionNode) error {
	if node.Operator != OpEqual && node.Operator != OpNotEqual {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, node.Operator)
	}
	if node.Value == "" {
		return fmt.Errorf("%w: condition value cannot be empty", ErrInvalidCondition)
	}

	switch node.Kind {
	case LeafUserID, LeafChannelID, LeafRoleID:
		return nil
	case LeafTimeRange:
		start, end, ok := splitRange(node.Value)
		if !ok {
			return fmt.Errorf("%w: time range %q must be HH:MM-HH:MM", ErrInvalidCondition, node.Value)
		}
		if _, ok := parseClock(start); !ok {
			return fmt.Errorf("%w: invalid clock %q", ErrInvalidCondition, start)
		}
		if _, ok := parseClock(end); !ok {
			return fmt.Errorf("%w: invalid clock %q", ErrInvalidCondition, end)
		}
		return nil
	case LeafDateRange:
		value := strings.ReplaceAll(node.Value, ":", "/")
		start, end, ok := splitRange(value)
		if !ok {
			return fmt.Errorf("%w: date range %q must be DD/MM-DD/MM", ErrInvalidCondition, node.Value)
		}
		year := time.Now().Year()
		if _, ok := dayOfYear(start, year); !ok {
			return fmt.Errorf("%w: invalid date %q", ErrInvalidCondition, start)
		}
		if _, ok := dayOfYear(end, year); !ok {
			return fmt.Errorf("%w: invalid date %q", ErrInvalidCondition, end)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown condition kind %q", ErrInvalidCondition, node.Kind)
	}
}

// GenerateID creates a new UUID for a routine.
func GenerateID() string {
	return uuid.New().String()
}
