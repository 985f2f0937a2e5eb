package routine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDSL parses a textual routine definition into trigger,
// conditions and actions. The form is:
//
//	<trigger> [if <conditions>] do <actions>
//
// with:
//
//	trigger    := 'timer' <N>(s|m|h) | 'on' (join|leave|move)
//	conditions := <key>(==|!=)<value> (' and ' ...)*
//	              key ∈ {user, channel, role, time, date}
//	actions    := <verb> (' then ' ...)*
//	              verb ∈ {play <name>, wait <N[s|m]>, msg <text>}
//
// Examples:
//
//	timer 30m if time==22:00-06:00 do play airhorn
//	on join if channel!=room-7 do wait 2 then msg welcome {user}
//
// The returned routine carries only trigger, conditions and actions;
// the caller assigns identity and scope.
func ParseDSL(text string) (*Routine, error) {
	text = strings.TrimSpace(text)

	head, actionsText, found := strings.Cut(text, " do ")
	if !found {
		return nil, fmt.Errorf("%w: missing 'do' clause", ErrInvalidDSL)
	}

	triggerText, condText, hasConds := strings.Cut(head, " if ")

	trigger, err := parseDSLTrigger(strings.TrimSpace(triggerText))
	if err != nil {
		return nil, err
	}

	var conditions *ConditionNode
	if hasConds {
		conditions, err = parseDSLConditions(strings.TrimSpace(condText))
		if err != nil {
			return nil, err
		}
	}

	actions, err := parseDSLActions(strings.TrimSpace(actionsText))
	if err != nil {
		return nil, err
	}

	return &Routine{
		Trigger:    trigger,
		Conditions: conditions,
		Actions:    actions,
	}, nil
}

// parseDSLTrigger parses `timer <Ns|Nm|Nh>` or `on <join|leave|move>`.
func parseDSLTrigger(text string) (Trigger, error) {
	verb, arg, found := strings.Cut(text, " ")
	if !found {
		return Trigger{}, fmt.Errorf("%w: incomplete trigger %q", ErrInvalidDSL, text)
	}
	arg = strings.TrimSpace(arg)

	switch verb {
	case "timer":
		seconds, minutes, err := parseDSLDuration(arg)
		if err != nil {
			return Trigger{}, err
		}
		return Trigger{
			Kind:            TriggerTimer,
			IntervalSeconds: seconds,
			IntervalMinutes: minutes,
		}, nil

	case "on":
		switch arg {
		case "join", "leave", "move":
			return Trigger{Kind: TriggerEvent, EventType: EventType(arg)}, nil
		}
		return Trigger{}, fmt.Errorf("%w: unknown event %q (want join, leave or move)",
			ErrInvalidDSL, arg)
	}

	return Trigger{}, fmt.Errorf("%w: unknown trigger %q", ErrInvalidDSL, verb)
}

// parseDSLDuration parses "30s", "5m" or "2h" into the trigger's
// seconds/minutes split.
func parseDSLDuration(arg string) (seconds, minutes int, err error) {
	if arg == "" {
		return 0, 0, fmt.Errorf("%w: missing timer interval", ErrInvalidDSL)
	}

	unit := arg[len(arg)-1]
	n, convErr := strconv.Atoi(arg[:len(arg)-1])
	if convErr != nil || n <= 0 {
		return 0, 0, fmt.Errorf("%w: bad timer interval %q", ErrInvalidDSL, arg)
	}

	switch unit {
	case 's':
		return n, 0, nil
	case 'm':
		return 0, n, nil
	case 'h':
		return 0, n * 60, nil
	}
	return 0, 0, fmt.Errorf("%w: bad timer unit in %q (want s, m or h)", ErrInvalidDSL, arg)
}

// dslLeafKinds maps DSL condition keys to leaf kinds.
var dslLeafKinds = map[string]LeafKind{
	"user":    LeafUserID,
	"channel": LeafChannelID,
	"role":    LeafRoleID,
	"time":    LeafTimeRange,
	"date":    LeafDateRange,
}

// parseDSLConditions parses ` and `-joined key(==|!=)value clauses.
// Multiple clauses combine under a single And node.
func parseDSLConditions(text string) (*ConditionNode, error) {
	clauses := strings.Split(text, " and ")

	leaves := make([]*ConditionNode, 0, len(clauses))
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)

		op := OpEqual
		key, value, found := strings.Cut(clause, "==")
		if !found {
			op = OpNotEqual
			key, value, found = strings.Cut(clause, "!=")
		}
		if !found {
			return nil, fmt.Errorf("%w: condition %q has no operator (want == or !=)",
				ErrInvalidDSL, clause)
		}

		kind, ok := dslLeafKinds[strings.TrimSpace(key)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown condition key %q", ErrInvalidDSL,
				strings.TrimSpace(key))
		}

		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("%w: condition %q has no value", ErrInvalidDSL, clause)
		}

		leaves = append(leaves, &ConditionNode{
			Type:     NodeLeaf,
			Kind:     kind,
			Operator: op,
			Value:    value,
		})
	}

	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return &ConditionNode{Type: NodeAnd, Children: leaves}, nil
}

// parseDSLActions parses ` then `-joined action clauses.
func parseDSLActions(text string) ([]Action, error) {
	clauses := strings.Split(text, " then ")

	actions := make([]Action, 0, len(clauses))
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)

		verb, arg, _ := strings.Cut(clause, " ")
		arg = strings.TrimSpace(arg)

		switch verb {
		case "play":
			if arg == "" {
				return nil, fmt.Errorf("%w: play action needs a sound name", ErrInvalidDSL)
			}
			name := arg
			if strings.EqualFold(name, "random") {
				name = RandomSound
			}
			actions = append(actions, Action{Type: ActionPlay, SoundName: name})

		case "wait":
			seconds, err := parseDSLWait(arg)
			if err != nil {
				return nil, err
			}
			actions = append(actions, Action{Type: ActionWait, Seconds: seconds})

		case "msg":
			if arg == "" {
				return nil, fmt.Errorf("%w: msg action needs content", ErrInvalidDSL)
			}
			actions = append(actions, Action{Type: ActionMessage, Content: arg})

		default:
			return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidDSL, verb)
		}
	}

	return actions, nil
}

// parseDSLWait parses "10", "10s" or "2m" into seconds.
func parseDSLWait(arg string) (int, error) {
	if arg == "" {
		return 0, fmt.Errorf("%w: wait action needs a duration", ErrInvalidDSL)
	}

	multiplier := 1
	switch arg[len(arg)-1] {
	case 's':
		arg = arg[:len(arg)-1]
	case 'm':
		multiplier = 60
		arg = arg[:len(arg)-1]
	}

	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: bad wait duration %q", ErrInvalidDSL, arg)
	}
	return n * multiplier, nil
}
