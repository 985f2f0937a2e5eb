package routine

import "errors"

// Domain errors for the routine package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, routine.ErrRoutineNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRoutineNotFound is returned when a routine ID does not exist.
	ErrRoutineNotFound = errors.New("routine: not found")

	// ErrRoutineExists is returned when creating a routine with an ID that already exists.
	ErrRoutineExists = errors.New("routine: already exists")

	// ErrInvalidRoutine is returned when routine validation fails.
	ErrInvalidRoutine = errors.New("routine: invalid")

	// ErrInvalidName is returned when a routine name is empty or too long.
	ErrInvalidName = errors.New("routine: invalid name")

	// ErrInvalidTrigger is returned when a trigger payload is malformed.
	ErrInvalidTrigger = errors.New("routine: invalid trigger")

	// ErrInvalidCondition is returned when a condition node is malformed.
	ErrInvalidCondition = errors.New("routine: invalid condition")

	// ErrInvalidAction is returned when an action payload is malformed.
	ErrInvalidAction = errors.New("routine: invalid action")

	// ErrNoActions is returned when a routine has no actions defined.
	ErrNoActions = errors.New("routine: no actions")

	// ErrInvalidExpression is returned when a boolean expression fails to parse.
	ErrInvalidExpression = errors.New("routine: invalid expression")

	// ErrConditionOutOfRange is returned when an expression references a
	// condition ordinal beyond the routine's condition list.
	ErrConditionOutOfRange = errors.New("routine: condition ordinal out of range")

	// ErrInvalidDSL is returned when a textual routine definition is malformed.
	ErrInvalidDSL = errors.New("routine: invalid definition")
)
