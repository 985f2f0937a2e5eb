// Package routine provides the automation engine for Wavecue Core.
//
// Routines are named rules that fire on a timer or on classified voice
// membership events, optionally gated by a condition tree, and run an
// ordered list of actions (play a sound, wait, send a message).
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│                 Manager (manager.go)                   │
//	│  Holds per-scope routine snapshots behind an RWMutex   │
//	│  ┌──────────────┐    ┌──────────────┐                │
//	│  │  Scheduler   │    │  Repository  │                │
//	│  │(scheduler.go)│    │(repository.go)│               │
//	│  └──────┬───────┘    └──────────────┘                │
//	│         │                                             │
//	│         ▼                                             │
//	│  ┌──────────────────────────────────────────────┐    │
//	│  │  Firing Pipeline                              │    │
//	│  │  1. Classify voice update / tick timers       │    │
//	│  │  2. Evaluate condition tree (condition.go)    │    │
//	│  │  3. Resolve execution context (scope, room,   │    │
//	│  │     member)                                   │    │
//	│  │  4. Execute actions in order (executor.go)    │    │
//	│  │  5. Publish telemetry                         │    │
//	│  └──────────────────────────────────────────────┘    │
//	└───────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Routine: Named trigger + conditions + ordered actions
//   - ConditionNode: Boolean tree over membership/time/date predicates
//   - Evaluator: Resolves a condition tree against an ExecutionContext
//   - Executor: Runs a routine's actions with context refresh after waits
//   - Scheduler: Fires timer routines on a fixed tick
//   - Manager: Snapshot cache, event dispatch and CRUD facade
//
// Condition expressions ("(C1 AND C2) OR C3", expr.go) and the one-line
// routine DSL ("timer 30m if time==22:00-06:00 do play random", dsl.go)
// both compile to the same ConditionNode/Action structures.
//
// # Thread Safety
//
// Manager is safe for concurrent use. Scheduler mutates LastRun from its
// own goroutine only; executions run on detached goroutines with panic
// recovery at the firing boundary.
package routine
