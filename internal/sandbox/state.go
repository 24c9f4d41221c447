package sandbox

// State tracks an execution through its lifecycle.
type State int

const (
	StateReceived State = iota
	StateCompiling
	StateCompileFailed
	StateCompiled
	StateRunning
	StateCompleted
	StateTimedOut
	StateMemoryExceeded
	StateRuntimeError
)

var stateNames = map[State]string{
	StateReceived:       "received",
	StateCompiling:      "compiling",
	StateCompileFailed:  "compile_failed",
	StateCompiled:       "compiled",
	StateRunning:        "running",
	StateCompleted:      "completed",
	StateTimedOut:       "timed_out",
	StateMemoryExceeded: "memory_exceeded",
	StateRuntimeError:   "runtime_error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// StateFromName maps a wire string back to its State.
func StateFromName(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return StateReceived, false
}

// Terminal reports whether the state ends the execution lifecycle.
func (s State) Terminal() bool {
	switch s {
	case StateCompileFailed, StateCompleted, StateTimedOut, StateMemoryExceeded, StateRuntimeError:
		return true
	}
	return false
}
