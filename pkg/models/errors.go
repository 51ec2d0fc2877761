package models

// ErrorKind classifies failures flowing through the pipeline. Each kind maps
// to the bus message type agents emit when converting an internal error.
type ErrorKind string

const (
	// ErrInputInvalid: malformed tool or task arguments. Surfaced, no retry.
	ErrInputInvalid ErrorKind = "input_invalid"
	// ErrToolFailure: tool ran but reported failure. Recorded on the trace.
	ErrToolFailure ErrorKind = "tool_failure"
	// ErrDependencyUnmet: a step's predecessors did not all succeed.
	ErrDependencyUnmet ErrorKind = "dependency_unmet"
	// ErrTimeout: a request or tool deadline expired.
	ErrTimeout ErrorKind = "timeout"
	// ErrBackendUnavailable: planner model service unreachable. Never fatal.
	ErrBackendUnavailable ErrorKind = "backend_unavailable"
	// ErrPersistenceFailure: memory or reminder file I/O failed.
	ErrPersistenceFailure ErrorKind = "persistence_failure"
	// ErrFatal: bus shutdown mid-request or corrupted state.
	ErrFatal ErrorKind = "fatal"
)

// MessageType returns the bus error message type used to report this kind.
func (k ErrorKind) MessageType() MessageType {
	switch k {
	case ErrFatal:
		return MessageCriticalError
	case ErrToolFailure, ErrDependencyUnmet, ErrPersistenceFailure:
		return MessageRecoverableError
	default:
		return MessageRequestFailed
	}
}
