package resolver

// State is the lifecycle of a single content query.
type State int

const (
	Idle State = iota
	Pending
	Success
	Absent
	Error
	StaticFallback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Absent:
		return "absent"
	case Error:
		return "error"
	case StaticFallback:
		return "static_fallback"
	default:
		return "unknown"
	}
}

// Outcome is a snapshot of a query. Value is only meaningful in Success.
type Outcome[T any] struct {
	State State
	Value T
	Err   error
}

// Settled reports whether the query has reached a terminal state.
func (o Outcome[T]) Settled() bool {
	return o.State != Idle && o.State != Pending
}

// NotFound is true for both Absent and Error. Pages render the same view for
// either; logs and metrics keep them apart.
func (o Outcome[T]) NotFound() bool {
	return o.State == Absent || o.State == Error
}
