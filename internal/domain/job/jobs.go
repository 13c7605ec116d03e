package job

import "fmt"

// transitions is the lifecycle state machine: keys are the current status,
// values are every status a job in that status may legally move to. A
// status with no entry is terminal.
//
// Canceled is reachable from Queued and Scheduled in the table below for
// forward compatibility with a future cancel operation, but no operation
// in this package currently drives a transition into it — Submit,
// ClaimNextAvailableJob, ProcessJobSuccess, and ProcessJobFailure are the
// only state-changing operations this pipeline exposes. Completed,
// Failed, and Canceled are terminal: in particular Completed -> Canceled
// is always rejected, regardless of caller.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusInProgress, StatusCanceled},
	StatusScheduled:  {StatusInProgress, StatusQueued, StatusCanceled},
	StatusInProgress: {StatusCompleted, StatusScheduled, StatusFailed},
}

// CanTransition reports whether moving from -> to is a legal state
// machine edge.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error describing why from -> to is
// illegal, or nil if it is legal.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if from.IsTerminal() {
		return fmt.Errorf("job status %s is terminal, cannot transition to %s", from, to)
	}
	return fmt.Errorf("invalid transition from %s to %s", from, to)
}

// Handler executes a job of the type it registers for. Execute receives
// the Job's raw Payload; deserializing it into a concrete request type is
// the handler's own responsibility, keeping the registry dispatch typed
// per handler rather than routed through a generic interface{} switch.
type Handler interface {
	Name() string
	Execute(ctx HandlerContext) (result []byte, err error)
}

// HandlerContext is what a Handler sees of the Job it was invoked for: the
// parts relevant to executing the request, not the full lifecycle record.
type HandlerContext struct {
	JobId       string
	Payload     []byte
	Headers     map[string][]string
	RouteParams map[string]any
	QueryParams []QueryParam
	RetryCount  int
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc struct {
	name string
	fn   func(HandlerContext) ([]byte, error)
}

func NewHandlerFunc(name string, fn func(HandlerContext) ([]byte, error)) HandlerFunc {
	return HandlerFunc{name: name, fn: fn}
}

func (h HandlerFunc) Name() string { return h.name }

func (h HandlerFunc) Execute(ctx HandlerContext) ([]byte, error) {
	return h.fn(ctx)
}

var _ Handler = HandlerFunc{}
