package submitter

// State is a step of the submission state machine:
// Decoded -> Submitting -> Confirmed | Failed.
type State uint8

const (
	StateDecoded State = iota
	StateSubmitting
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDecoded:
		return "decoded"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}
