package viewer

import "fmt"

// Kind classifies why a submission failed.
type Kind int

const (
	// KindValidation: a required field is missing or malformed. No request
	// was sent.
	KindValidation Kind = iota + 1
	// KindService: the annotation service answered non-2xx or could not be
	// reached.
	KindService
	// KindTimeout: the annotation service did not answer before the deadline.
	KindTimeout
	// KindBusy: another submission is still in flight.
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindService:
		return "service"
	case KindTimeout:
		return "timeout"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Error is returned by Submit. Message is meant for the person filling the
// form.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
