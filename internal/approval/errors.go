package approval

import "errors"

// Kind classifies where an approval failed
type Kind int

const (
	KindRead         Kind = iota + 1 // allowance could not be read or decoded
	KindParse                        // required amount is not a valid u256 decimal
	KindSubmission                   // approve could not be submitted, or returned no hash
	KindConfirmation                 // the monitor reported failure or timed out
)

// Sentinels matched by errors.Is against an *Error of the same kind
var (
	ErrReadFailure         = errors.New("read failure")
	ErrParseFailure        = errors.New("parse failure")
	ErrSubmissionFailure   = errors.New("submission failure")
	ErrConfirmationFailure = errors.New("confirmation failure")

	// ErrMissingTransactionHash is the cause of a submission that reported no hash
	ErrMissingTransactionHash = errors.New("no transaction hash in approve result")
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "ReadFailure"
	case KindParse:
		return "ParseFailure"
	case KindSubmission:
		return "SubmissionFailure"
	case KindConfirmation:
		return "ConfirmationFailure"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindRead:
		return ErrReadFailure
	case KindParse:
		return ErrParseFailure
	case KindSubmission:
		return ErrSubmissionFailure
	case KindConfirmation:
		return ErrConfirmationFailure
	default:
		return nil
	}
}

// Error is returned by every failed approval. Its message is uniform,
// while Kind and the wrapped cause stay available to callers.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return "failed to approve token: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's kind
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
