package workflow

import "errors"

var (
	// ErrNoActiveQuestion means no row in the questions sheet is flagged
	// active; solve actions halt without touching the gateways.
	ErrNoActiveQuestion = errors.New("no active question")

	// ErrTemplateMissing means the required prompt cell is empty. The request
	// fails instead of sending an empty instruction to the model.
	ErrTemplateMissing = errors.New("prompt template missing")

	// ErrLikertOutOfRange means a survey response is outside 1..5.
	ErrLikertOutOfRange = errors.New("survey response out of range")
)

// GatewayError wraps a transport failure from the spreadsheet or inference
// service. The operation is aborted, no audit row is appended, and session
// state is unchanged.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func gatewayErr(op string, err error) error {
	return &GatewayError{Op: op, Err: err}
}
