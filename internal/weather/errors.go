package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is matched by every empty-data failure.
	ErrNoData = errors.New("no data")

	ErrInvalidHour      = errors.New("hour out of range")
	ErrInvalidReference = errors.New("invalid reference date/time")
)

// FailureKind tells what went wrong while obtaining forecast data. Callers
// only use it for the message and status they report; none of the kinds
// is retried here.
type FailureKind int

const (
	FailureTransport FailureKind = iota + 1
	FailureAPIStatus
	FailureEmptyData
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureAPIStatus:
		return "api status"
	case FailureEmptyData:
		return "empty data"
	default:
		return "unknown"
	}
}

// Failure is the single error type surfaced by the fetch and transform path.
type Failure struct {
	Kind    FailureKind
	Code    string // upstream result code, set for FailureAPIStatus
	Message string
	Err     error
}

func (f *Failure) Error() string {
	switch {
	case f.Code != "":
		return fmt.Sprintf("%s failure: %s//%s", f.Kind, f.Code, f.Message)
	case f.Err != nil && f.Message != "":
		return fmt.Sprintf("%s failure: %s: %v", f.Kind, f.Message, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
	default:
		return fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is makes every FailureEmptyData match ErrNoData.
func (f *Failure) Is(target error) bool {
	return target == ErrNoData && f.Kind == FailureEmptyData
}

// TransportFailure wraps a network or HTTP-level error.
func TransportFailure(err error) *Failure {
	return &Failure{Kind: FailureTransport, Err: err}
}

// APIStatusFailure reports a non-success result code embedded in a response body.
func APIStatusFailure(code, message string) *Failure {
	return &Failure{Kind: FailureAPIStatus, Code: code, Message: message}
}

// EmptyDataFailure reports a successful response without usable records.
func EmptyDataFailure() *Failure {
	return &Failure{Kind: FailureEmptyData, Message: ErrNoData.Error()}
}

// FailureKindOf returns the kind of the first Failure in err's chain, or 0.
func FailureKindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
