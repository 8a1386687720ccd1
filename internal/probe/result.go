package probe

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrUnexpectedStatus marks a response whose status is not 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrInvalidJSON marks a success response whose body is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON body")
)

// Outcome classifies how a single probe call ended.
type Outcome string

const (
	// OutcomeOK means the call returned 200 and, when requested, a valid JSON body.
	OutcomeOK Outcome = "ok"
	// OutcomeTransport covers DNS, connection, timeout and TLS failures.
	OutcomeTransport Outcome = "transport_error"
	// OutcomeStatus means the server answered with a non-200 status.
	OutcomeStatus Outcome = "status_error"
	// OutcomeDecode means a 200 response carried a body that is not JSON.
	OutcomeDecode Outcome = "decode_error"
)

// Record is what came back over the wire.
type Record struct {
	Status int
	Body   string
	JSON   json.RawMessage // set only for validated 200 responses
}

// Result is the typed outcome of one POST.
type Result struct {
	Endpoint string
	Path     string
	Outcome  Outcome
	Record   *Record // nil on transport failure
	Err      error
	Duration time.Duration
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Status returns the HTTP status, or 0 when no response arrived.
func (r Result) Status() int {
	if r.Record == nil {
		return 0
	}
	return r.Record.Status
}

// Summary is the result of one full Run.
type Summary struct {
	Primary   Result
	Dependent []Result
	// DependentRan is false when the primary probe failed and the sequence stopped early.
	DependentRan bool
}
