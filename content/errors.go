package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEndpointUnconfigured is returned when no content endpoint was supplied.
// No request is attempted.
var ErrEndpointUnconfigured = errors.New("content endpoint not configured")

// TransportError reports a network level failure talking to the content
// endpoint, or a non-2xx response that carried no GraphQL errors.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("content transport: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("content transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GraphQLError is a single entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// RemoteError reports application level errors returned by the content
// backend, regardless of the HTTP status they arrived with.
type RemoteError struct {
	Errors []GraphQLError
}

func (e *RemoteError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return "content backend returned errors: " + strings.Join(msgs, "; ")
}

// SchemaError reports a response that does not satisfy the contract of the
// query that produced it.
type SchemaError struct {
	Query  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query %s: %s: %v", e.Query, e.Reason, e.Err)
	}
	return fmt.Sprintf("query %s: %s", e.Query, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying. Only transport
// failures are.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
