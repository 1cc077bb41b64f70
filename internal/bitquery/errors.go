package bitquery

import (
	"errors"
	"fmt"
	"strings"
)

// Named error causes for the client. Callers match with errors.Is/As.
var (
	// ErrMissingCredentials is returned before any network call when the
	// API key or bearer token is absent.
	ErrMissingCredentials = errors.New("bitquery: missing API credentials")

	// ErrUnauthorized maps HTTP 401 responses.
	ErrUnauthorized = errors.New("bitquery: unauthorized")

	// ErrForbidden maps HTTP 403 responses.
	ErrForbidden = errors.New("bitquery: forbidden")

	// ErrRateLimited maps HTTP 429 responses.
	ErrRateLimited = errors.New("bitquery: rate limited")
)

// HTTPError is a non-2xx response not covered by a named cause.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("bitquery: unexpected status %d: %s", e.Status, e.Body)
}

// GraphQLError is a response carrying a GraphQL-level errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "bitquery: graphql errors: " + strings.Join(e.Messages, "; ")
}

// SchemaError is an expected field absent from a structurally valid
// response. Each missing level is reported with its full path.
type SchemaError struct {
	Path string
}

func (e *SchemaError) Error() string {
	return "bitquery: missing expected field " + e.Path
}
