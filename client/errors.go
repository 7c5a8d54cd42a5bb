package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoSession is returned before any network I/O when no valid session token is available.
	ErrNoSession = errors.New("no active session")
	ErrNotFound  = errors.New("not found")
)

// ResyncError is returned when a mutation was committed by the backend but the reload that
// followed it failed. The cache still reflects the local patch of the mutation.
type ResyncError struct {
	Err error
}

func (e *ResyncError) Error() string {
	return "change saved but reloading failed: " + e.Err.Error()
}

func (e *ResyncError) Unwrap() error { return e.Err }

// IsResync reports whether err means "committed, but the cache could not resynchronize".
func IsResync(err error) bool {
	var rerr *ResyncError
	return errors.As(err, &rerr)
}

// HTTPError is a non-2xx answer of the API.
type HTTPError struct {
	StatusCode int
	Message    string            // {"error": "..."} bodies
	Fields     map[string]string // field validation bodies
	Body       string
}

func (e *HTTPError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	case len(e.Fields) > 0:
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return fmt.Sprintf("api error %d: %s", e.StatusCode, strings.Join(parts, "; "))
	case e.Body != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

func parseHTTPError(status int, raw []byte) *HTTPError {
	herr := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return herr
	}
	if msg, ok := fields["error"]; ok && len(fields) == 1 {
		herr.Message = msg
		return herr
	}
	herr.Fields = fields
	return herr
}

// StatusCode returns the HTTP status of err, or 0 if err is not an *HTTPError.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}
