package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrUnavailable indicates the API server could not be reached.
	ErrUnavailable = errors.New("llm server unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrEmptyResponse indicates a successful call produced no completion text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Transport failure codes. The numbering matches curl's exit codes so
// scripts wrapping the CLI keep their existing checks.
const (
	CodeFailure     = 1
	CodeResolveHost = 6
	CodeConnect     = 7
	CodeTimeout     = 28
	CodeRecv        = 56
)

// NetworkError is a transport-level failure. Code is propagated as the
// process exit status.
type NetworkError struct {
	Code int
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error (code %d): %v", e.Code, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Kind classifies an APIError.
type Kind int

const (
	KindUnknown Kind = iota
	KindClientError
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// APIError is a non-success HTTP response or an unusable response body.
type APIError struct {
	Status  int
	Kind    Kind
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "api error: " + e.Message
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// networkError maps a transport failure onto a NetworkError. Cancellation is
// returned as-is so callers can tell an interrupt from a failure.
func networkError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("request canceled: %w", err)
	}

	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		netErr net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &NetworkError{Code: CodeTimeout, Err: fmt.Errorf("%w: %v", ErrTimeout, err)}
	case errors.As(err, &dnsErr):
		return &NetworkError{Code: CodeResolveHost, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return &NetworkError{Code: CodeConnect, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	default:
		return &NetworkError{Code: CodeRecv, Err: err}
	}
}

// errorMessage pulls error.message (or a string error) out of a JSON body.
func errorMessage(body string) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &env); err != nil || len(env.Error) == 0 {
		return ""
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(env.Error, &s); err == nil {
		return s
	}
	return ""
}

func errorCode(err error) string {
	var apiErr *APIError
	var netErr *NetworkError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	case errors.Is(err, ErrEmptyResponse):
		return "EMPTY"
	case errors.As(err, &apiErr):
		return "API_" + strings.ToUpper(apiErr.Kind.String())
	case errors.As(err, &netErr):
		return "NETWORK"
	default:
		return "UNKNOWN"
	}
}
