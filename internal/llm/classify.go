package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// Classify maps an HTTP response onto success (nil) or an *APIError. It does
// no I/O. An empty body fails at any status. The 401 message is fixed and
// never echoes the body.
func Classify(body string, status int) error {
	if strings.TrimSpace(body) == "" {
		return &APIError{Status: status, Kind: KindUnknown, Message: "empty response from API"}
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusBadRequest:
		return &APIError{Status: status, Kind: KindClientError, Message: messageOr(body, "Bad Request")}
	case http.StatusUnauthorized:
		return &APIError{Status: status, Kind: KindClientError, Message: "Unauthorized"}
	case http.StatusNotFound:
		return &APIError{Status: status, Kind: KindClientError, Message: messageOr(body, "Not Found")}
	case http.StatusTooManyRequests:
		return &APIError{Status: status, Kind: KindClientError, Message: "Rate limit exceeded"}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return &APIError{Status: status, Kind: KindServerError, Message: fmt.Sprintf("server error (HTTP %d)", status)}
	default:
		return &APIError{Status: status, Kind: KindUnknown, Message: fmt.Sprintf("unexpected HTTP status %d", status)}
	}
}

func messageOr(body, def string) string {
	if msg := errorMessage(body); msg != "" {
		return msg
	}
	return def
}
