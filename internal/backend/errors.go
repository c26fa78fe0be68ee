package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized marks a 401 response: the backend session has expired.
var ErrUnauthorized = errors.New("backend session expired")

// ErrNotList is returned when a collection endpoint answers with something
// other than a JSON array.
var ErrNotList = errors.New("response is not a list")

// StatusError is a non-success HTTP response from the backend.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string // "message" or "error" field of a JSON body, if any
	Body    string // raw response text
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Message returns the backend's own message for err, or fallback when the
// error carries none (transport failures, empty bodies).
func Message(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

// Text returns the raw response text for err, or "" for non-status errors.
func Text(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Body
	}
	return ""
}

func newStatusError(method, path string, status int, body []byte) *StatusError {
	se := &StatusError{
		Method: method,
		Path:   path,
		Status: status,
		Body:   strings.TrimSpace(string(body)),
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		se.Message = payload.Message
		if se.Message == "" {
			se.Message = payload.Error
		}
	}
	return se
}
