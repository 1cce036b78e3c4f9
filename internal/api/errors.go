package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound matches an APIError with status 404
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches an APIError with status 401
	ErrUnauthorized = errors.New("unauthorized")
)

// NetworkError is a transport failure: the request never produced a usable response
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the task API
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Detail, e.StatusCode)
}

// Is lets errors.Is match the status sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Message returns the text shown to the user for any client error
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return http.StatusText(apiErr.StatusCode)
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "Cannot reach the task server"
	}
	return err.Error()
}

// errorBody is the FastAPI error shape. Detail is either a string or a
// list of validation problems.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationProblem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}

	var problems []validationProblem
	if err := json.Unmarshal(eb.Detail, &problems); err == nil {
		msgs := make([]string, 0, len(problems))
		for _, p := range problems {
			msgs = append(msgs, p.Msg)
		}
		return strings.Join(msgs, "; ")
	}

	return string(eb.Detail)
}
