package gql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrThrottleExhausted is returned once a call has been throttled MaxAttempts times in a row.
var ErrThrottleExhausted = errors.New("graphql: throttle retries exhausted")

const throttledCode = "THROTTLED"

type Error struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// ResponseError carries top-level GraphQL errors that are not throttle signals.
type ResponseError struct {
	Errors []Error
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err.Extensions.Code != "" {
			msgs = append(msgs, fmt.Sprintf("%s (%s)", err.Message, err.Extensions.Code))
			continue
		}
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("graphql: status %d: %s", e.StatusCode, e.Body)
}

type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// UserErrors is a mutation rejected with field-level messages.
type UserErrors struct {
	Action string
	Errors []UserError
}

func (e *UserErrors) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		field := strings.Join(ue.Field, ".")
		message := strings.TrimSpace(ue.Message)
		if field == "" {
			parts = append(parts, message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", field, message))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("graphql %s failed with user errors", e.Action)
	}
	return fmt.Sprintf("graphql %s failed: %s", e.Action, strings.Join(parts, "; "))
}

// CheckUserErrors returns a *UserErrors when errs is non-empty.
func CheckUserErrors(action string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	return &UserErrors{Action: action, Errors: errs}
}

func isThrottled(errs []Error) bool {
	for _, e := range errs {
		if strings.EqualFold(e.Extensions.Code, throttledCode) {
			return true
		}
	}
	return false
}
