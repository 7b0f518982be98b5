package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies an error payload.
type ErrorType string

const (
	LimitExceeded   ErrorType = "limit_exceeded"
	StoreError      ErrorType = "store_error"
	EnvError        ErrorType = "env_error"
	HTTPError       ErrorType = "http_error"
	APIError        ErrorType = "api_error"
	ParseErrorType  ErrorType = "parse_error"
	ValidationError ErrorType = "validation_error"
)

// Error is the {type, message} payload backends report failures with.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	// Err is the underlying cause, if any. It is not serialized.
	Err error `json:"-"`
}

// NewError builds an Error, formatting the message.
func NewError(t ErrorType, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around cause.
func Wrap(t ErrorType, cause error, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Payload renders the error as its JSON wire form.
func (e *Error) Payload() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"type":%q,"message":%q}`, e.Type, e.Message)
	}
	return string(data)
}

// ParseError extracts an error payload from err. It recognizes *Error values
// anywhere in the chain and error strings that are a JSON payload.
func ParseError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return ParsePayload(err.Error())
}

// ParsePayload decodes a serialized {type, message} payload.
func ParsePayload(s string) (*Error, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var be Error
	if err := json.Unmarshal([]byte(s), &be); err != nil || be.Type == "" {
		return nil, false
	}
	return &be, true
}

// IsLimitExceeded reports whether err carries a limit_exceeded payload.
func IsLimitExceeded(err error) bool {
	be, ok := ParseError(err)
	return ok && be.Type == LimitExceeded
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if be, ok := ParseError(err); ok && be.Message != "" {
		return be.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
