package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error is a non-2xx answer from the remote API.
type Error struct {
	Message string
	Status  int
	Body    json.RawMessage // nil when the body was empty or not JSON
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status, Message: fmt.Sprintf("Request failed: %d %s", status, http.StatusText(status))}
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return e
	}
	e.Body = json.RawMessage(body)
	for _, field := range []string{"error", "message"} {
		if r := gjson.GetBytes(body, field); r.Exists() && r.String() != "" {
			e.Message = r.String()
			break
		}
	}
	return e
}

func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// StatusOf returns the HTTP status of an *Error in err's chain, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// UserError is an error whose text is written for the visitor.
type UserError struct{ text string }

func NewUserError(text string) *UserError { return &UserError{text: text} }

func (e *UserError) Error() string { return e.text }

// MessageOf is the text a visitor may see for err: the API's own message, a
// UserError's text, or fallback. Transport and internal errors never leak.
func MessageOf(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	var u *UserError
	if errors.As(err, &u) && u.text != "" {
		return u.text
	}
	return fallback
}
