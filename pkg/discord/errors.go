package discord

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the session has no usable OAuth2
	// access token.
	ErrUnauthorized = errors.New("discord: unauthorized")
	// ErrNoUser is returned when a payload lacks the user it must carry.
	ErrNoUser = errors.New("discord: payload has no user")
)

// HTTPError is a non-2xx response to a user-authorized request.
type HTTPError struct {
	Method     string
	Route      string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("discord: %s %s: HTTP %d: %s", e.Method, e.Route, e.StatusCode, e.Body)
}
