package transit

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable covers network failures and non-2xx upstream responses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrDecode means the real-time feed body was not a valid FeedMessage.
	ErrDecode = errors.New("feed decode error")
	// ErrBundleMalformed means the static bundle has no usable routes table.
	ErrBundleMalformed = errors.New("static bundle malformed")
)

// UpstreamError describes an HTTP response with an error status.
type UpstreamError struct {
	URL, Status string
	StatusCode  int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamUnavailable
}

// ErrorClass names the taxonomy bucket of err for logs and response bodies.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	case errors.Is(err, ErrDecode):
		return "DecodeError"
	case errors.Is(err, ErrBundleMalformed):
		return "BundleMalformed"
	default:
		return "Internal"
	}
}
