package bulk

import (
	"errors"
	"fmt"
)

// ErrBatchAborted is returned by Run when HaltOnError is set and an item
// failed; the result still carries every recorded outcome.
var ErrBatchAborted = errors.New("bulk: batch aborted on failure")

// Error is the structured failure attached to a bulk outcome. It strictly
// subsumes a bare message: plain errors populate Message only.
type Error struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Upstream   string `json:"upstream,omitempty"`
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// UpstreamError carries an upstream HTTP failure through the runner so
// outcomes can report the status code and raw body.
type UpstreamError struct {
	Message    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed: %s (status %d)", e.Message, e.StatusCode)
}

// Retryable reports whether an upstream status code is worth retrying:
// timeouts, rate limits and server errors.
func Retryable(statusCode int) bool {
	return statusCode == 408 || statusCode == 429 || statusCode >= 500
}

// retryableError reports whether a failed attempt should be retried.
// Errors without a status code are assumed transient.
func retryableError(err error) bool {
	statusCode := FormatError(err).StatusCode
	return statusCode == 0 || Retryable(statusCode)
}

// FormatError converts any error into the structured outcome form.
func FormatError(err error) *Error {
	if err == nil {
		return nil
	}

	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return &Error{
			Message:    upstream.Message,
			StatusCode: upstream.StatusCode,
			Upstream:   upstream.Body,
		}
	}

	return &Error{Message: err.Error()}
}
