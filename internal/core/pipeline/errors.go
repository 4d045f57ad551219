package pipeline

import (
	"errors"
	"fmt"
)

var ErrEmptyReply = errors.New("pipeline: reply has no text")

// StatusError is returned when the remote answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pipeline: remote status %d", e.Code)
	}
	return fmt.Sprintf("pipeline: remote status %d: %s", e.Code, e.Body)
}
