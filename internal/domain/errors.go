package domain

import (
	"errors"
	"fmt"
)

// ErrPreferenceNotFound is returned when a user has no reminder preference record.
var ErrPreferenceNotFound = errors.New("reminder preference not found")

// SendErrorKind classifies a delivery failure.
type SendErrorKind string

const (
	// SendErrorTransient covers network errors, rate limiting and gateway
	// 5xx responses; the attempt may be retried.
	SendErrorTransient SendErrorKind = "transient"

	// SendErrorPermanent covers failures that will not self-correct, such
	// as the user having blocked the bot. Retrying is pointless and the
	// schedule should be disabled.
	SendErrorPermanent SendErrorKind = "permanent"
)

// SendError is the classified error returned by the messaging gateway.
type SendError struct {
	Kind SendErrorKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send error: %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// NewTransientSendError wraps err as a retryable delivery failure.
func NewTransientSendError(err error) *SendError {
	return &SendError{Kind: SendErrorTransient, Err: err}
}

// NewPermanentSendError wraps err as a non-retryable delivery failure.
func NewPermanentSendError(err error) *SendError {
	return &SendError{Kind: SendErrorPermanent, Err: err}
}

// IsPermanentSend reports whether err is classified as permanent.
// Unclassified errors are treated as transient.
func IsPermanentSend(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Kind == SendErrorPermanent
}
