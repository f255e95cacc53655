package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a publish failure so the scheduler and API surface can
// react uniformly regardless of which platform produced it.
type ErrorKind string

const (
	ErrKindValidation          ErrorKind = "validation"
	ErrKindAccountNotConnected ErrorKind = "account_not_connected"
	ErrKindTokenExpired        ErrorKind = "token_expired"
	ErrKindMediaTimeout        ErrorKind = "media_processing_timeout"
	ErrKindRemoteAPI           ErrorKind = "remote_api"
	ErrKindGenerator           ErrorKind = "generator"
)

// PublishError is the normalized error every platform adapter returns. The
// remote platform's own message is preserved verbatim in Message for
// diagnosis.
type PublishError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *PublishError) Unwrap() error { return e.Err }

func NewValidationError(format string, args ...interface{}) *PublishError {
	return &PublishError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewAccountNotConnectedError(platform, pageID string) *PublishError {
	return &PublishError{Kind: ErrKindAccountNotConnected, Message: fmt.Sprintf("%s account not connected for %s, please reconnect", platform, pageID)}
}

func NewMediaTimeoutError(platform string) *PublishError {
	return &PublishError{Kind: ErrKindMediaTimeout, Message: fmt.Sprintf("%s media processing timed out", platform)}
}

func NewRemoteAPIError(platform, remoteMessage string) *PublishError {
	return &PublishError{Kind: ErrKindRemoteAPI, Message: fmt.Sprintf("%s: %s", platform, remoteMessage)}
}

func NewGeneratorError(err error) *PublishError {
	return &PublishError{Kind: ErrKindGenerator, Message: fmt.Sprintf("content generation failed: %v", err), Err: err}
}

// KindOf extracts the classification from any error; unclassified errors are
// treated as remote API failures.
func KindOf(err error) ErrorKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrKindRemoteAPI
}
