// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter         = errors.New("invalid parameter")
	ErrNilParameter             = errors.New("nil parameter")
	ErrInvalidCACert            = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed        = errors.New("id generation failed")
	ErrInvalidState             = errors.New("the oauth state was missing or invalid")
	ErrExpiredState             = errors.New("state is expired")
	ErrCorrelationMismatch      = errors.New("correlation failed")
	ErrStateReplayed            = errors.New("state has already been used")
	ErrMissingCode              = errors.New("code was not found")
	ErrMissingRequiredParameter = errors.New("missing required parameter")
	ErrMissingVerifier          = errors.New("code verifier was not found")
	ErrRemote                   = errors.New("invalid remote server response")
	ErrProviderError            = errors.New("provider returned an error")
	ErrAuthorizationDenied      = errors.New("authorization denied")
	ErrMissingAccessToken       = errors.New("failed to retrieve access token")
	ErrMalformedProfile         = errors.New("failed to retrieve user information")
	ErrProfile                  = errors.New("user profile error")
	ErrOperationCancelled       = errors.New("operation cancelled")
)

// ProviderError is an OAuth 2.0 error response (RFC 6749 section 5.2) sent by
// a provider. Some providers send it with a 200 status, in which case
// StatusCode is 200.
type ProviderError struct {
	Code        string
	Description string
	URI         string
	StatusCode  int
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// MissingParameterError names a parameter a provider requires which was not
// received. It matches ErrMissingRequiredParameter with errors.Is.
type MissingParameterError struct {
	Name string
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingRequiredParameter, e.Name)
}

// Is reports whether target is ErrMissingRequiredParameter.
func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingRequiredParameter
}

// FlowError is returned by the steps of a login attempt once the attempt's
// Session is known, so callers can render an error for, or restart, that
// attempt.
type FlowError struct {
	Session *Session
	Err     error
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	if e.Err == nil {
		return "unknown flow error"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *FlowError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SessionFromError returns the Session carried by err, if any.
func SessionFromError(err error) (*Session, bool) {
	var fe *FlowError
	if errors.As(err, &fe) && fe.Session != nil {
		return fe.Session, true
	}
	return nil, false
}

// flowError attaches s to err. A nil err stays nil.
func flowError(s *Session, err error) error {
	if err == nil {
		return nil
	}
	var fe *FlowError
	if errors.As(err, &fe) {
		return err
	}
	return &FlowError{Session: s, Err: err}
}

// transportError classifies an error returned by the http client. When the
// request context is done the error is reported as ErrOperationCancelled.
func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrOperationCancelled, ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrOperationCancelled, err)
	}
	return fmt.Errorf("%s: request failed: %w: %w", op, ErrRemote, err)
}
