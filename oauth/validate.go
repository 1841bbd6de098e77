// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
)

// CallbackResult is a validated authorization response.
type CallbackResult struct {
	// Code is the authorization code to exchange.
	Code string

	// Session is the login attempt's session, recovered from the state. It
	// still holds the code verifier.
	Session *Session

	// Extra holds every parameter of the response other than code and
	// state.
	Extra url.Values
}

// ValidateCallback validates the query of a redirect to the callback
// endpoint. expectedCorrelationID is the correlation id bound to the user
// agent when the login attempt started (see callback.Correlator).
//
// The checks run in order and the first failure is returned: the state must
// unprotect to an unexpired Session (ErrInvalidState, ErrExpiredState), its
// correlation id must match (ErrCorrelationMismatch), the provider must not
// have reported an error (ErrAuthorizationDenied), a code must be present
// (ErrMissingCode) and so must every parameter the profile requires
// (ErrMissingRequiredParameter). Errors returned once the Session is known
// carry it (see SessionFromError).
func (p *Provider) ValidateCallback(ctx context.Context, query url.Values, expectedCorrelationID string) (*CallbackResult, error) {
	const op = "Provider.ValidateCallback"
	p.logger.Debug("callback received", "query", redactValues(query).Encode())

	state := query.Get("state")
	if state == "" {
		return nil, fmt.Errorf("%s: state parameter is missing: %w", op, ErrInvalidState)
	}
	s, err := p.codec.Unprotect(state)
	if err != nil {
		p.logger.Debug("unable to unprotect state", "error", err)
		return nil, fmt.Errorf("%s: unable to unprotect state: %w: %w", op, ErrInvalidState, err)
	}
	if s == nil {
		return nil, fmt.Errorf("%s: state codec returned no session: %w", op, ErrInvalidState)
	}
	if s.IsExpired(WithNow(p.config.Now)) {
		return nil, flowError(s, fmt.Errorf("%s: %w: %w", op, ErrInvalidState, ErrExpiredState))
	}
	if expectedCorrelationID == "" ||
		subtle.ConstantTimeCompare([]byte(s.CorrelationID), []byte(expectedCorrelationID)) != 1 {
		return nil, flowError(s, fmt.Errorf("%s: %w", op, ErrCorrelationMismatch))
	}

	if e := query.Get("error"); e != "" {
		perr := &ProviderError{
			Code:        e,
			Description: query.Get("error_description"),
			URI:         query.Get("error_uri"),
		}
		p.logger.Debug("provider denied authorization", "error", perr.Code)
		return nil, flowError(s, fmt.Errorf("%s: %w: %w", op, ErrAuthorizationDenied, perr))
	}

	code := query.Get("code")
	if code == "" {
		return nil, flowError(s, fmt.Errorf("%s: %w", op, ErrMissingCode))
	}
	if p.profile.RequiresDeviceID {
		deviceID := query.Get("device_id")
		if deviceID == "" {
			return nil, flowError(s, fmt.Errorf("%s: %w", op, &MissingParameterError{Name: "device_id"}))
		}
		s.DeviceID = deviceID
	}

	extra := cloneValues(query)
	extra.Del("code")
	extra.Del("state")
	return &CallbackResult{Code: code, Session: s, Extra: extra}, nil
}
