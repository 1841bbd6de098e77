// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-oauth/oauth"
)

// AuthCode creates an OAuth 2.0 authorization code callback handler. It
// validates the provider's response against the correlation id from the
// Correlator, exchanges the code for a token and fetches the user's profile.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails.
//
// Supported options: WithReplayGuard
func AuthCode(p *oauth.Provider, c Correlator, sFn SuccessResponseFunc, eFn ErrorResponseFunc, opt ...oauth.Option) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	if p == nil {
		return nil, fmt.Errorf("%s: provider is empty: %w", op, oauth.ErrInvalidParameter)
	}
	if c == nil {
		return nil, fmt.Errorf("%s: correlator is empty: %w", op, oauth.ErrInvalidParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: success response func is empty: %w", op, oauth.ErrInvalidParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: error response func is empty: %w", op, oauth.ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		// a missing or invalid cookie leaves expected empty, which fails
		// correlation once the state has been checked
		expected, _ := c.Expected(w, req)

		// parameters come from either the body (form_post) or the query
		if err := req.ParseForm(); err != nil {
			eFn(nil, nil, fmt.Errorf("%s: unable to parse request: %w", op, oauth.ErrInvalidParameter), w, req)
			return
		}
		res, err := p.ValidateCallback(ctx, req.Form, expected)
		if err != nil {
			s, _ := oauth.SessionFromError(err)
			var perr *oauth.ProviderError
			if errors.Is(err, oauth.ErrAuthorizationDenied) && errors.As(err, &perr) {
				eFn(s, &AuthenErrorResponse{
					Error:       perr.Code,
					Description: perr.Description,
					Uri:         perr.URI,
				}, nil, w, req)
				return
			}
			eFn(s, nil, err, w, req)
			return
		}
		s := res.Session

		if opts.withReplayGuard != nil {
			if err := opts.withReplayGuard.Consume(ctx, s.CorrelationID, s.ExpiresAt.Sub(p.Now())); err != nil {
				eFn(s, nil, fmt.Errorf("%s: %w", op, err), w, req)
				return
			}
		}

		tk, err := p.Exchange(ctx, s, res.Code)
		if err != nil {
			eFn(s, nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err), w, req)
			return
		}
		id, err := p.UserInfo(ctx, tk)
		if err != nil {
			eFn(s, nil, fmt.Errorf("%s: unable to get user info: %w", op, err), w, req)
			return
		}
		sFn(s, tk, id, w, req)
	}, nil
}
