// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseSize limits how much of a provider response is read.
const maxResponseSize = 1 << 20

// Exchange will request a token from the provider's token endpoint, using
// the authorization code received in a successful callback (see
// ValidateCallback) and the session's PKCE verifier.
//
// The verifier is removed from s before the request is sent, so a session
// can only be exchanged once, even when the request fails. No request is
// retried.
//
// Provider errors are returned as a *ProviderError wrapped with
// ErrProviderError. When ctx is cancelled or its deadline passes the error
// wraps ErrOperationCancelled.
func (p *Provider) Exchange(ctx context.Context, s *Session, code string) (*Token, error) {
	const op = "Provider.Exchange"
	if s == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	if code == "" {
		return nil, flowError(s, fmt.Errorf("%s: %w", op, ErrMissingCode))
	}
	if _, ok := s.CodeVerifier(); !ok {
		return nil, flowError(s, fmt.Errorf("%s: %w", op, ErrMissingVerifier))
	}
	if p.profile.RequiresDeviceID && s.DeviceID == "" {
		return nil, flowError(s, fmt.Errorf("%s: %w", op, &MissingParameterError{Name: "device_id"}))
	}
	verifier, _ := s.takeVerifier()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {verifier},
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {s.RedirectURL},
	}
	if p.config.ClientSecret != "" {
		form.Set("client_secret", string(p.config.ClientSecret))
	}
	if p.profile.RequiresDeviceID {
		form.Set("device_id", s.DeviceID)
	}
	if p.profile.TokenRequestIncludesState {
		// s no longer holds the verifier
		state, err := p.codec.Protect(s)
		if err != nil {
			return nil, flowError(s, fmt.Errorf("%s: unable to protect state: %w", op, err))
		}
		form.Set("state", state)
	}

	ctx, span := p.tracer.Start(ctx, SpanExchange, trace.WithAttributes(
		attribute.String(AttrProviderName, p.profile.Name),
		attribute.String(AttrHTTPMethod, http.MethodPost),
	))
	defer span.End()

	tk, err := p.exchange(ctx, span, form)
	if err != nil {
		recordError(span, err)
		return nil, flowError(s, err)
	}
	return tk, nil
}

func (p *Provider) exchange(ctx context.Context, span trace.Span, form url.Values) (*Token, error) {
	const op = "Provider.Exchange"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.profile.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create token request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	p.logger.Debug("sending token request", "endpoint", p.profile.TokenEndpoint)
	status, body, err := p.roundTrip(ctx, op, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))

	if p.profile.TokenResponseAlwaysHTTP200 && status != http.StatusOK {
		p.logger.Error("unexpected token response status", "status", status)
		return nil, fmt.Errorf("%s: unexpected status %d: %w", op, status, ErrRemote)
	}
	if !gjson.ValidBytes(body) {
		p.logger.Error("token response is not valid JSON", "status", status)
		return nil, fmt.Errorf("%s: token response (status %d) is not valid JSON: %w", op, status, ErrRemote)
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		p.logger.Error("token response is not a JSON object", "status", status)
		return nil, fmt.Errorf("%s: token response (status %d) is not a JSON object: %w", op, status, ErrRemote)
	}
	if perr := providerErrorFrom(doc, status); perr != nil {
		p.logger.Error("provider returned a token error", "status", status, "error", perr.Code)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrProviderError, perr)
	}
	if status < 200 || status > 299 {
		p.logger.Error("unexpected token response status", "status", status)
		return nil, fmt.Errorf("%s: unexpected status %d: %w", op, status, ErrRemote)
	}

	accessToken := strings.TrimSpace(doc.Get("access_token").String())
	if accessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAccessToken)
	}
	tk := &Token{
		AccessToken:  AccessToken(accessToken),
		RefreshToken: RefreshToken(doc.Get("refresh_token").String()),
		TokenType:    doc.Get("token_type").String(),
		ExpiresIn:    doc.Get("expires_in").Int(),
	}
	if tk.ExpiresIn > 0 {
		tk.Expiry = p.config.Now().Add(time.Duration(tk.ExpiresIn) * time.Second)
	}
	if raw, ok := doc.Value().(map[string]interface{}); ok {
		tk.raw = raw
	}
	return tk, nil
}

// roundTrip sends req and reads at most maxResponseSize bytes of the
// response body.
func (p *Provider) roundTrip(ctx context.Context, op string, req *http.Request) (int, []byte, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("request failed", "endpoint", req.URL.Redacted(), "error", err)
		return 0, nil, transportError(ctx, op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, transportError(ctx, op, err)
	}
	return resp.StatusCode, body, nil
}

// providerErrorFrom returns the OAuth 2.0 error in doc, or nil when doc's
// "error" field is absent or empty.
func providerErrorFrom(doc gjson.Result, status int) *ProviderError {
	e := doc.Get("error")
	if e.Type == gjson.Null || e.Type == gjson.False {
		return nil
	}
	code := e.String()
	if code == "" {
		return nil
	}
	return &ProviderError{
		Code:        code,
		Description: doc.Get("error_description").String(),
		URI:         doc.Get("error_uri").String(),
		StatusCode:  status,
	}
}
