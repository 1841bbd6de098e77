// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserInfo gets the user's profile from the provider's user info endpoint
// and maps it to an Identity using the profile's claim mappings.
//
// A non-2xx response carrying an OAuth error is reported as ErrProfile with
// a *ProviderError, any other non-2xx as ErrRemote. A 2xx response which
// can't be mapped is ErrMalformedProfile.
func (p *Provider) UserInfo(ctx context.Context, t *Token) (*Identity, error) {
	const op = "Provider.UserInfo"
	if t == nil {
		return nil, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	if strings.TrimSpace(string(t.AccessToken)) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAccessToken)
	}

	ctx, span := p.tracer.Start(ctx, SpanUserInfo, trace.WithAttributes(
		attribute.String(AttrProviderName, p.profile.Name),
		attribute.String(AttrHTTPMethod, p.profile.UserInfoMethod),
	))
	defer span.End()

	id, err := p.userInfo(ctx, span, t)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return id, nil
}

func (p *Provider) userInfo(ctx context.Context, span trace.Span, t *Token) (*Identity, error) {
	const op = "Provider.UserInfo"
	var (
		req *http.Request
		err error
	)
	switch p.profile.UserInfoMethod {
	case http.MethodPost:
		form := url.Values{
			"access_token": {string(t.AccessToken)},
			"client_id":    {p.config.ClientID},
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, p.profile.UserInfoEndpoint, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, p.profile.UserInfoEndpoint, nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+string(t.AccessToken))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create user info request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	p.logger.Debug("sending user info request", "endpoint", p.profile.UserInfoEndpoint)
	status, body, err := p.roundTrip(ctx, op, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))

	valid := gjson.ValidBytes(body)
	var doc gjson.Result
	if valid {
		doc = gjson.ParseBytes(body)
	}
	if status < 200 || status > 299 {
		if valid {
			if perr := providerErrorFrom(doc, status); perr != nil {
				p.logger.Error("provider returned a user info error", "status", status, "error", perr.Code)
				return nil, fmt.Errorf("%s: %w: %w", op, ErrProfile, perr)
			}
		}
		p.logger.Error("unexpected user info response status", "status", status)
		return nil, fmt.Errorf("%s: unexpected status %d: %w", op, status, ErrRemote)
	}
	if !valid || !doc.IsObject() {
		return nil, fmt.Errorf("%s: user info response is not a JSON object: %w", op, ErrMalformedProfile)
	}
	if perr := providerErrorFrom(doc, status); perr != nil {
		p.logger.Error("provider returned a user info error", "status", status, "error", perr.Code)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrProfile, perr)
	}

	payload := doc
	if p.profile.UserInfoRoot != "" {
		payload = doc.Get(p.profile.UserInfoRoot)
		if !payload.IsObject() {
			return nil, fmt.Errorf("%s: %q is missing from the user info response: %w", op, p.profile.UserInfoRoot, ErrMalformedProfile)
		}
	}
	return &Identity{
		Provider: p.profile.Name,
		Claims:   MapClaims(payload, p.profile.ClaimMappings, p.profile.Issuer),
		Raw:      json.RawMessage(payload.Raw),
	}, nil
}
