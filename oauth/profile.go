// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/oauth2"
)

// ClaimMapping maps one field of a provider's user profile to a claim.
// JSONPath is a gjson path evaluated relative to the profile's payload object
// (see ProviderProfile.UserInfoRoot).
type ClaimMapping struct {
	ClaimType string
	JSONPath  string
}

// ProviderProfile describes everything that differs between OAuth 2.0
// providers: endpoints, scopes, claim mappings and protocol quirks.  The
// providers packages return default profiles which callers may adjust before
// passing them to NewProvider. A Provider keeps its own copy, so a profile
// can't be changed once it's in use.
type ProviderProfile struct {
	// Name is the provider's display name, used in logs and traces.
	Name string

	// Issuer is recorded on every claim mapped from the provider's profile.
	Issuer string

	// CallbackPath is the conventional path of the redirect endpoint.
	CallbackPath string

	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string

	// DefaultScopes are always requested unless a request overrides scopes.
	DefaultScopes []string

	// ClaimMappings are evaluated in order.
	ClaimMappings []ClaimMapping

	// ExtraAuthParams are appended to every authorization request.
	ExtraAuthParams map[string]string

	// RequiresDeviceID is set for providers which return a device_id with
	// the authorization code and require it on the token request.
	RequiresDeviceID bool

	// TokenResponseAlwaysHTTP200 is set for providers whose token endpoint
	// reports errors in the body of a 200 response. Any other status is
	// treated as a transport failure.
	TokenResponseAlwaysHTTP200 bool

	// TokenRequestIncludesState sends the (verifier free) protected state
	// with the token request.
	TokenRequestIncludesState bool

	// UserInfoMethod is http.MethodGet (bearer token header) or
	// http.MethodPost (access_token and client_id form fields).
	UserInfoMethod string

	// UserInfoRoot is the gjson path of the object holding the user's
	// fields. Empty means the document root.
	UserInfoRoot string
}

// Validate the profile.  Every problem found is reported, not just the first.
func (p ProviderProfile) Validate() error {
	const op = "ProviderProfile.Validate"
	var result *multierror.Error
	if p.Name == "" {
		result = multierror.Append(result, fmt.Errorf("%s: name is empty: %w", op, ErrInvalidParameter))
	}
	for _, ep := range []struct {
		name  string
		value string
	}{
		{"authorization endpoint", p.AuthorizationEndpoint},
		{"token endpoint", p.TokenEndpoint},
		{"user info endpoint", p.UserInfoEndpoint},
	} {
		if ep.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s: %s is empty: %w", op, ep.name, ErrInvalidParameter))
			continue
		}
		if err := validateAbsoluteURL(ep.value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %s: %w", op, ep.name, err))
		}
	}
	switch p.UserInfoMethod {
	case http.MethodGet, http.MethodPost:
	default:
		result = multierror.Append(result, fmt.Errorf("%s: unsupported user info method %q: %w", op, p.UserInfoMethod, ErrInvalidParameter))
	}
	for i, m := range p.ClaimMappings {
		if m.ClaimType == "" || m.JSONPath == "" {
			result = multierror.Append(result, fmt.Errorf("%s: claim mapping %d is incomplete: %w", op, i, ErrInvalidParameter))
		}
	}
	for k := range p.ExtraAuthParams {
		if isProtocolParam(k) {
			result = multierror.Append(result, fmt.Errorf("%s: extra auth param %q would override a protocol parameter: %w", op, k, ErrInvalidParameter))
		}
	}
	return result.ErrorOrNil()
}

// Clone returns a deep copy of the profile.
func (p ProviderProfile) Clone() ProviderProfile {
	c := p
	if p.DefaultScopes != nil {
		c.DefaultScopes = make([]string, len(p.DefaultScopes))
		copy(c.DefaultScopes, p.DefaultScopes)
	}
	if p.ClaimMappings != nil {
		c.ClaimMappings = make([]ClaimMapping, len(p.ClaimMappings))
		copy(c.ClaimMappings, p.ClaimMappings)
	}
	if p.ExtraAuthParams != nil {
		c.ExtraAuthParams = make(map[string]string, len(p.ExtraAuthParams))
		for k, v := range p.ExtraAuthParams {
			c.ExtraAuthParams[k] = v
		}
	}
	return c
}

// Endpoint returns the profile's endpoints as an oauth2.Endpoint. Client
// credentials are always sent in the request body.
func (p ProviderProfile) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   p.AuthorizationEndpoint,
		TokenURL:  p.TokenEndpoint,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// MapJSONKey appends a mapping of jsonPath to claimType.
func (p *ProviderProfile) MapJSONKey(claimType, jsonPath string) {
	p.ClaimMappings = append(p.ClaimMappings, ClaimMapping{ClaimType: claimType, JSONPath: jsonPath})
}

// DeleteClaim removes every mapping to claimType.
func (p *ProviderProfile) DeleteClaim(claimType string) {
	kept := make([]ClaimMapping, 0, len(p.ClaimMappings))
	for _, m := range p.ClaimMappings {
		if m.ClaimType != claimType {
			kept = append(kept, m)
		}
	}
	p.ClaimMappings = kept
}
