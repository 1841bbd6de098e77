// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/hashicorp/cap-oauth/oauth/internal/strutils"
)

// Provider provides integration with an OAuth 2.0 provider using the
// authorization code flow with PKCE. A Provider is immutable once created and
// safe for concurrent use: everything specific to one login attempt lives in
// its Session.
type Provider struct {
	config  *Config
	profile ProviderProfile
	codec   StateCodec
	client  *http.Client
	logger  hclog.Logger
	tracer  trace.Tracer
	scopes  []string
}

// NewProvider creates a Provider for profile. The profile is copied, so later
// changes to it have no effect on the Provider. The codec protects every
// Session sent through the user agent (see the protect package).
func NewProvider(c *Config, profile ProviderProfile, codec StateCodec) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if codec == nil {
		return nil, fmt.Errorf("%s: state codec is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider profile is invalid: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	profile = profile.Clone()
	scopes := make([]string, 0, len(profile.DefaultScopes)+len(c.Scopes))
	scopes = append(scopes, profile.DefaultScopes...)
	scopes = append(scopes, c.Scopes...)
	p := &Provider{
		config:  c,
		profile: profile,
		codec:   codec,
		client:  client,
		logger:  c.logger().Named(profile.Name),
		tracer:  c.tracerProvider().Tracer(TracerName),
		scopes:  strutils.RemoveDuplicatesStable(scopes, false),
	}
	if m, ok := codec.(MaxAger); ok && m.MaxAge() > 0 && m.MaxAge() < c.stateLifetime() {
		p.logger.Warn("state codec max age is shorter than the state lifetime; older states will be rejected",
			"max_age", m.MaxAge(), "state_lifetime", c.stateLifetime())
	}
	return p, nil
}

// Name returns the provider's name.
func (p *Provider) Name() string {
	return p.profile.Name
}

// Profile returns a copy of the provider's profile.
func (p *Provider) Profile() ProviderProfile {
	return p.profile.Clone()
}

// CallbackPath returns the profile's conventional callback path.
func (p *Provider) CallbackPath() string {
	return p.profile.CallbackPath
}

// Scopes returns the scopes requested by default: the profile's default
// scopes followed by the configured ones, without duplicates.
func (p *Provider) Scopes() []string {
	return append([]string(nil), p.scopes...)
}

// Now returns the current time, using the config's NowFunc.
func (p *Provider) Now() time.Time {
	return p.config.Now()
}

// HTTPClient returns the client used for backchannel requests.
func (p *Provider) HTTPClient() *http.Client {
	return p.client
}

// NewSession creates a Session for a new login attempt, using the configured
// state lifetime and redirect URL.
//
// Supported options: WithCorrelationID, WithRedirectURL, WithItems,
// WithStateLifetime
func (p *Provider) NewSession(opt ...Option) (*Session, error) {
	const op = "Provider.NewSession"
	opts := getSessionOpts(append([]Option{
		WithStateLifetime(p.config.stateLifetime()),
		WithNow(p.config.NowFunc),
	}, opt...)...)
	cid := opts.withCorrelationID
	if cid == "" {
		var err error
		if cid, err = NewID("c"); err != nil {
			return nil, fmt.Errorf("%s: unable to generate correlation id: %w", op, err)
		}
	}
	redirectURL := opts.withRedirectURL
	if redirectURL == "" {
		redirectURL = p.config.RedirectURL
	}
	s, err := NewSession(cid, redirectURL,
		WithStateLifetime(opts.withLifetime),
		WithNow(opts.withNowFunc),
		WithItems(opts.withItems),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// AuthURL will generate a URL the caller can use to kick off an OAuth 2.0
// authorization code flow with the provider. A fresh PKCE verifier is stored
// in s; only its S256 challenge appears in the URL, while the verifier
// travels inside the protected state.
//
// Supported options: WithScopes (replaces the default scopes for this
// request), WithAuthParams
func (p *Provider) AuthURL(ctx context.Context, s *Session, opt ...Option) (string, error) {
	const op = "Provider.AuthURL"
	if s == nil {
		return "", fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	if s.CorrelationID == "" {
		return "", fmt.Errorf("%s: session correlation id is empty: %w", op, ErrInvalidParameter)
	}
	if s.RedirectURL == "" {
		s.RedirectURL = p.config.RedirectURL
	}
	opts := getAuthURLOpts(opt...)
	for k := range opts.withAuthParams {
		if isProtocolParam(k) {
			return "", fmt.Errorf("%s: auth param %q would override a protocol parameter: %w", op, k, ErrInvalidParameter)
		}
	}

	scopes := p.scopes
	if override := strutils.RemoveDuplicatesStable(opts.withScopes, false); len(override) > 0 {
		scopes = override
	}

	verifier := newCodeVerifier()
	s.codeVerifier = verifier
	state, err := p.codec.Protect(s)
	if err != nil {
		return "", fmt.Errorf("%s: unable to protect state: %w", op, err)
	}

	oauth2Config := oauth2.Config{
		ClientID:    p.config.ClientID,
		RedirectURL: s.RedirectURL,
		Endpoint:    p.profile.Endpoint(),
		Scopes:      scopes,
	}
	authCodeOpts := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
	}
	for k, v := range p.profile.ExtraAuthParams {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam(k, v))
	}
	for k, v := range opts.withAuthParams {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam(k, v))
	}
	return oauth2Config.AuthCodeURL(state, authCodeOpts...), nil
}

func isProtocolParam(k string) bool {
	switch k {
	case "response_type", "client_id", "redirect_uri", "scope", "state", "code_challenge", "code_challenge_method":
		return true
	}
	return false
}

// authURLOptions is the set of available options for Provider.AuthURL
type authURLOptions struct {
	withScopes     []string
	withAuthParams map[string]string
}

// authURLDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func authURLDefaults() authURLOptions {
	return authURLOptions{}
}

// getAuthURLOpts gets the AuthURL defaults and applies the opt overrides
// passed in
func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithAuthParams provides optional extra query parameters for:
// Provider.AuthURL. Protocol parameters can't be overridden.
func WithAuthParams(params map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*authURLOptions); ok {
			if o.withAuthParams == nil {
				o.withAuthParams = make(map[string]string, len(params))
			}
			for k, v := range params {
				o.withAuthParams[k] = v
			}
		}
	}
}
