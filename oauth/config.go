// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hashicorp/cap-oauth/oauth/internal/strutils"
	sdkHttp "github.com/hashicorp/cap-oauth/sdk/http"
)

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the relying party side of an OAuth 2.0 authorization
// code flow: who the client is and how it talks to the provider. The
// provider side is described by a ProviderProfile.
type Config struct {
	// ClientID is the relying party id.
	ClientID string

	// ClientSecret is the relying party secret. It is optional, since
	// providers like VK ID register public clients which rely on PKCE alone.
	ClientSecret ClientSecret

	// RedirectURL is the default callback URL sent to the provider. A Session
	// may override it.
	RedirectURL string

	// Scopes is a list of additional scopes to request of the provider. They
	// are requested along with the profile's default scopes.
	Scopes []string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string

	// StateLifetime is how long a Session (and so the state parameter) stays
	// valid after it is created. Zero means DefaultStateLifetime.
	StateLifetime time.Duration

	// Logger is an optional logger. Secrets are never logged.
	Logger hclog.Logger

	// Client is an optional http client used for backchannel requests. When
	// nil, one is created from ProviderCA.
	Client *http.Client

	// TracerProvider is an optional trace provider. When nil the global
	// otel provider is used.
	TracerProvider trace.TracerProvider

	// NowFunc is a time func that returns the current time.
	NowFunc func() time.Time
}

// NewConfig composes a new config for a provider.
//
// Supported options:
//   - WithScopes
//   - WithProviderCA
//   - WithStateLifetime
//   - WithLogger
//   - WithHTTPClient
//   - WithTracerProvider
//   - WithNow
func NewConfig(clientID string, clientSecret ClientSecret, redirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		RedirectURL:    redirectURL,
		Scopes:         opts.withScopes,
		ProviderCA:     opts.withProviderCA,
		StateLifetime:  opts.withStateLifetime,
		Logger:         opts.withLogger,
		Client:         opts.withHTTPClient,
		TracerProvider: opts.withTracerProvider,
		NowFunc:        opts.withNowFunc,
	}
	if c.StateLifetime == 0 {
		c.StateLifetime = DefaultStateLifetime
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the config. Every problem found is reported, not just the first.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.RedirectURL == "" {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter))
	} else if err := validateAbsoluteURL(c.RedirectURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL: %w", op, err))
	}
	if c.StateLifetime < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: state lifetime %s is negative: %w", op, c.StateLifetime, ErrInvalidParameter))
	}
	if c.ProviderCA != "" && c.Client != nil {
		result = multierror.Append(result, fmt.Errorf("%s: provider CA and http client are mutually exclusive: %w", op, ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

// HTTPClient returns the configured http client or creates a new one for the
// provider CA.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	if c.Client != nil {
		return c.Client, nil
	}
	client, err := sdkHttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// Now returns the current time using the optional NowFunc.
func (c *Config) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now()
}

// stateLifetime returns StateLifetime, or DefaultStateLifetime when it's
// zero.
func (c *Config) stateLifetime() time.Duration {
	if c.StateLifetime == 0 {
		return DefaultStateLifetime
	}
	return c.StateLifetime
}

func (c *Config) logger() hclog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return hclog.NewNullLogger()
}

func (c *Config) tracerProvider() trace.TracerProvider {
	if c.TracerProvider != nil {
		return c.TracerProvider
	}
	return otel.GetTracerProvider()
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q is invalid: %w", raw, ErrInvalidParameter)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http or https URL: %w", raw, ErrInvalidParameter)
	}
	return nil
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withScopes         []string
	withProviderCA     string
	withStateLifetime  time.Duration
	withLogger         hclog.Logger
	withHTTPClient     *http.Client
	withTracerProvider trace.TracerProvider
	withNowFunc        func() time.Time
}

// configDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the config defaults and applies the opt overrides passed
// in
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithProviderCA provides an optional CA certs (PEM encoded) for the
// provider's config. These certs will can be used when making http requests
// to the provider's endpoints.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithLogger provides an optional logger for the provider's config.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client for backchannel requests.
// The client must be safe for concurrent use.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithTracerProvider provides an optional otel trace provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withTracerProvider = tp
		}
	}
}
