// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DefaultStateLifetime is how long a Session stays valid when no lifetime
	// is configured.
	DefaultStateLifetime = 15 * time.Minute

	// DefaultStateExpirySkew defines a default time skew when checking a
	// Session's expiration.
	DefaultStateExpirySkew = 1 * time.Second
)

// Session represents one login attempt. It's created when the authorization
// request is built, carried through the provider inside the protected
// "state" parameter, and reconstructed when the provider redirects back.
//
// The PKCE code verifier is secret material: it's only readable until the
// token exchange consumes it.
type Session struct {
	// CorrelationID binds the session to the user agent which started the
	// attempt (CSRF protection).
	CorrelationID string

	// RedirectURL is the callback URL sent to the provider.
	RedirectURL string

	// DeviceID is the device_id the provider returned with the code, for
	// providers which require one.
	DeviceID string

	// Items is caller supplied data returned with the session, for example
	// the page to return to after login.
	Items map[string]string

	// ExpiresAt is when the session stops being accepted.
	ExpiresAt time.Time

	codeVerifier string
}

// NewSession creates a Session for a login attempt.  The correlationID must
// not be empty.
//
// Supported options: WithStateLifetime, WithItems, WithNow
func NewSession(correlationID, redirectURL string, opt ...Option) (*Session, error) {
	const op = "NewSession"
	if correlationID == "" {
		return nil, fmt.Errorf("%s: correlation id is empty: %w", op, ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	opts := getSessionOpts(opt...)
	if opts.withLifetime <= 0 {
		return nil, fmt.Errorf("%s: lifetime not greater than zero: %w", op, ErrInvalidParameter)
	}
	s := &Session{
		CorrelationID: correlationID,
		RedirectURL:   redirectURL,
		ExpiresAt:     opts.withNowFunc().Add(opts.withLifetime),
	}
	if len(opts.withItems) > 0 {
		s.Items = make(map[string]string, len(opts.withItems))
		for k, v := range opts.withItems {
			s.Items[k] = v
		}
	}
	return s, nil
}

// CodeVerifier returns the session's PKCE code verifier. The second value is
// false once the verifier has been consumed (or was never set).
func (s *Session) CodeVerifier() (string, bool) {
	if s == nil || s.codeVerifier == "" {
		return "", false
	}
	return s.codeVerifier, true
}

// takeVerifier returns the verifier and removes it from the session.
func (s *Session) takeVerifier() (string, bool) {
	v, ok := s.CodeVerifier()
	s.codeVerifier = ""
	return v, ok
}

// IsExpired returns true if the session has expired. Supports the
// WithExpirySkew and WithNow options. DefaultStateExpirySkew is used when no
// skew is provided.
func (s *Session) IsExpired(opt ...Option) bool {
	opts := getSessionOpts(opt...)
	return s.ExpiresAt.Before(opts.withNowFunc().Add(opts.withExpirySkew))
}

// Clone returns a deep copy of the session, including its verifier.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Items != nil {
		c.Items = make(map[string]string, len(s.Items))
		for k, v := range s.Items {
			c.Items[k] = v
		}
	}
	return &c
}

// String implements fmt.Stringer and never includes the code verifier.
func (s *Session) String() string {
	if s == nil {
		return "<nil>"
	}
	_, hasVerifier := s.CodeVerifier()
	return fmt.Sprintf("Session{CorrelationID: %s, RedirectURL: %s, DeviceID: %t, Items: %d, ExpiresAt: %s, Verifier: %t}",
		s.CorrelationID, s.RedirectURL, s.DeviceID != "", len(s.Items), s.ExpiresAt.UTC().Format(time.RFC3339), hasVerifier)
}

// sessionWire is the serialized form of a Session.
type sessionWire struct {
	CorrelationID string            `json:"cid"`
	RedirectURL   string            `json:"ru"`
	DeviceID      string            `json:"did,omitempty"`
	Items         map[string]string `json:"it,omitempty"`
	ExpiresAt     int64             `json:"exp"`
	CodeVerifier  string            `json:"cv,omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler. The result contains the
// code verifier in clear text and must only be handed to a StateCodec.
func (s *Session) MarshalBinary() ([]byte, error) {
	const op = "Session.MarshalBinary"
	if s == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, ErrNilParameter)
	}
	b, err := json.Marshal(sessionWire{
		CorrelationID: s.CorrelationID,
		RedirectURL:   s.RedirectURL,
		DeviceID:      s.DeviceID,
		Items:         s.Items,
		ExpiresAt:     s.ExpiresAt.Unix(),
		CodeVerifier:  s.codeVerifier,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Session) UnmarshalBinary(data []byte) error {
	const op = "Session.UnmarshalBinary"
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidState, err)
	}
	if w.CorrelationID == "" {
		return fmt.Errorf("%s: missing correlation id: %w", op, ErrInvalidState)
	}
	*s = Session{
		CorrelationID: w.CorrelationID,
		RedirectURL:   w.RedirectURL,
		DeviceID:      w.DeviceID,
		Items:         w.Items,
		ExpiresAt:     time.Unix(w.ExpiresAt, 0),
		codeVerifier:  w.CodeVerifier,
	}
	return nil
}

// sessionOptions is the set of available options for Session functions
type sessionOptions struct {
	withLifetime      time.Duration
	withItems         map[string]string
	withNowFunc       func() time.Time
	withExpirySkew    time.Duration
	withCorrelationID string
	withRedirectURL   string
}

// sessionDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func sessionDefaults() sessionOptions {
	return sessionOptions{
		withLifetime:   DefaultStateLifetime,
		withNowFunc:    time.Now,
		withExpirySkew: DefaultStateExpirySkew,
	}
}

// getSessionOpts gets the session defaults and applies the opt overrides
// passed in
func getSessionOpts(opt ...Option) sessionOptions {
	opts := sessionDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithItems provides optional caller data for a Session.
func WithItems(items map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withItems = items
		}
	}
}

// WithCorrelationID provides an optional correlation id for:
// Provider.NewSession. By default a random id is generated.
func WithCorrelationID(id string) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withCorrelationID = id
		}
	}
}

// WithRedirectURL provides an optional redirect URL for:
// Provider.NewSession. By default the Config's RedirectURL is used.
func WithRedirectURL(redirectURL string) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withRedirectURL = redirectURL
		}
	}
}

// WithExpirySkew provides an optional expiry skew duration for:
// Session.IsExpired
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withExpirySkew = d
		}
	}
}
