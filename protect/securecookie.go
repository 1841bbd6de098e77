// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package protect

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/hashicorp/cap-oauth/oauth"
)

// DefaultName is the default name bound into SecureCookie values.
const DefaultName = "oauth_state"

// SecureCookie is an oauth.StateCodec using gorilla/securecookie: values are
// AES-256 encrypted, timestamped and authenticated with HMAC-SHA256.
type SecureCookie struct {
	name   string
	maxAge time.Duration
	codecs []securecookie.Codec
}

var (
	_ oauth.StateCodec = (*SecureCookie)(nil)
	_ oauth.MaxAger    = (*SecureCookie)(nil)
)

// NewSecureCookie creates a SecureCookie with keys derived from secret, which
// must be at least MinSecretLen bytes.
//
// Supported options: WithMaxAge, WithName, WithPreviousSecrets
func NewSecureCookie(secret []byte, opt ...Option) (*SecureCookie, error) {
	const op = "protect.NewSecureCookie"
	opts := getOpts(opt...)
	if opts.withName == "" {
		return nil, fmt.Errorf("%s: name is empty: %w", op, oauth.ErrInvalidParameter)
	}
	if opts.withMaxAge < 0 {
		return nil, fmt.Errorf("%s: max age is negative: %w", op, oauth.ErrInvalidParameter)
	}
	c := &SecureCookie{name: opts.withName, maxAge: opts.withMaxAge}
	for _, s := range append([][]byte{secret}, opts.withPreviousSecrets...) {
		sc, err := newSecureCookieCodec(s, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.codecs = append(c.codecs, sc)
	}
	return c, nil
}

func newSecureCookieCodec(secret []byte, opts options) (*securecookie.SecureCookie, error) {
	hashKey, err := DeriveKey(secret, infoHashKey, 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := DeriveKey(secret, infoBlockKey, 32)
	if err != nil {
		return nil, err
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.NopEncoder{})
	sc.MaxAge(int(opts.withMaxAge.Seconds()))
	return sc, nil
}

// MaxAge implements oauth.MaxAger. Zero means values never expire.
func (c *SecureCookie) MaxAge() time.Duration {
	return c.maxAge
}

// Protect implements oauth.StateCodec.
func (c *SecureCookie) Protect(s *oauth.Session) (string, error) {
	const op = "SecureCookie.Protect"
	if s == nil {
		return "", fmt.Errorf("%s: session is nil: %w", op, oauth.ErrNilParameter)
	}
	b, err := s.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	v, err := c.codecs[0].Encode(c.name, b)
	if err != nil {
		return "", fmt.Errorf("%s: unable to encode session: %w", op, err)
	}
	return v, nil
}

// Unprotect implements oauth.StateCodec. Values which aren't canonically
// encoded are rejected, so any modification of a value is detected.
func (c *SecureCookie) Unprotect(state string) (*oauth.Session, error) {
	const op = "SecureCookie.Unprotect"
	if state == "" {
		return nil, fmt.Errorf("%s: state is empty: %w", op, oauth.ErrInvalidState)
	}
	if _, err := base64.URLEncoding.Strict().DecodeString(state); err != nil || strings.ContainsAny(state, "\r\n") {
		return nil, fmt.Errorf("%s: state is not canonically encoded: %w", op, oauth.ErrInvalidState)
	}
	var b []byte
	if err := securecookie.DecodeMulti(c.name, state, &b, c.codecs...); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, oauth.ErrInvalidState, err)
	}
	s := new(oauth.Session)
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}
