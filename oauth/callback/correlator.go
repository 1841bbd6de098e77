// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"

	"github.com/hashicorp/cap-oauth/oauth"
	"github.com/hashicorp/cap-oauth/protect"
)

// Correlator binds a login attempt to the user agent which started it.
// Issue is called by Login and returns the correlation id for a new attempt.
// Expected is called by AuthCode and returns the id issued to the same user
// agent; it should also forget it, so it can only be used once.
type Correlator interface {
	Issue(w http.ResponseWriter, req *http.Request) (string, error)
	Expected(w http.ResponseWriter, req *http.Request) (string, error)
}

// CookieCorrelatorPrefix prefixes the name of every correlation cookie.
const CookieCorrelatorPrefix = "oauth_correlation_"

// HKDF info for the correlation cookie keys.
const (
	infoCookieHashKey  = "cap-oauth correlation hash key"
	infoCookieBlockKey = "cap-oauth correlation block key"
)

// CookieCorrelator is a Correlator which keeps the correlation id in an
// encrypted and signed, HttpOnly, SameSite=Lax cookie.
type CookieCorrelator struct {
	name   string
	path   string
	maxAge int
	secure bool
	codec  *securecookie.SecureCookie
}

var _ Correlator = (*CookieCorrelator)(nil)

// NewCookieCorrelator creates a CookieCorrelator for the named provider, so
// logins with different providers don't share a cookie. The secret must be
// at least protect.MinSecretLen bytes.
//
// Supported options: WithInsecureCookie, WithCookiePath, WithCookieMaxAge
func NewCookieCorrelator(providerName string, secret []byte, opt ...oauth.Option) (*CookieCorrelator, error) {
	const op = "callback.NewCookieCorrelator"
	if providerName == "" {
		return nil, fmt.Errorf("%s: provider name is empty: %w", op, oauth.ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	if opts.withCookieMaxAge <= 0 {
		return nil, fmt.Errorf("%s: cookie max age not greater than zero: %w", op, oauth.ErrInvalidParameter)
	}
	hashKey, err := protect.DeriveKey(secret, infoCookieHashKey, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	blockKey, err := protect.DeriveKey(secret, infoCookieBlockKey, 32)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	maxAge := int(opts.withCookieMaxAge.Seconds())
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.NopEncoder{})
	codec.MaxAge(maxAge)
	return &CookieCorrelator{
		name:   CookieCorrelatorPrefix + cookieSafe(providerName),
		path:   opts.withCookiePath,
		maxAge: maxAge,
		secure: !opts.withInsecureCookie,
		codec:  codec,
	}, nil
}

// Name returns the cookie's name.
func (c *CookieCorrelator) Name() string {
	return c.name
}

// Issue implements Correlator. It sets the correlation cookie.
func (c *CookieCorrelator) Issue(w http.ResponseWriter, _ *http.Request) (string, error) {
	const op = "CookieCorrelator.Issue"
	id, err := oauth.NewID("c")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	v, err := c.codec.Encode(c.name, []byte(id))
	if err != nil {
		return "", fmt.Errorf("%s: unable to encode cookie: %w", op, err)
	}
	http.SetCookie(w, c.cookie(v, c.maxAge))
	return id, nil
}

// Expected implements Correlator. The cookie is always cleared.
func (c *CookieCorrelator) Expected(w http.ResponseWriter, req *http.Request) (string, error) {
	const op = "CookieCorrelator.Expected"
	cookie, err := req.Cookie(c.name)
	if err != nil {
		return "", fmt.Errorf("%s: correlation cookie not found: %w", op, oauth.ErrCorrelationMismatch)
	}
	http.SetCookie(w, c.cookie("", -1))
	var id []byte
	if err := c.codec.Decode(c.name, cookie.Value, &id); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, oauth.ErrCorrelationMismatch, err)
	}
	return string(id), nil
}

func (c *CookieCorrelator) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     c.path,
		MaxAge:   maxAge,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// cookieSafe lower cases name and replaces everything but letters, digits,
// '-' and '_'.
func cookieSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
}
