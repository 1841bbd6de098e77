// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// AccessToken is an oauth access_token.
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token.
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token.
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token.
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token.
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token.
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token.
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token.
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// expirySkew is subtracted from a token's lifetime when checking if it's
// expired.
const expirySkew = 10 * time.Second

// Token is a successful token endpoint response.
type Token struct {
	AccessToken  AccessToken
	RefreshToken RefreshToken
	TokenType    string

	// ExpiresIn is the lifetime in seconds reported by the provider, zero
	// when not reported.
	ExpiresIn int64

	// Expiry is computed from ExpiresIn when the response is received. It's
	// the zero time when the provider didn't report a lifetime.
	Expiry time.Time

	raw map[string]interface{}
}

// Extra returns a field of the raw token response, for example VK ID's
// "user_id" or "id_token". It returns nil when the field is absent.
func (t *Token) Extra(key string) interface{} {
	if t == nil || t.raw == nil {
		return nil
	}
	return t.raw[key]
}

// Expired will return true if the token is expired. Implemented using the
// same approach as oauth2.Token.Expired. A token without an expiry never
// expires.
func (t *Token) Expired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return t.Expiry.Round(0).Before(time.Now().Add(expirySkew))
}

// Valid will ensure that the access_token is not empty and is not expired.
func (t *Token) Valid() bool {
	if t == nil {
		return false
	}
	if t.AccessToken == "" {
		return false
	}
	return !t.Expired()
}

// OAuth2Token converts the token to an *oauth2.Token, so it can be used with
// an oauth2.TokenSource or oauth2.Transport. The raw response is available
// via its Extra method.
func (t *Token) OAuth2Token() *oauth2.Token {
	if t == nil {
		return nil
	}
	tk := &oauth2.Token{
		AccessToken:  string(t.AccessToken),
		RefreshToken: string(t.RefreshToken),
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.raw != nil {
		tk = tk.WithExtra(t.raw)
	}
	return tk
}
