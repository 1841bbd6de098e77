// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Well known claim types. Provider specific claims use URNs, for example
// "urn:gitcode:avatar_url".
const (
	ClaimNameIdentifier = "sub"
	ClaimName           = "name"
	ClaimEmail          = "email"
	ClaimGivenName      = "given_name"
	ClaimSurname        = "family_name"
	ClaimGender         = "gender"
	ClaimDateOfBirth    = "birthdate"
)

// Claim is one attribute of an authenticated user.
type Claim struct {
	Type   string
	Value  string
	Issuer string
}

// Identity is the normalized result of a login: the claims mapped from the
// provider's user profile, in mapping order.
type Identity struct {
	// Provider is the name of the provider which authenticated the user.
	Provider string

	Claims []Claim

	// Raw is the profile payload the claims were mapped from.
	Raw json.RawMessage
}

// Value returns the value of the first claim of claimType.
func (i *Identity) Value(claimType string) (string, bool) {
	if i == nil {
		return "", false
	}
	for _, c := range i.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

// Subject returns the ClaimNameIdentifier value, or "" when there isn't one.
func (i *Identity) Subject() string {
	v, _ := i.Value(ClaimNameIdentifier)
	return v
}

// MapClaims evaluates mappings against payload. Each mapping produces at
// most one claim; it produces none when its path is missing, null or renders
// as an empty string. Numbers and booleans are rendered in their JSON form.
func MapClaims(payload gjson.Result, mappings []ClaimMapping, issuer string) []Claim {
	claims := make([]Claim, 0, len(mappings))
	for _, m := range mappings {
		r := payload.Get(m.JSONPath)
		if !r.Exists() || r.Type == gjson.Null {
			continue
		}
		var v string
		switch r.Type {
		case gjson.Number:
			v = r.Raw
		default:
			v = r.String()
		}
		if v == "" {
			continue
		}
		claims = append(claims, Claim{Type: m.ClaimType, Value: v, Issuer: issuer})
	}
	return claims
}
