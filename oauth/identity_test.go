// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestMapClaims(t *testing.T) {
	t.Parallel()
	payload := gjson.Parse(`{
		"id": 42,
		"big": 12345678901234567890,
		"login": "ivan",
		"email": "",
		"bio": null,
		"verified": false,
		"nested": {"name": "Ivan"},
		"tags": ["a", "b"]
	}`)
	mappings := []ClaimMapping{
		{ClaimType: ClaimNameIdentifier, JSONPath: "id"},
		{ClaimType: "big", JSONPath: "big"},
		{ClaimType: ClaimName, JSONPath: "login"},
		{ClaimType: ClaimEmail, JSONPath: "email"},
		{ClaimType: "bio", JSONPath: "bio"},
		{ClaimType: "verified", JSONPath: "verified"},
		{ClaimType: ClaimGivenName, JSONPath: "nested.name"},
		{ClaimType: "missing", JSONPath: "missing"},
		{ClaimType: "tags", JSONPath: "tags"},
	}
	got := MapClaims(payload, mappings, "Test")
	want := []Claim{
		{Type: ClaimNameIdentifier, Value: "42", Issuer: "Test"},
		{Type: "big", Value: "12345678901234567890", Issuer: "Test"},
		{Type: ClaimName, Value: "ivan", Issuer: "Test"},
		{Type: "verified", Value: "false", Issuer: "Test"},
		{Type: ClaimGivenName, Value: "Ivan", Issuer: "Test"},
		{Type: "tags", Value: `["a", "b"]`, Issuer: "Test"},
	}
	assert.Equal(t, want, got)
}

func TestIdentity_Value(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	id := &Identity{Claims: []Claim{
		{Type: ClaimNameIdentifier, Value: "42"},
		{Type: ClaimName, Value: "first"},
		{Type: ClaimName, Value: "second"},
	}}
	v, ok := id.Value(ClaimName)
	assert.True(ok)
	assert.Equal("first", v)
	_, ok = id.Value(ClaimEmail)
	assert.False(ok)
	assert.Equal("42", id.Subject())

	var nilID *Identity
	assert.Equal("", nilID.Subject())
}
