// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"golang.org/x/oauth2"
)

// CodeChallengeMethodS256 is the only PKCE challenge method used.
const CodeChallengeMethodS256 = "S256"

// newCodeVerifier returns a verifier made from 32 random bytes, encoded as
// 43 characters of unpadded base64url (RFC 7636 section 4.1).
func newCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// CodeChallenge returns the S256 challenge for a verifier:
// BASE64URL-ENCODE(SHA256(ASCII(verifier))).
func CodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
