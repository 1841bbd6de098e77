// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package protect provides oauth.StateCodec implementations. Both encrypt and
authenticate a Session so it can travel through the user agent as the
"state" parameter without revealing its PKCE verifier.

SecureCookie uses gorilla/securecookie (AES-256 + HMAC-SHA256, with a
timestamp checked against a max age). JWE produces a compact JWE using
direct encryption with A256GCM. Keys for both are derived from one secret
with HKDF, and previous secrets can be supplied for key rotation.

	codec, err := protect.NewSecureCookie(secret)
	if err != nil {
		// handle error
	}
	p, err := oauth.NewProvider(cfg, profile, codec)
*/
package protect
