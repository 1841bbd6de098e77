// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package oauth provides a relying party implementation of the OAuth 2.0
// Authorization Code flow with PKCE (RFC 6749, RFC 7636) for providers that
// expose plain OAuth 2.0 endpoints rather than OpenID Connect discovery.
//
// A Provider is configured with a Config (client credentials and ambient
// settings), a ProviderProfile (endpoints, scopes, claim mappings and the
// provider's protocol quirks) and a StateCodec which protects the Session
// round-tripped through the "state" parameter. One login attempt is:
//
//	s, _ := p.NewSession()
//	authURL, _ := p.AuthURL(ctx, s)             // redirect the user agent
//	res, _ := p.ValidateCallback(ctx, query, id) // on the redirect back
//	tk, _ := p.Exchange(ctx, res.Session, res.Code)
//	identity, _ := p.UserInfo(ctx, tk)
//
// See the callback package for http.HandlerFuncs which wire these steps
// together, and the providers directory for ready made profiles.
package oauth
