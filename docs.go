// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// cap-oauth provides OAuth 2.0 authorization code (with PKCE) logins for
// providers which don't offer OIDC: GitCode and VK ID.
//
// The oauth package is the provider independent flow: building the
// authorization URL, validating the callback, exchanging the code and
// mapping the user's profile to claims. The providers packages describe each
// provider's endpoints and quirks. The protect package protects the state
// sent through the user agent, and oauth/callback provides ready to use
// http handlers.
package cap
