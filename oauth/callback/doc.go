// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides handlers (in the form of
http.HandlerFunc) for starting an OAuth 2.0 authorization code flow and for
handling the provider's redirect back to the callback endpoint.

Login binds each attempt to the user agent with a Correlator (by default a
signed cookie) and redirects to the provider. AuthCode validates the
callback, exchanges the code and fetches the user's profile before calling a
SuccessResponseFunc or ErrorResponseFunc. An optional ReplayGuard rejects a
second use of the same login attempt.
*/
package callback
