// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"

	"github.com/hashicorp/cap-oauth/oauth"
)

// SuccessResponseFunc is used by AuthCode to create a http response when the
// callback is successful.
//
// The session is the login attempt's session (its Items carry any data
// attached when the attempt started). The token is the result of the token
// exchange and the identity is the user's mapped profile.  The function
// should use the http.ResponseWriter to send back whatever content (headers,
// html, JSON, cookies, etc) it wishes to the client that originated the flow.
type SuccessResponseFunc func(s *oauth.Session, t *oauth.Token, id *oauth.Identity, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by AuthCode to create a http response when the
// callback fails.
//
// The session is nil when the failure happened before it could be recovered
// from the state. respErr is set when the provider reported an error in its
// authentication response; otherwise e is the error raised while processing
// the request.
type ErrorResponseFunc func(s *oauth.Session, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://www.rfc-editor.org/rfc/rfc6749#section-4.1.2.1
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}
