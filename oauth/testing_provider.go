// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/cap-oauth/oauth/internal/strutils"
	sdkHttp "github.com/hashicorp/cap-oauth/sdk/http"
)

// Paths served by a TestProvider.
const (
	TestAuthorizePath = "/oauth/authorize"
	TestTokenPath     = "/oauth/token"
	TestUserInfoPath  = "/user"
)

// TestProvider is a local OAuth 2.0 provider which makes writing tests much
// easier. It verifies PKCE, client credentials and redirect URIs, and can
// behave like a standard provider (GitCode) or a VK ID style one: device_id
// returned with the code and required on the token request, errors reported
// with a 200 status and the user's profile nested in the response.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	expectedAuthCode    string
	allowedRedirectURIs []string
	deviceID            string
	always200           bool
	accessToken         string
	tokenReplyExtra     map[string]interface{}
	tokenRawStatus      int
	tokenRawReply       string
	userInfoMethod      string
	userInfoRoot        string
	replyUserInfo       map[string]interface{}
	userInfoRawStatus   int
	userInfoRawReply    string
	delay               time.Duration

	// challenges maps issued codes to their PKCE challenge. Codes are
	// removed on first use.
	challenges     map[string]string
	tokenRequests  []url.Values
	userInfoCalled int

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider. It's stopped when
// the test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		clientID:         "test-client-id",
		expectedAuthCode: "test-code",
		accessToken:      "test-access-token",
		userInfoMethod:   http.MethodGet,
		replyUserInfo: map[string]interface{}{
			"id":    42,
			"login": "test-user",
			"email": "test-user@example.com",
		},
		challenges: map[string]string{},
		t:          t,
	}

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()
	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns a client which trusts the test provider and doesn't
// follow redirects.
func (p *TestProvider) HTTPClient() *http.Client {
	c, err := sdkHttp.NewClient(p.caCert)
	require.NoError(p.t, err)
	return c
}

// Profile returns a copy of base with its endpoints pointing at the test
// provider, and configures the test provider to behave the way base
// describes. A profile requiring a device id gets "1111" unless SetDeviceID
// was called.
func (p *TestProvider) Profile(base ProviderProfile) ProviderProfile {
	prof := base.Clone()
	prof.AuthorizationEndpoint = p.Addr() + TestAuthorizePath
	prof.TokenEndpoint = p.Addr() + TestTokenPath
	prof.UserInfoEndpoint = p.Addr() + TestUserInfoPath

	p.mu.Lock()
	defer p.mu.Unlock()
	if prof.RequiresDeviceID && p.deviceID == "" {
		p.deviceID = "1111"
	}
	p.always200 = prof.TokenResponseAlwaysHTTP200
	if prof.UserInfoMethod != "" {
		p.userInfoMethod = prof.UserInfoMethod
	}
	p.userInfoRoot = prof.UserInfoRoot
	return prof
}

// SetClientCreds configures the client credentials the token endpoint
// requires. An empty secret means a public client.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the code issued by the authorize endpoint.
// An empty code makes the authorize endpoint deny every request.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetAllowedRedirectURIs configures the redirect URIs accepted. When none are
// configured, any is accepted.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetDeviceID configures the device_id returned with the code and required
// by the token endpoint. Empty disables device ids.
func (p *TestProvider) SetDeviceID(deviceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deviceID = deviceID
}

// SetAlways200 makes the token endpoint report errors with a 200 status.
func (p *TestProvider) SetAlways200(always200 bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.always200 = always200
}

// SetAccessToken configures the access token issued and accepted by the user
// info endpoint.
func (p *TestProvider) SetAccessToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = token
}

// SetTokenReply configures extra fields for successful token responses.
func (p *TestProvider) SetTokenReply(extra map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReplyExtra = extra
}

// SetTokenRawReply makes the token endpoint answer every request with status
// and body, without checking it. A zero status restores normal behavior.
func (p *TestProvider) SetTokenRawReply(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenRawStatus = status
	p.tokenRawReply = body
}

// SetUserInfoMethod configures the method the user info endpoint accepts.
func (p *TestProvider) SetUserInfoMethod(method string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoMethod = method
}

// SetUserInfoRoot nests the user info reply under root. Empty means the
// reply is the document root.
func (p *TestProvider) SetUserInfoRoot(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoRoot = root
}

// SetUserInfoReply configures the user's profile.
func (p *TestProvider) SetUserInfoReply(reply map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserInfo = reply
}

// SetUserInfoRawReply makes the user info endpoint answer every request with
// status and body, without checking it. A zero status restores normal
// behavior.
func (p *TestProvider) SetUserInfoRawReply(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoRawStatus = status
	p.userInfoRawReply = body
}

// SetResponseDelay delays every response, until the request is cancelled.
func (p *TestProvider) SetResponseDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// TokenRequests returns a copy of the form of every request received by the
// token endpoint.
func (p *TestProvider) TokenRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]url.Values, 0, len(p.tokenRequests))
	for _, f := range p.tokenRequests {
		out = append(out, cloneValues(f))
	}
	return out
}

// LastTokenRequest returns the form of the last token request, or nil.
func (p *TestProvider) LastTokenRequest() url.Values {
	reqs := p.TokenRequests()
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

// UserInfoRequests returns the number of requests received by the user info
// endpoint.
func (p *TestProvider) UserInfoRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userInfoCalled
}

// Authorize requests authURL from the test provider, as a browser would, and
// returns the query of the redirect to the callback.
func (p *TestProvider) Authorize(t *testing.T, authURL string) url.Values {
	t.Helper()
	require := require.New(t)
	resp, err := p.HTTPClient().Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(err)
	return loc.Query()
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	redirectURI := qv.Get("redirect_uri")
	if redirectURI == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	v := url.Values{"error": {errorCode}}
	if s := qv.Get("state"); s != "" {
		v.Set("state", s)
	}
	if errorMessage != "" {
		v.Set("error_description", errorMessage)
	}
	http.Redirect(w, req, redirectURI+"?"+v.Encode(), http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) {
	if p.always200 {
		statusCode = http.StatusOK
	}
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	p.writeJSON(w, statusCode, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	delay := p.delay
	p.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch req.URL.Path {
	case TestAuthorizePath:
		p.serveAuthorize(w, req)
	case TestTokenPath:
		p.serveToken(w, req)
	case TestUserInfoPath:
		p.serveUserInfo(w, req)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) serveAuthorize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	qv := req.URL.Query()
	switch {
	case qv.Get("response_type") != "code":
		p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
	case qv.Get("client_id") != p.clientID:
		p.writeAuthErrorResponse(w, req, "unauthorized_client", "unknown client_id")
	case qv.Get("state") == "":
		p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
	case qv.Get("code_challenge") == "":
		p.writeAuthErrorResponse(w, req, "invalid_request", "missing code_challenge parameter")
	case qv.Get("code_challenge_method") != CodeChallengeMethodS256:
		p.writeAuthErrorResponse(w, req, "invalid_request", "unsupported code_challenge_method")
	case len(p.allowedRedirectURIs) > 0 && !strutils.StrListContains(p.allowedRedirectURIs, qv.Get("redirect_uri")):
		w.WriteHeader(http.StatusBadRequest)
	case qv.Get("redirect_uri") == "":
		w.WriteHeader(http.StatusBadRequest)
	case p.expectedAuthCode == "":
		p.writeAuthErrorResponse(w, req, "access_denied", "")
	default:
		p.challenges[p.expectedAuthCode] = qv.Get("code_challenge")
		v := url.Values{
			"code":  {p.expectedAuthCode},
			"state": {qv.Get("state")},
		}
		if p.deviceID != "" {
			v.Set("device_id", p.deviceID)
			v.Set("type", "code_v2")
		}
		http.Redirect(w, req, qv.Get("redirect_uri")+"?"+v.Encode(), http.StatusFound)
	}
}

func (p *TestProvider) serveToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := req.ParseForm(); err != nil {
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "unable to parse form")
		return
	}
	p.tokenRequests = append(p.tokenRequests, cloneValues(req.PostForm))
	if p.tokenRawStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.tokenRawStatus)
		_, _ = w.Write([]byte(p.tokenRawReply))
		return
	}

	form := req.PostForm
	code := form.Get("code")
	challenge, issued := p.challenges[code]
	if issued {
		delete(p.challenges, code)
	}
	switch {
	case form.Get("grant_type") != "authorization_code":
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "bad grant_type")
	case form.Get("client_id") != p.clientID:
		p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "unknown client_id")
	case p.clientSecret != "" && form.Get("client_secret") != p.clientSecret:
		p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "bad client_secret")
	case len(p.allowedRedirectURIs) > 0 && !strutils.StrListContains(p.allowedRedirectURIs, form.Get("redirect_uri")):
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
	case !issued:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
	case CodeChallenge(form.Get("code_verifier")) != challenge:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match code_challenge")
	case p.deviceID != "" && form.Get("device_id") != p.deviceID:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "device_id is missing or invalid")
	default:
		reply := map[string]interface{}{
			"access_token":  p.accessToken,
			"refresh_token": "test-refresh-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
		}
		for k, v := range p.tokenReplyExtra {
			reply[k] = v
		}
		p.writeJSON(w, http.StatusOK, reply)
	}
}

func (p *TestProvider) serveUserInfo(w http.ResponseWriter, req *http.Request) {
	p.userInfoCalled++
	if p.userInfoRawStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.userInfoRawStatus)
		_, _ = w.Write([]byte(p.userInfoRawReply))
		return
	}
	if req.Method != p.userInfoMethod {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var token string
	switch req.Method {
	case http.MethodPost:
		if req.FormValue("client_id") != p.clientID {
			p.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_client"})
			return
		}
		token = req.FormValue("access_token")
	default:
		token = strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" || token != p.accessToken {
		p.writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_token",
			"error_description": "access token is missing or invalid",
		})
		return
	}
	var reply interface{} = p.replyUserInfo
	if p.userInfoRoot != "" {
		reply = map[string]interface{}{p.userInfoRoot: p.replyUserInfo}
	}
	p.writeJSON(w, http.StatusOK, reply)
}
