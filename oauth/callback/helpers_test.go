// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/cap-oauth/oauth"
	"github.com/hashicorp/cap-oauth/protect"
)

var testSecret = bytes.Repeat([]byte("s"), protect.MinSecretLen)

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(s *oauth.Session, t *oauth.Token, id *oauth.Identity, w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login successful: " + id.Subject() + " " + s.Items["return_to"]))
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(s *oauth.Session, r *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
	if e != nil {
		w.WriteHeader(http.StatusInternalServerError)
		j, _ := json.Marshal(&AuthenErrorResponse{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		_, _ = w.Write(j)
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		j, _ := json.Marshal(r)
		_, _ = w.Write(j)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	j, _ := json.Marshal(&AuthenErrorResponse{
		Error: "unknown-callback-error",
	})
	_, _ = w.Write(j)
}

// recordingFailFn returns an ErrorResponseFunc which records what it was
// called with before responding like testFailFn.
func recordingFailFn(s **oauth.Session, r **AuthenErrorResponse, e *error) ErrorResponseFunc {
	return func(gotS *oauth.Session, gotR *AuthenErrorResponse, gotE error, w http.ResponseWriter, req *http.Request) {
		*s, *r, *e = gotS, gotR, gotE
		testFailFn(gotS, gotR, gotE, w, req)
	}
}

func testStandardProfile() oauth.ProviderProfile {
	return oauth.ProviderProfile{
		Name:           "Standard",
		Issuer:         "Standard",
		CallbackPath:   "/callback",
		UserInfoMethod: http.MethodGet,
		ClaimMappings: []oauth.ClaimMapping{
			{ClaimType: oauth.ClaimNameIdentifier, JSONPath: "id"},
			{ClaimType: oauth.ClaimName, JSONPath: "login"},
		},
	}
}

func testDeviceProfile() oauth.ProviderProfile {
	return oauth.ProviderProfile{
		Name:                       "Device ID",
		Issuer:                     "Device ID",
		CallbackPath:               "/callback",
		RequiresDeviceID:           true,
		TokenResponseAlwaysHTTP200: true,
		TokenRequestIncludesState:  true,
		UserInfoMethod:             http.MethodPost,
		UserInfoRoot:               "user",
		ClaimMappings: []oauth.ClaimMapping{
			{ClaimType: oauth.ClaimNameIdentifier, JSONPath: "user_id"},
		},
	}
}

// testApp is a relying party web app serving /login and /callback.
type testApp struct {
	srv        *httptest.Server
	tp         *oauth.TestProvider
	provider   *oauth.Provider
	correlator *CookieCorrelator
	mux        *http.ServeMux
}

func newTestApp(t *testing.T, base oauth.ProviderProfile, eFn ErrorResponseFunc, opt ...oauth.Option) *testApp {
	t.Helper()
	require := require.New(t)
	app := &testApp{mux: http.NewServeMux()}
	app.srv = httptest.NewServer(app.mux)
	t.Cleanup(app.srv.Close)

	app.tp = oauth.StartTestProvider(t)
	cfg, err := oauth.NewConfig("test-client-id", "", app.srv.URL+"/callback", oauth.WithProviderCA(app.tp.CACert()))
	require.NoError(err)
	codec, err := protect.NewSecureCookie(testSecret)
	require.NoError(err)
	app.provider, err = oauth.NewProvider(cfg, app.tp.Profile(base), codec)
	require.NoError(err)
	app.correlator, err = NewCookieCorrelator(base.Name, testSecret, WithInsecureCookie())
	require.NoError(err)

	if eFn == nil {
		eFn = testFailFn
	}
	login, err := Login(app.provider, app.correlator, opt...)
	require.NoError(err)
	cb, err := AuthCode(app.provider, app.correlator, testSuccessFn, eFn, opt...)
	require.NoError(err)
	app.mux.HandleFunc("/login", login)
	app.mux.HandleFunc("/callback", cb)
	return app
}

// browser returns a client which keeps cookies, follows redirects and
// trusts the test provider.
func (a *testApp) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := a.tp.HTTPClient()
	c.Jar = jar
	c.CheckRedirect = nil
	return c
}
