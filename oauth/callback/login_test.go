// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/cap-oauth/oauth"
	"github.com/hashicorp/cap-oauth/protect"
)

func TestLogin(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, testStandardProfile(), nil)

	t.Run("nil-provider", func(t *testing.T) {
		assert := assert.New(t)
		got, err := Login(nil, app.correlator)
		assert.ErrorIs(err, oauth.ErrInvalidParameter)
		assert.Nil(got)
	})
	t.Run("nil-correlator", func(t *testing.T) {
		assert := assert.New(t)
		got, err := Login(app.provider, nil)
		assert.ErrorIs(err, oauth.ErrInvalidParameter)
		assert.Nil(got)
	})
	t.Run("redirect", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		login, err := Login(app.provider, app.correlator, WithSessionItems(returnTo))
		require.NoError(err)

		rec := httptest.NewRecorder()
		login(rec, httptest.NewRequest(http.MethodGet, "/login?return_to=/settings", nil))
		require.Equal(http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(err)
		assert.True(strings.HasPrefix(loc.String(), app.tp.Addr()+oauth.TestAuthorizePath))
		q := loc.Query()
		assert.Equal("code", q.Get("response_type"))
		assert.Equal("test-client-id", q.Get("client_id"))
		assert.Equal(app.srv.URL+"/callback", q.Get("redirect_uri"))
		assert.Equal(oauth.CodeChallengeMethodS256, q.Get("code_challenge_method"))
		assert.NotEmpty(q.Get("code_challenge"))
		assert.NotContains(loc.RawQuery, "code_verifier")

		cookies := rec.Result().Cookies()
		require.Len(cookies, 1)
		c := cookies[0]
		assert.Equal(app.correlator.Name(), c.Name)
		assert.True(c.HttpOnly)
		assert.Equal(http.SameSiteLaxMode, c.SameSite)

		// the state carries the correlation id issued in the cookie
		codec, err := protect.NewSecureCookie(testSecret)
		require.NoError(err)
		s, err := codec.Unprotect(q.Get("state"))
		require.NoError(err)
		assert.Equal("/settings", s.Items["return_to"])
		req := httptest.NewRequest(http.MethodGet, "/callback", nil)
		req.AddCookie(c)
		cid, err := app.correlator.Expected(httptest.NewRecorder(), req)
		require.NoError(err)
		assert.Equal(cid, s.CorrelationID)
	})
	t.Run("unique-attempts", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		login, err := Login(app.provider, app.correlator)
		require.NoError(err)
		states := map[string]struct{}{}
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			login(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
			loc, err := url.Parse(rec.Header().Get("Location"))
			require.NoError(err)
			states[loc.Query().Get("state")] = struct{}{}
		}
		assert.Len(states, 3)
	})
}
