// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package protect

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/cap-oauth/oauth"
)

func testSecret(b byte) []byte {
	return bytes.Repeat([]byte{b}, MinSecretLen)
}

func testSession(t *testing.T) *oauth.Session {
	t.Helper()
	s, err := oauth.NewSession("C1", "https://app/callback",
		oauth.WithItems(map[string]string{"return_to": "/home"}))
	require.NoError(t, err)
	return s
}

func testCodecs(t *testing.T) map[string]oauth.StateCodec {
	t.Helper()
	sc, err := NewSecureCookie(testSecret('a'))
	require.NoError(t, err)
	j, err := NewJWE(testSecret('a'))
	require.NoError(t, err)
	return map[string]oauth.StateCodec{
		"securecookie": sc,
		"jwe":          j,
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()
	for name, codec := range testCodecs(t) {
		codec := codec
		t.Run(name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			s := testSession(t)
			s.DeviceID = "1111"

			state, err := codec.Protect(s)
			require.NoError(err)
			assert.NotContains(state, "C1")
			assert.NotContains(state, "callback")

			got, err := codec.Unprotect(state)
			require.NoError(err)
			assert.Equal(s.CorrelationID, got.CorrelationID)
			assert.Equal(s.RedirectURL, got.RedirectURL)
			assert.Equal(s.DeviceID, got.DeviceID)
			assert.Equal(s.Items, got.Items)
			assert.Equal(s.ExpiresAt.Unix(), got.ExpiresAt.Unix())
			_, ok := got.CodeVerifier()
			assert.False(ok)
		})
	}
}

func TestCodecs_BitFlips(t *testing.T) {
	t.Parallel()
	for name, codec := range testCodecs(t) {
		codec := codec
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			state, err := codec.Protect(testSession(t))
			require.NoError(err)
			for i := 0; i < len(state); i++ {
				for bit := 0; bit < 8; bit++ {
					b := []byte(state)
					b[i] ^= 1 << bit
					_, err := codec.Unprotect(string(b))
					require.Errorf(err, "flip of bit %d in byte %d was accepted", bit, i)
					require.ErrorIs(err, oauth.ErrInvalidState)
				}
			}
		})
	}
}

func TestCodecs_WrongKey(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	sc, err := NewSecureCookie(testSecret('a'))
	require.NoError(err)
	otherSC, err := NewSecureCookie(testSecret('b'))
	require.NoError(err)
	state, err := sc.Protect(testSession(t))
	require.NoError(err)
	_, err = otherSC.Unprotect(state)
	assert.ErrorIs(err, oauth.ErrInvalidState)

	j, err := NewJWE(testSecret('a'))
	require.NoError(err)
	otherJ, err := NewJWE(testSecret('b'))
	require.NoError(err)
	state, err = j.Protect(testSession(t))
	require.NoError(err)
	_, err = otherJ.Unprotect(state)
	assert.ErrorIs(err, oauth.ErrInvalidState)
}

func TestCodecs_PreviousSecrets(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	oldSC, err := NewSecureCookie(testSecret('a'))
	require.NoError(err)
	newSC, err := NewSecureCookie(testSecret('b'), WithPreviousSecrets(testSecret('a')))
	require.NoError(err)
	state, err := oldSC.Protect(testSession(t))
	require.NoError(err)
	got, err := newSC.Unprotect(state)
	require.NoError(err)
	assert.Equal("C1", got.CorrelationID)

	oldJ, err := NewJWE(testSecret('a'))
	require.NoError(err)
	newJ, err := NewJWE(testSecret('b'), WithPreviousSecrets(testSecret('a')))
	require.NoError(err)
	state, err = oldJ.Protect(testSession(t))
	require.NoError(err)
	got, err = newJ.Unprotect(state)
	require.NoError(err)
	assert.Equal("C1", got.CorrelationID)
}

func TestCodecs_Invalid(t *testing.T) {
	t.Parallel()
	for name, codec := range testCodecs(t) {
		codec := codec
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			for _, in := range []string{"", "not-a-state", "a.b.c.d.e", "===="} {
				_, err := codec.Unprotect(in)
				assert.ErrorIsf(err, oauth.ErrInvalidState, "input %q", in)
			}
			_, err := codec.Protect(nil)
			assert.ErrorIs(err, oauth.ErrNilParameter)
		})
	}
}

func TestNewSecureCookie(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		secret  []byte
		opts    []Option
		wantErr error
	}{
		{name: "valid", secret: testSecret('a')},
		{name: "short-secret", secret: []byte("too short"), wantErr: oauth.ErrInvalidParameter},
		{name: "short-previous", secret: testSecret('a'), opts: []Option{WithPreviousSecrets([]byte("x"))}, wantErr: oauth.ErrInvalidParameter},
		{name: "empty-name", secret: testSecret('a'), opts: []Option{WithName("")}, wantErr: oauth.ErrInvalidParameter},
		{name: "negative-max-age", secret: testSecret('a'), opts: []Option{WithMaxAge(-time.Second)}, wantErr: oauth.ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewSecureCookie(tt.secret, tt.opts...)
			if tt.wantErr != nil {
				require.Error(err)
				assert.ErrorIs(err, tt.wantErr)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func TestSecureCookie_Name(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	a, err := NewSecureCookie(testSecret('a'), WithName("gitcode"))
	require.NoError(err)
	b, err := NewSecureCookie(testSecret('a'), WithName("vkid"))
	require.NoError(err)
	state, err := a.Protect(testSession(t))
	require.NoError(err)
	_, err = b.Unprotect(state)
	assert.ErrorIs(err, oauth.ErrInvalidState)
}

func TestDeriveKey(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	k1, err := DeriveKey(testSecret('a'), infoHashKey, 32)
	require.NoError(err)
	assert.Len(k1, 32)
	k2, err := DeriveKey(testSecret('a'), infoBlockKey, 32)
	require.NoError(err)
	assert.NotEqual(k1, k2)
	again, err := DeriveKey(testSecret('a'), infoHashKey, 32)
	require.NoError(err)
	assert.Equal(k1, again)

	_, err = DeriveKey(nil, infoHashKey, 32)
	assert.ErrorIs(err, oauth.ErrInvalidParameter)
}

func TestGetOpts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	opts := getOpts()
	assert.Equal(getDefaultOptions(), opts)
	assert.Equal(oauth.DefaultStateLifetime, opts.withMaxAge)
	assert.Equal(DefaultName, opts.withName)

	opts = getOpts(WithMaxAge(time.Minute), WithName("n"), WithPreviousSecrets([]byte("a"), []byte("b")))
	assert.Equal(time.Minute, opts.withMaxAge)
	assert.Equal("n", opts.withName)
	assert.Equal([][]byte{[]byte("a"), []byte("b")}, opts.withPreviousSecrets)
}

func TestSecureCookie_MaxAge(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	sc, err := NewSecureCookie(testSecret('a'))
	require.NoError(err)
	assert.Equal(oauth.DefaultStateLifetime, sc.MaxAge())

	sc, err = NewSecureCookie(testSecret('a'), WithMaxAge(time.Hour))
	require.NoError(err)
	assert.Equal(time.Hour, sc.MaxAge())

	var _ oauth.MaxAger = sc
}
