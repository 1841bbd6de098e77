// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ApplyOpts(t *testing.T) {
	t.Parallel()
	// ApplyOpts testing is covered by other tests but we do have just more
	// more test to add here.
	// Let's make sure we don't panic on nil options
	anyOpts := struct {
		Opts []interface{}
	}{
		Opts: nil,
	}
	ApplyOpts(anyOpts, nil)
}

func Test_WithNow(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	fixed := time.Date(2020, 11, 1, 0, 0, 0, 0, time.UTC)
	testNow := func() time.Time {
		return fixed
	}
	opts := getConfigOpts(WithNow(testNow))
	assert.NotNil(opts.withNowFunc)
	assert.Equal(fixed, opts.withNowFunc())

	sOpts := getSessionOpts(WithNow(testNow))
	assert.NotNil(sOpts.withNowFunc)

	// a nil func leaves the default in place
	opts = getConfigOpts(WithNow(nil))
	assert.Nil(opts.withNowFunc)
}

func Test_WithScopes(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	opts := getConfigOpts(WithScopes("alice", "bob"))
	testOpts := configDefaults()
	testOpts.withScopes = []string{"alice", "bob"}
	assert.Equal(opts, testOpts)

	aOpts := getAuthURLOpts(WithScopes("eve"), WithScopes("mallory"))
	assert.Equal([]string{"eve", "mallory"}, aOpts.withScopes)
}

func Test_WithStateLifetime(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	opts := getConfigOpts(WithStateLifetime(time.Minute))
	assert.Equal(time.Minute, opts.withStateLifetime)

	sOpts := getSessionOpts(WithStateLifetime(2 * time.Minute))
	assert.Equal(2*time.Minute, sOpts.withLifetime)
}
