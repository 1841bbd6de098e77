// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"
	"time"

	"github.com/hashicorp/cap-oauth/oauth"
)

// options is the set of available options for the package's functions
type options struct {
	withReplayGuard    ReplayGuard
	withSessionItems   func(*http.Request) map[string]string
	withInsecureCookie bool
	withCookiePath     string
	withCookieMaxAge   time.Duration
	withKeyPrefix      string
	withNowFunc        func() time.Time
}

func getDefaultOptions() options {
	return options{
		withCookiePath:   "/",
		withCookieMaxAge: oauth.DefaultStateLifetime,
		withKeyPrefix:    DefaultReplayKeyPrefix,
		withNowFunc:      time.Now,
	}
}

func getOpts(opt ...oauth.Option) options {
	opts := getDefaultOptions()
	oauth.ApplyOpts(&opts, opt...)
	return opts
}

// WithReplayGuard provides an optional ReplayGuard for: AuthCode
func WithReplayGuard(g ReplayGuard) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withReplayGuard = g
		}
	}
}

// WithSessionItems provides an optional func for: Login. It returns the
// items to attach to each new Session, for example the page to return to.
func WithSessionItems(fn func(*http.Request) map[string]string) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withSessionItems = fn
		}
	}
}

// WithInsecureCookie drops the Secure attribute from correlation cookies,
// for: NewCookieCorrelator. Only use it for plain http development servers.
func WithInsecureCookie() oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withInsecureCookie = true
		}
	}
}

// WithCookiePath provides an optional cookie path for: NewCookieCorrelator
func WithCookiePath(path string) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withCookiePath = path
		}
	}
}

// WithCookieMaxAge provides an optional cookie lifetime for:
// NewCookieCorrelator. It should match the provider's state lifetime.
func WithCookieMaxAge(d time.Duration) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withCookieMaxAge = d
		}
	}
}

// WithKeyPrefix provides an optional key prefix for: NewRedisReplayGuard
func WithKeyPrefix(prefix string) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withKeyPrefix = prefix
		}
	}
}

// WithNow provides an optional func for determining the current time, for:
// NewMemoryReplayGuard
func WithNow(now func() time.Time) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && now != nil {
			o.withNowFunc = now
		}
	}
}
