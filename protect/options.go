// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package protect

import (
	"time"

	"github.com/hashicorp/cap-oauth/oauth"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// options = how options are represented
type options struct {
	withMaxAge          time.Duration
	withName            string
	withPreviousSecrets [][]byte
}

func getDefaultOptions() options {
	return options{
		withMaxAge: oauth.DefaultStateLifetime,
		withName:   DefaultName,
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithMaxAge provides an optional max age for SecureCookie values. It should
// not be shorter than the provider's state lifetime. Zero disables the check.
func WithMaxAge(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withMaxAge = d
		}
	}
}

// WithName provides an optional name bound into every SecureCookie value, so
// values protected for one purpose can't be used for another.
func WithName(name string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withName = name
		}
	}
}

// WithPreviousSecrets provides secrets which are still accepted by
// Unprotect, but never used by Protect.
func WithPreviousSecrets(secrets ...[]byte) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withPreviousSecrets = append(o.withPreviousSecrets, secrets...)
		}
	}
}
