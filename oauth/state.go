// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import "time"

// StateCodec protects a Session so it can travel through the user agent as
// the "state" parameter. Implementations must provide authenticated
// encryption: the verifier inside must stay confidential and any
// modification of the protected value must make Unprotect fail.
//
// Unprotect errors should wrap ErrInvalidState. Implementations must be safe
// for concurrent use. See the protect package.
type StateCodec interface {
	Protect(s *Session) (string, error)
	Unprotect(state string) (*Session, error)
}

// MaxAger is implemented by StateCodecs which reject protected values older
// than a max age. NewProvider warns when the max age is shorter than the
// config's state lifetime.
type MaxAger interface {
	MaxAge() time.Duration
}
