// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/base64"
	"fmt"
)

// testCodec is a StateCodec which only encodes. It's only suitable for
// tests.
type testCodec struct{}

func (testCodec) Protect(s *Session) (string, error) {
	b, err := s.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (testCodec) Unprotect(state string) (*Session, error) {
	b, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return nil, fmt.Errorf("testCodec: %w", ErrInvalidState)
	}
	s := new(Session)
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return s, nil
}
