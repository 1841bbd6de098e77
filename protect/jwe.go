// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package protect

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"

	"github.com/hashicorp/cap-oauth/oauth"
)

// JWE is an oauth.StateCodec producing compact JWEs, using direct encryption
// with A256GCM.
type JWE struct {
	encrypter jose.Encrypter
	keys      [][]byte
}

var _ oauth.StateCodec = (*JWE)(nil)

// NewJWE creates a JWE with a key derived from secret, which must be at least
// MinSecretLen bytes.
//
// Supported options: WithPreviousSecrets
func NewJWE(secret []byte, opt ...Option) (*JWE, error) {
	const op = "protect.NewJWE"
	opts := getOpts(opt...)
	j := &JWE{}
	for _, s := range append([][]byte{secret}, opts.withPreviousSecrets...) {
		k, err := DeriveKey(s, infoJWEKey, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		j.keys = append(j.keys, k)
	}
	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: j.keys[0]}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create encrypter: %w", op, err)
	}
	j.encrypter = enc
	return j, nil
}

// Protect implements oauth.StateCodec.
func (j *JWE) Protect(s *oauth.Session) (string, error) {
	const op = "JWE.Protect"
	if s == nil {
		return "", fmt.Errorf("%s: session is nil: %w", op, oauth.ErrNilParameter)
	}
	b, err := s.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	obj, err := j.encrypter.Encrypt(b)
	if err != nil {
		return "", fmt.Errorf("%s: unable to encrypt session: %w", op, err)
	}
	v, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("%s: unable to serialize session: %w", op, err)
	}
	return v, nil
}

// Unprotect implements oauth.StateCodec. Values which aren't canonically
// encoded are rejected, so any modification of a value is detected.
func (j *JWE) Unprotect(state string) (*oauth.Session, error) {
	const op = "JWE.Unprotect"
	if state == "" {
		return nil, fmt.Errorf("%s: state is empty: %w", op, oauth.ErrInvalidState)
	}
	segments := strings.Split(state, ".")
	if len(segments) != 5 || strings.ContainsAny(state, "\r\n") {
		return nil, fmt.Errorf("%s: state is not a compact JWE: %w", op, oauth.ErrInvalidState)
	}
	for _, seg := range segments {
		if _, err := base64.RawURLEncoding.Strict().DecodeString(seg); err != nil {
			return nil, fmt.Errorf("%s: state is not canonically encoded: %w", op, oauth.ErrInvalidState)
		}
	}
	obj, err := jose.ParseEncrypted(state, []jose.KeyAlgorithm{jose.DIRECT}, []jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, oauth.ErrInvalidState, err)
	}
	var (
		b      []byte
		decErr error
	)
	for _, k := range j.keys {
		if b, decErr = obj.Decrypt(k); decErr == nil {
			break
		}
	}
	if decErr != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, oauth.ErrInvalidState, decErr)
	}
	s := new(oauth.Session)
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}
