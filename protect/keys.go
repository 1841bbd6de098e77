// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package protect

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/hashicorp/cap-oauth/oauth"
)

// MinSecretLen is the minimum length of a secret.
const MinSecretLen = 32

// HKDF info strings. Each derived key has its own.
const (
	infoHashKey  = "cap-oauth state hash key"
	infoBlockKey = "cap-oauth state block key"
	infoJWEKey   = "cap-oauth state jwe key"
)

// DeriveKey derives a key of size bytes from secret with HKDF-SHA256.
// Different info values produce independent keys.
func DeriveKey(secret []byte, info string, size int) ([]byte, error) {
	const op = "protect.DeriveKey"
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("%s: secret is shorter than %d bytes: %w", op, MinSecretLen, oauth.ErrInvalidParameter)
	}
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return key, nil
}
