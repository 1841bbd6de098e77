// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"fmt"

	"github.com/hashicorp/cap-oauth/sdk/id"
)

// DefaultIDLength is the encoded length of the random part of ids returned
// by NewID.
var DefaultIDLength = id.EncodedLen

// NewID generates a random, URL safe id with an optional prefix. It's used
// for correlation ids.
func NewID(prefix string) (string, error) {
	const op = "NewID"
	v, err := id.New(prefix)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrIDGeneratorFailed, err)
	}
	return v, nil
}
