// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import "net/url"

const redacted = "[REDACTED]"

// sensitiveParams are never logged.
var sensitiveParams = []string{
	"code",
	"state",
	"access_token",
	"refresh_token",
	"id_token",
	"code_verifier",
	"device_id",
	"client_secret",
}

// redactValues returns a copy of v with every sensitive parameter replaced,
// so it can be logged.
func redactValues(v url.Values) url.Values {
	out := cloneValues(v)
	for _, k := range sensitiveParams {
		if _, ok := out[k]; ok {
			out[k] = []string{redacted}
		}
	}
	return out
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
