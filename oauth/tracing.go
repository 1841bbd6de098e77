// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the package's tracer.
const TracerName = "github.com/hashicorp/cap-oauth/oauth"

// Span names and attribute keys. Attributes only ever carry metadata: token,
// code, state and verifier values are never recorded.
const (
	SpanExchange = "oauth.Exchange"
	SpanUserInfo = "oauth.UserInfo"

	AttrProviderName   = "provider.name"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrError          = "oauth.error"
)

// recordError records err on span and sets its status. Provider error codes
// are added as an attribute.
func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		span.SetAttributes(attribute.String(AttrError, perr.Code))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
