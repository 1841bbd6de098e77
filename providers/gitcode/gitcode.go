// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package gitcode configures oauth.Provider for GitCode
// (https://gitcode.com) logins.
package gitcode

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-oauth/oauth"
)

const (
	AuthenticationScheme = "GitCode"
	DisplayName          = "GitCode"
	Issuer               = "GitCode"
	CallbackPath         = "/signin-gitcode"

	AuthorizationEndpoint = "https://gitcode.com/oauth/authorize"
	TokenEndpoint         = "https://gitcode.com/oauth/token"
	UserInfoEndpoint      = "https://api.gitcode.com/api/v5/user"
)

// GitCode specific claim types.
const (
	ClaimAvatarURL = "urn:gitcode:avatar_url"
	ClaimBio       = "urn:gitcode:bio"
	ClaimBlog      = "urn:gitcode:blog"
	ClaimCompany   = "urn:gitcode:company"
	ClaimHTMLURL   = "urn:gitcode:html_url"
	ClaimName      = "urn:gitcode:name"
)

// DefaultProfile returns a new copy of GitCode's provider profile. GitCode
// follows RFC 6749 closely: errors use HTTP status codes and the user
// profile is the document root, fetched with a bearer token.
func DefaultProfile() oauth.ProviderProfile {
	return oauth.ProviderProfile{
		Name:                  DisplayName,
		Issuer:                Issuer,
		CallbackPath:          CallbackPath,
		AuthorizationEndpoint: AuthorizationEndpoint,
		TokenEndpoint:         TokenEndpoint,
		UserInfoEndpoint:      UserInfoEndpoint,
		UserInfoMethod:        http.MethodGet,
		ClaimMappings: []oauth.ClaimMapping{
			{ClaimType: oauth.ClaimNameIdentifier, JSONPath: "id"},
			{ClaimType: oauth.ClaimName, JSONPath: "login"},
			{ClaimType: oauth.ClaimEmail, JSONPath: "email"},
			{ClaimType: ClaimAvatarURL, JSONPath: "avatar_url"},
			{ClaimType: ClaimBio, JSONPath: "bio"},
			{ClaimType: ClaimBlog, JSONPath: "blog"},
			{ClaimType: ClaimCompany, JSONPath: "company"},
			{ClaimType: ClaimHTMLURL, JSONPath: "html_url"},
			{ClaimType: ClaimName, JSONPath: "name"},
		},
	}
}

// NewProvider creates an oauth.Provider for GitCode.
//
// Supported options: WithProfile
func NewProvider(c *oauth.Config, codec oauth.StateCodec, opt ...oauth.Option) (*oauth.Provider, error) {
	const op = "gitcode.NewProvider"
	opts := getOpts(opt...)
	p, err := oauth.NewProvider(c, opts.withProfile, codec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// options is the set of available options for NewProvider
type options struct {
	withProfile oauth.ProviderProfile
}

func getDefaultOptions() options {
	return options{
		withProfile: DefaultProfile(),
	}
}

func getOpts(opt ...oauth.Option) options {
	opts := getDefaultOptions()
	oauth.ApplyOpts(&opts, opt...)
	return opts
}

// WithProfile provides an optional profile to use instead of
// DefaultProfile, typically a DefaultProfile() with adjusted mappings or
// endpoints.
func WithProfile(p oauth.ProviderProfile) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withProfile = p
		}
	}
}
