// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package vkid configures oauth.Provider for VK ID (https://id.vk.com)
// logins.
//
// VK ID departs from RFC 6749 in a few ways which its profile describes:
// PKCE is mandatory, the callback carries a device_id which must be sent
// back with the token request along with the state, token errors are
// reported in the body of a 200 response, and the user's profile is
// requested with a POST and returned under "user".
package vkid

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-oauth/oauth"
)

const (
	AuthenticationScheme = "VkId"
	DisplayName          = "VK ID"
	Issuer               = "VK ID"
	CallbackPath         = "/signin-vkid"

	AuthorizationEndpoint = "https://id.vk.com/authorize"
	TokenEndpoint         = "https://id.vk.com/oauth2/auth"
	UserInfoEndpoint      = "https://id.vk.com/oauth2/user_info"
)

// VK ID specific claim types.
const (
	ClaimAvatar     = "urn:vkid:avatar:link"
	ClaimIsVerified = "urn:vkid:verified"
)

// Scopes. See https://id.vk.com/about/business/go/docs/vkid/latest/vk-id/connection/work-with-user-info/scopes
const (
	ScopePersonalInfo  = "vkid.personal_info"
	ScopeEmail         = "email"
	ScopePhone         = "phone"
	ScopeFriends       = "friends"
	ScopePosts         = "wall"
	ScopeGroups        = "groups"
	ScopeStories       = "stories"
	ScopeDocs          = "docs"
	ScopePhotos        = "photos"
	ScopeAds           = "ads"
	ScopeVideo         = "video"
	ScopeStatus        = "status"
	ScopeMarket        = "market"
	ScopePages         = "pages"
	ScopeNotifications = "notifications"
	ScopeStats         = "stats"
	ScopeNotes         = "notes"
)

// DefaultProfile returns a new copy of VK ID's provider profile.
func DefaultProfile() oauth.ProviderProfile {
	return oauth.ProviderProfile{
		Name:                       DisplayName,
		Issuer:                     Issuer,
		CallbackPath:               CallbackPath,
		AuthorizationEndpoint:      AuthorizationEndpoint,
		TokenEndpoint:              TokenEndpoint,
		UserInfoEndpoint:           UserInfoEndpoint,
		DefaultScopes:              []string{ScopePersonalInfo},
		RequiresDeviceID:           true,
		TokenResponseAlwaysHTTP200: true,
		TokenRequestIncludesState:  true,
		UserInfoMethod:             http.MethodPost,
		UserInfoRoot:               "user",
		ClaimMappings: []oauth.ClaimMapping{
			{ClaimType: oauth.ClaimNameIdentifier, JSONPath: "user_id"},
			{ClaimType: oauth.ClaimGivenName, JSONPath: "first_name"},
			{ClaimType: oauth.ClaimSurname, JSONPath: "last_name"},
			{ClaimType: ClaimAvatar, JSONPath: "avatar"},
			{ClaimType: oauth.ClaimGender, JSONPath: "sex"},
			{ClaimType: ClaimIsVerified, JSONPath: "verified"},
			{ClaimType: oauth.ClaimDateOfBirth, JSONPath: "birthday"},
		},
	}
}

// NewProvider creates an oauth.Provider for VK ID. VK ID registers public
// clients, so the config's client secret is usually empty.
//
// Supported options: WithProfile
func NewProvider(c *oauth.Config, codec oauth.StateCodec, opt ...oauth.Option) (*oauth.Provider, error) {
	const op = "vkid.NewProvider"
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

// WithProfile provides an optional profile to use instead of DefaultProfile.
func WithProfile(p oauth.ProviderProfile) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withProfile = p
		}
	}
}
