// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-oauth/oauth"
)

// Login creates a handler which starts a login attempt: it binds a new
// correlation id to the user agent, creates a Session and redirects to the
// provider's authorization endpoint.
//
// Supported options: WithSessionItems
func Login(p *oauth.Provider, c Correlator, opt ...oauth.Option) (http.HandlerFunc, error) {
	const op = "callback.Login"
	if p == nil {
		return nil, fmt.Errorf("%s: provider is empty: %w", op, oauth.ErrInvalidParameter)
	}
	if c == nil {
		return nil, fmt.Errorf("%s: correlator is empty: %w", op, oauth.ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	return func(w http.ResponseWriter, req *http.Request) {
		cid, err := c.Issue(w, req)
		if err != nil {
			http.Error(w, "unable to start login", http.StatusInternalServerError)
			return
		}
		var items map[string]string
		if opts.withSessionItems != nil {
			items = opts.withSessionItems(req)
		}
		s, err := p.NewSession(oauth.WithCorrelationID(cid), oauth.WithItems(items))
		if err != nil {
			http.Error(w, "unable to start login", http.StatusInternalServerError)
			return
		}
		authURL, err := p.AuthURL(req.Context(), s)
		if err != nil {
			http.Error(w, "unable to start login", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	}, nil
}
