// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/cap-oauth/oauth"
	"github.com/hashicorp/cap-oauth/oauth/callback"
)

// IndexHandler lists the enabled providers.
func IndexHandler(withGitCode, withVkID bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		var b strings.Builder
		b.WriteString("<html><body><h1>Login</h1><ul>")
		if withGitCode {
			b.WriteString(`<li><a href="/login/gitcode?return_to=/">login with GitCode</a></li>`)
		}
		if withVkID {
			b.WriteString(`<li><a href="/login/vkid?return_to=/">login with VK ID</a></li>`)
		}
		b.WriteString("</ul></body></html>")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(b.String()))
	}
}

// SuccessFn shows the user's claims. The tokens are never shown.
func SuccessFn(logger hclog.Logger) callback.SuccessResponseFunc {
	return func(s *oauth.Session, t *oauth.Token, id *oauth.Identity, w http.ResponseWriter, req *http.Request) {
		logger.Info("login succeeded", "provider", id.Provider, "subject", id.Subject())
		claims := make(map[string]string, len(id.Claims))
		for _, c := range id.Claims {
			claims[c.Type] = c.Value
		}
		j, err := json.MarshalIndent(claims, "", "  ")
		if err != nil {
			http.Error(w, "unable to render claims", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<html><body><h1>Logged in with %s</h1><pre>%s</pre><a href=\"%s\">continue</a></body></html>",
			html.EscapeString(id.Provider), html.EscapeString(string(j)), html.EscapeString(s.Items["return_to"]))
	}
}

// FailedFn reports a failed login.
func FailedFn(logger hclog.Logger) callback.ErrorResponseFunc {
	return func(s *oauth.Session, r *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		const op = "FailedFn"
		w.Header().Set("Content-Type", "application/json")
		if r != nil {
			logger.Info("login denied", "op", op, "error", r.Error)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(r)
			return
		}
		logger.Error("login failed", "op", op, "error", e)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(&callback.AuthenErrorResponse{
			Error:       "login-failed",
			Description: "unable to complete the login",
		})
	}
}
