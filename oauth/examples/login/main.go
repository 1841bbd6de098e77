// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Command login is a small web app offering "login with GitCode" and "login
// with VK ID". A provider is enabled when its client id is set.
//
//	OAUTH_STATE_SECRET=... GITCODE_CLIENT_ID=... GITCODE_CLIENT_SECRET=... \
//	VKID_CLIENT_ID=... go run . -insecure-cookie
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"github.com/hashicorp/cap-oauth/oauth"
	"github.com/hashicorp/cap-oauth/oauth/callback"
	"github.com/hashicorp/cap-oauth/protect"
	"github.com/hashicorp/cap-oauth/providers/gitcode"
	"github.com/hashicorp/cap-oauth/providers/vkid"
)

// List of configuration environment variables
const (
	stateSecret         = "OAUTH_STATE_SECRET"
	port                = "OAUTH_PORT"
	gitcodeClientID     = "GITCODE_CLIENT_ID"
	gitcodeClientSecret = "GITCODE_CLIENT_SECRET"
	vkidClientID        = "VKID_CLIENT_ID"
	redisURL            = "REDIS_URL"
)

func envConfig() (map[string]string, error) {
	const op = "envConfig"
	env := map[string]string{
		stateSecret:         os.Getenv(stateSecret),
		port:                os.Getenv(port),
		gitcodeClientID:     os.Getenv(gitcodeClientID),
		gitcodeClientSecret: os.Getenv(gitcodeClientSecret),
		vkidClientID:        os.Getenv(vkidClientID),
		redisURL:            os.Getenv(redisURL),
	}
	if env[port] == "" {
		env[port] = "3000"
	}
	if len(env[stateSecret]) < protect.MinSecretLen {
		return nil, fmt.Errorf("%s: %s must be at least %d bytes", op, stateSecret, protect.MinSecretLen)
	}
	if env[gitcodeClientID] == "" && env[vkidClientID] == "" {
		return nil, fmt.Errorf("%s: neither %s nor %s is set", op, gitcodeClientID, vkidClientID)
	}
	return env, nil
}

// returnTo keeps the page to return to after login, when it's a local path.
func returnTo(req *http.Request) map[string]string {
	r := req.URL.Query().Get("return_to")
	if !strings.HasPrefix(r, "/") || strings.HasPrefix(r, "//") || strings.Contains(r, "\\") {
		r = "/"
	}
	return map[string]string{"return_to": r}
}

func main() {
	useJWE := flag.Bool("jwe", false, "protect the state with JWE instead of securecookie")
	insecureCookie := flag.Bool("insecure-cookie", false, "allow the correlation cookie over plain http (localhost only)")
	debug := flag.Bool("debug", false, "enable debug logging")
	stateLifetime := flag.Duration("state-lifetime", oauth.DefaultStateLifetime, "how long a login attempt stays valid")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "login",
		Level: hclog.Info,
	})
	if *debug {
		logger.SetLevel(hclog.Debug)
	}

	env, err := envConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	secret := []byte(env[stateSecret])
	baseURL := fmt.Sprintf("http://localhost:%s", env[port])

	var codec oauth.StateCodec
	if *useJWE {
		codec, err = protect.NewJWE(secret)
	} else {
		codec, err = protect.NewSecureCookie(secret, protect.WithMaxAge(*stateLifetime))
	}
	if err != nil {
		logger.Error("unable to create state codec", "error", err)
		os.Exit(1)
	}

	var guard callback.ReplayGuard = callback.NewMemoryReplayGuard()
	if env[redisURL] != "" {
		redisOpts, err := redis.ParseURL(env[redisURL])
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		if guard, err = callback.NewRedisReplayGuard(rdb); err != nil {
			logger.Error("unable to create replay guard", "error", err)
			os.Exit(1)
		}
	}

	cbOpts := []oauth.Option{
		callback.WithReplayGuard(guard),
		callback.WithSessionItems(returnTo),
		callback.WithCookieMaxAge(*stateLifetime),
	}
	if *insecureCookie {
		cbOpts = append(cbOpts, callback.WithInsecureCookie())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", IndexHandler(env[gitcodeClientID] != "", env[vkidClientID] != ""))

	type newProviderFunc func(*oauth.Config, oauth.StateCodec, ...oauth.Option) (*oauth.Provider, error)
	for _, pc := range []struct {
		loginPath    string
		callbackPath string
		clientID     string
		clientSecret string
		newProvider  newProviderFunc
	}{
		{"/login/gitcode", gitcode.CallbackPath, env[gitcodeClientID], env[gitcodeClientSecret], gitcode.NewProvider},
		{"/login/vkid", vkid.CallbackPath, env[vkidClientID], "", vkid.NewProvider},
	} {
		if pc.clientID == "" {
			continue
		}
		cfg, err := oauth.NewConfig(pc.clientID, oauth.ClientSecret(pc.clientSecret), baseURL+pc.callbackPath,
			oauth.WithLogger(logger), oauth.WithStateLifetime(*stateLifetime))
		if err != nil {
			logger.Error("invalid provider config", "error", err)
			os.Exit(1)
		}
		p, err := pc.newProvider(cfg, codec)
		if err != nil {
			logger.Error("unable to create provider", "error", err)
			os.Exit(1)
		}
		c, err := callback.NewCookieCorrelator(p.Name(), secret, cbOpts...)
		if err != nil {
			logger.Error("unable to create correlator", "error", err)
			os.Exit(1)
		}
		login, err := callback.Login(p, c, cbOpts...)
		if err != nil {
			logger.Error("unable to create login handler", "error", err)
			os.Exit(1)
		}
		cb, err := callback.AuthCode(p, c, SuccessFn(logger), FailedFn(logger), cbOpts...)
		if err != nil {
			logger.Error("unable to create callback handler", "error", err)
			os.Exit(1)
		}
		mux.HandleFunc(pc.loginPath, login)
		mux.HandleFunc(p.CallbackPath(), cb)
		logger.Info("provider enabled", "provider", p.Name(), "login", baseURL+pc.loginPath)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("localhost:%s", env[port]),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// handle ctrl-c
	sigintCh := make(chan os.Signal, 1)
	signal.Notify(sigintCh, os.Interrupt)
	defer signal.Stop(sigintCh)

	srvCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "url", baseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvCh <- err
		}
	}()

	select {
	case err := <-srvCh:
		logger.Error("server closed with error", "error", err)
	case <-sigintCh:
		logger.Info("interrupted")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
