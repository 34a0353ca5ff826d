package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultTokenURL = "https://accounts.spotify.com/api/token"

	// Refresh slightly before the declared expiry so a token is never
	// presented in its final moments.
	tokenExpirySkew = 30 * time.Second
)

// TokenCache exchanges client credentials for a bearer token and reuses
// it until expiry. Concurrent callers during a refresh share a single
// in-flight exchange.
type TokenCache struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client

	group singleflight.Group

	mu          sync.Mutex
	accessToken string
	expiry      time.Time
}

func newTokenCache(clientID, clientSecret string) *TokenCache {
	return &TokenCache{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultTokenURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns the cached access token, performing the credential
// exchange when none is held or the held one has expired.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	if tc.clientID == "" || tc.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	tc.mu.Lock()
	if tc.accessToken != "" && time.Now().Before(tc.expiry.Add(-tokenExpirySkew)) {
		token := tc.accessToken
		tc.mu.Unlock()

		return token, nil
	}
	tc.mu.Unlock()

	v, err, _ := tc.group.Do("token", func() (any, error) {
		return tc.exchange(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// Invalidate drops the cached token if it matches the one the catalog
// rejected, forcing the next Token call to perform a fresh exchange.
func (tc *TokenCache) Invalidate(rejected string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.accessToken == rejected {
		tc.accessToken = ""
		tc.expiry = time.Time{}
	}
}

func (tc *TokenCache) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	basic := base64.StdEncoding.EncodeToString([]byte(tc.clientID + ":" + tc.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: token endpoint returned %s", ErrUpstreamUnavailable, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: token endpoint returned %s", ErrUpstreamAuth, resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrMalformedResponse)
	}

	tc.mu.Lock()
	tc.accessToken = token.AccessToken
	tc.expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	tc.mu.Unlock()

	return token.AccessToken, nil
}
