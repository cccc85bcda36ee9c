package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	graphScope = "https://graph.microsoft.com/.default"

	// refreshMargin is cut from every token lifetime.
	refreshMargin = 5 * time.Minute

	// maxTokenBody bounds how much of a token response is decoded.
	maxTokenBody = 64 << 10
)

var errNoAccessToken = errors.New("oauth token: response has no access_token")

// clientCredentials identifies the app registration that sends mail.
type clientCredentials struct {
	endpoint string
	id       string
	secret   string
}

// exchange performs one client-credentials grant. The secret only ever
// travels in the request body; failures report the OAuth error code alone.
func (cc clientCredentials) exchange(ctx context.Context, client *http.Client) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cc.id)
	form.Set("client_secret", cc.secret)
	form.Set("scope", graphScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("oauth token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("oauth token request: %w", err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxTokenBody))

	if resp.StatusCode != http.StatusOK {
		var denied tokenErrorResponse
		if dec.Decode(&denied) == nil && denied.Error != "" {
			return "", 0, fmt.Errorf("oauth token: status %d (%s)", resp.StatusCode, denied.Error)
		}
		return "", 0, fmt.Errorf("oauth token: status %d", resp.StatusCode)
	}

	var granted tokenResponse
	if err := dec.Decode(&granted); err != nil {
		return "", 0, fmt.Errorf("oauth token: decode: %w", err)
	}
	if granted.AccessToken == "" {
		return "", 0, errNoAccessToken
	}
	return granted.AccessToken, time.Duration(granted.ExpiresIn) * time.Second, nil
}

// tokenSource hands out bearer tokens for sendMail. Send reuses a live token;
// Verify always asks the tenant again so revoked credentials surface at once.
type tokenSource struct {
	creds  clientCredentials
	client *http.Client

	mu         sync.Mutex
	bearer     string
	validUntil time.Time
}

func (s *tokenSource) get(ctx context.Context, fresh bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fresh && s.bearer != "" && time.Now().Before(s.validUntil) {
		return s.bearer, nil
	}

	s.bearer, s.validUntil = "", time.Time{}
	bearer, lifetime, err := s.creds.exchange(ctx, s.client)
	if err != nil {
		return "", err
	}
	if lifetime > refreshMargin {
		s.bearer = bearer
		s.validUntil = time.Now().Add(lifetime - refreshMargin)
	}
	return bearer, nil
}
