package finance

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	apperrors "gfinance/internal/errors"
)

// Login authenticates with the ClientLogin endpoint and stores the bearer
// token. A failed login leaves the session state unchanged and may be retried.
// Logging in as a different identity drops the portfolios cached for the
// previous one.
func (s *Session) Login(ctx context.Context, identity, secret string) error {
	log.Printf("[Finance] Authenticating %s", identity)

	form := url.Values{}
	form.Set("Email", identity)
	form.Set("Passwd", secret)
	form.Set("service", s.opts.Service)
	form.Set("source", s.opts.Source)

	// The login request never carries a bearer token, even on a re-login.
	header := http.Header{}
	header.Set("GData-Version", gdataVersion)
	header.Set("Content-Type", contentTypeForm)

	resp, err := s.gateway.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    s.opts.AuthURL,
		Header: header,
		Body:   []byte(form.Encode()),
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Finance] Authentication failed with status %d", resp.StatusCode)
		return apperrors.Wrap(apperrors.ErrUnauthorized, "login failed", apperrors.Remote("login", resp.StatusCode, resp.Body))
	}

	token, err := parseAuthToken(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnauthorized, "login failed", err)
	}

	creds, err := s.sealer.Seal(identity, secret)
	if err != nil {
		return fmt.Errorf("sealing credentials: %w", err)
	}

	if s.creds != nil && s.creds.Identity != identity {
		log.Printf("[Finance] Identity changed from %s, dropping cached portfolios", s.creds.Identity)
		clear(s.portfolios)
	}
	s.token = token
	s.creds = creds
	log.Printf("[Finance] Authenticated %s", identity)
	return nil
}

// Relogin repeats the last successful login with the sealed credentials.
func (s *Session) Relogin(ctx context.Context) error {
	if s.creds == nil {
		return apperrors.Unauthorized("no credentials from a previous login")
	}

	secret, err := s.sealer.Open(s.creds)
	if err != nil {
		return fmt.Errorf("opening credentials: %w", err)
	}

	return s.Login(ctx, s.creds.Identity, secret)
}

// parseAuthToken extracts the token from the SID/LSID/Auth key=value lines.
// The third line carries the bearer token.
func parseAuthToken(body []byte) (string, error) {
	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return "", fmt.Errorf("expected 3 key=value lines, got %d", len(lines))
	}

	values := make([]string, 3)
	for i, line := range lines[:3] {
		_, value, ok := strings.Cut(line, "=")
		if !ok {
			return "", fmt.Errorf("line %d is not key=value", i+1)
		}
		values[i] = strings.TrimSpace(value)
	}

	if values[2] == "" {
		return "", fmt.Errorf("empty auth token")
	}
	return values[2], nil
}
