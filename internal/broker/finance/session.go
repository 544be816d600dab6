package finance

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"gfinance/internal/broker"
	"gfinance/internal/config"
	apperrors "gfinance/internal/errors"
	"gfinance/internal/models"
)

const (
	gdataVersion = "2"

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeAtom = "application/atom+xml"
)

// Options configures a Session.
type Options struct {
	AuthURL string
	FeedURL string
	Service string
	Source  string

	// RefreshAfterTransaction re-reads the portfolio's positions after every
	// accepted transaction. When false the cache is left as it was and callers
	// must call ListPositions to observe the effect.
	RefreshAfterTransaction bool

	// Now returns the default transaction timestamp.
	Now func() time.Time
}

// OptionsFromConfig maps application configuration onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AuthURL:                 cfg.AuthURL,
		FeedURL:                 cfg.FeedURL,
		Service:                 cfg.Service,
		Source:                  cfg.Source,
		RefreshAfterTransaction: cfg.RefreshAfterTransaction,
	}
}

// Session is an authenticated client of one user's portfolios. It owns the
// credential and an in-memory mirror of the portfolios and positions it has
// fetched. The mirror is never invalidated; callers re-fetch to observe
// remote changes. A Session is not safe for concurrent use.
type Session struct {
	gateway Gateway
	opts    Options
	sealer  *broker.Sealer

	creds *broker.Credentials
	token string

	portfolios map[string]*models.Portfolio // keyed by title
}

// NewSession creates an unauthenticated session.
func NewSession(gateway Gateway, opts Options) (*Session, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if opts.AuthURL == "" {
		opts.AuthURL = config.DefaultAuthURL
	}
	if opts.FeedURL == "" {
		opts.FeedURL = config.DefaultFeedURL
	}
	if opts.Service == "" {
		opts.Service = config.DefaultService
	}
	if opts.Source == "" {
		opts.Source = config.DefaultSource
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	sealer, err := broker.NewSealer()
	if err != nil {
		return nil, fmt.Errorf("creating credential sealer: %w", err)
	}

	return &Session{
		gateway:    gateway,
		opts:       opts,
		sealer:     sealer,
		portfolios: make(map[string]*models.Portfolio),
	}, nil
}

// Authenticated returns true once a login has succeeded.
func (s *Session) Authenticated() bool {
	return s.token != ""
}

// Portfolio returns a copy of the cached portfolio with the given title.
func (s *Session) Portfolio(title string) (*models.Portfolio, bool) {
	p, ok := s.portfolios[title]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Portfolios returns copies of all cached portfolios sorted by title.
func (s *Session) Portfolios() []*models.Portfolio {
	titles := make([]string, 0, len(s.portfolios))
	for title := range s.portfolios {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	out := make([]*models.Portfolio, 0, len(titles))
	for _, title := range titles {
		out = append(out, s.portfolios[title].Clone())
	}
	return out
}

// requireAuth fails fast before any network call when no login succeeded.
func (s *Session) requireAuth() error {
	if s.token == "" {
		return apperrors.Unauthorized("")
	}
	return nil
}

// lookup returns the cached portfolio, without a server lookup.
func (s *Session) lookup(title string) (*models.Portfolio, error) {
	p, ok := s.portfolios[title]
	if !ok {
		return nil, apperrors.NotFoundf("portfolio %q is not cached", title)
	}
	return p, nil
}

// store inserts p under its title. Positions cached for the same remote
// portfolio survive, since portfolio records never carry positions.
func (s *Session) store(p *models.Portfolio) {
	if old, ok := s.portfolios[p.Title]; ok && old.RemoteID == p.RemoteID {
		p.Positions = old.Positions
	}
	s.portfolios[p.Title] = p
}

// header builds the per-request header set.
func (s *Session) header(contentType string) http.Header {
	h := http.Header{}
	h.Set("GData-Version", gdataVersion)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if s.token != "" {
		h.Set("Authorization", "GoogleLogin auth="+s.token)
	}
	return h
}

func (s *Session) do(ctx context.Context, method, url, contentType string, body []byte) (*Response, error) {
	return s.gateway.Do(ctx, Request{
		Method: method,
		URL:    url,
		Header: s.header(contentType),
		Body:   body,
	})
}

// withQuery appends a raw query to a link that may already carry one.
func withQuery(link, query string) string {
	if strings.Contains(link, "?") {
		return link + "&" + query
	}
	return link + "?" + query
}
