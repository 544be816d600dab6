package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	apperrors "gfinance/internal/errors"
	"gfinance/internal/models"
	"gfinance/internal/validation"
)

// DefaultCurrency is used when no currency option is given.
const DefaultCurrency = "USD"

// ListPortfolios fetches the portfolio collection and merges it into the cache.
// Cached titles absent from the response are kept.
func (s *Session) ListPortfolios(ctx context.Context) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	resp, err := s.do(ctx, http.MethodGet, withQuery(s.opts.FeedURL, "returns=true&alt=json"), "", nil)
	if err != nil {
		return fmt.Errorf("listing portfolios: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Finance] Listing portfolios failed with status %d", resp.StatusCode)
		return apperrors.Remote("list portfolios", resp.StatusCode, resp.Body)
	}

	var feed PortfolioFeed
	if err := json.Unmarshal(resp.Body, &feed); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "decoding portfolio feed", err)
	}

	// Parse everything before touching the cache.
	parsed := make([]*models.Portfolio, 0, len(feed.Feed.Entry))
	for _, entry := range feed.Feed.Entry {
		p, err := ParsePortfolio(entry)
		if err != nil {
			return fmt.Errorf("listing portfolios: %w", err)
		}
		parsed = append(parsed, p)
	}

	for _, p := range parsed {
		s.store(p)
	}

	log.Printf("[Finance] Fetched %d portfolios, %d cached", len(parsed), len(s.portfolios))
	return nil
}

type portfolioSettings struct {
	currencyCode string
}

// PortfolioOption customizes CreatePortfolio.
type PortfolioOption func(*portfolioSettings)

// WithCurrency sets the base currency of a new portfolio.
func WithCurrency(code string) PortfolioOption {
	return func(ps *portfolioSettings) {
		ps.currencyCode = code
	}
}

// CreatePortfolio creates a portfolio and caches the entity echoed by the service.
func (s *Session) CreatePortfolio(ctx context.Context, title string, opts ...PortfolioOption) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	settings := portfolioSettings{currencyCode: DefaultCurrency}
	for _, opt := range opts {
		opt(&settings)
	}
	code := validation.NormalizeCurrency(settings.currencyCode)

	var v validation.Errors
	if !validation.ValidateCurrency(code) {
		v.Add("currency_code", fmt.Sprintf("must be 3 characters, got %q", settings.currencyCode))
	}
	if !validation.ValidateRequired(title) {
		v.Add("title", "must not be empty")
	}
	if err := v.Err(); err != nil {
		return err
	}

	body, err := EncodePortfolio(title, code)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "encoding portfolio entry", err)
	}

	resp, err := s.do(ctx, http.MethodPost, withQuery(s.opts.FeedURL, "alt=json"), contentTypeAtom, body)
	if err != nil {
		return fmt.Errorf("creating portfolio: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		log.Printf("[Finance] Unable to create portfolio %q (currency: %s): status %d", title, code, resp.StatusCode)
		return apperrors.Remote("create portfolio", resp.StatusCode, resp.Body)
	}

	var echo PortfolioEntryResponse
	if err := json.Unmarshal(resp.Body, &echo); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "decoding created portfolio", err)
	}
	if echo.Entry == nil {
		return apperrors.Validation("created portfolio response has no entry")
	}

	p, err := ParsePortfolio(*echo.Entry)
	if err != nil {
		return fmt.Errorf("creating portfolio: %w", err)
	}
	s.store(p)

	log.Printf("[Finance] Created portfolio %q (currency: %s)", p.Title, code)
	return nil
}

// DeletePortfolio deletes a cached portfolio through its self link. A
// portfolio that is not cached cannot be deleted, whatever exists remotely.
func (s *Session) DeletePortfolio(ctx context.Context, title string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	p, err := s.lookup(title)
	if err != nil {
		return err
	}

	resp, err := s.do(ctx, http.MethodDelete, p.SelfLink, "", nil)
	if err != nil {
		return fmt.Errorf("deleting portfolio %q: %w", title, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Finance] Unable to delete portfolio %q: status %d", title, resp.StatusCode)
		return apperrors.Remote("delete portfolio", resp.StatusCode, resp.Body)
	}

	delete(s.portfolios, title)
	log.Printf("[Finance] Deleted portfolio %q", title)
	return nil
}
