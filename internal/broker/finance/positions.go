package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	apperrors "gfinance/internal/errors"
	"gfinance/internal/models"
)

// ListPositions fetches the position feed of a cached portfolio and merges it
// into the portfolio's positions keyed by symbol. A later position on the same
// symbol overwrites the earlier one; an empty feed leaves the cache as it was.
func (s *Session) ListPositions(ctx context.Context, portfolioTitle string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}

	p, err := s.lookup(portfolioTitle)
	if err != nil {
		return err
	}

	resp, err := s.do(ctx, http.MethodGet, withQuery(p.FeedLink, "alt=json"), "", nil)
	if err != nil {
		return fmt.Errorf("listing positions of %q: %w", portfolioTitle, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Finance] Unable to fetch positions for %q: status %d", portfolioTitle, resp.StatusCode)
		return apperrors.Remote("list positions", resp.StatusCode, resp.Body)
	}

	var feed PositionFeed
	if err := json.Unmarshal(resp.Body, &feed); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, "decoding position feed", err)
	}

	parsed := make([]*models.Position, 0, len(feed.Feed.Entry))
	for _, entry := range feed.Feed.Entry {
		pos, err := ParsePosition(entry)
		if err != nil {
			return fmt.Errorf("listing positions of %q: %w", portfolioTitle, err)
		}
		parsed = append(parsed, pos)
	}

	if p.Positions == nil {
		p.Positions = make(map[string]*models.Position)
	}
	for _, pos := range parsed {
		p.Positions[pos.Symbol] = pos
	}

	log.Printf("[Finance] Fetched %d positions for %q", len(parsed), portfolioTitle)
	return nil
}

// FindPosition returns the cached positions of a portfolio matching symbol
// and, when exchange is not empty, exchange. Both are compared upper-cased.
// No request is made.
func (s *Session) FindPosition(portfolioTitle, symbol, exchange string) ([]models.Position, error) {
	if err := s.requireAuth(); err != nil {
		return nil, err
	}

	p, err := s.lookup(portfolioTitle)
	if err != nil {
		return nil, err
	}

	symbol = strings.ToUpper(symbol)
	exchange = strings.ToUpper(exchange)

	keys := make([]string, 0, len(p.Positions))
	for key := range p.Positions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	matches := []models.Position{}
	for _, key := range keys {
		pos := p.Positions[key]
		if strings.ToUpper(pos.Symbol) != symbol {
			continue
		}
		if exchange != "" && strings.ToUpper(pos.Exchange) != exchange {
			continue
		}
		matches = append(matches, *pos.Clone())
	}
	return matches, nil
}
