package finance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "gfinance/internal/errors"
	"gfinance/internal/models"
)

const (
	// metricPrefix marks money metrics inside portfolio and position data.
	metricPrefix = "gf$"
	// currencyKey is the base currency entry of gf$portfolioData.
	currencyKey = "currencyCode"

	// Positional fallbacks for the self link when no rel="self" link is present.
	portfolioSelfLinkIndex = 1
	positionSelfLinkIndex  = 0
)

// ParsePortfolio converts a raw portfolio record into a Portfolio with no positions.
func ParsePortfolio(e PortfolioEntry) (*models.Portfolio, error) {
	if e.Title.T == "" {
		return nil, apperrors.Validation("portfolio record has no title")
	}
	if e.ID.T == "" {
		return nil, apperrors.Validation(fmt.Sprintf("portfolio %q has no id", e.Title.T))
	}

	updated, err := parseUpdated(e.Updated.T)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, fmt.Sprintf("portfolio %q: updated", e.Title.T), err)
	}

	p := &models.Portfolio{
		Title:     e.Title.T,
		Updated:   updated,
		RemoteID:  e.ID.T,
		ETag:      e.ETag,
		SelfLink:  selfLink(e.Links, portfolioSelfLinkIndex),
		FeedLink:  e.FeedLink.Href,
		Metrics:   make(map[string]models.Metric),
		Positions: make(map[string]*models.Position),
	}

	for key, raw := range e.Data {
		switch {
		case key == currencyKey:
			var code string
			if err := json.Unmarshal(raw, &code); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrValidation, fmt.Sprintf("portfolio %q: %s", p.Title, key), err)
			}
			p.CurrencyCode = code
		case strings.HasPrefix(key, metricPrefix):
			m, err := parseMoneyMetric(raw)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrValidation, fmt.Sprintf("portfolio %q: metric %s", p.Title, key), err)
			}
			p.Metrics[strings.TrimPrefix(key, metricPrefix)] = m
		default:
			v, err := parseNumber(raw)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrValidation, fmt.Sprintf("portfolio %q: metric %s", p.Title, key), err)
			}
			p.Metrics[key] = models.Metric{Value: v}
		}
	}

	return p, nil
}

// ParsePosition converts a raw position record into a Position.
func ParsePosition(e PositionEntry) (*models.Position, error) {
	if e.Symbol.Symbol == "" {
		return nil, apperrors.Validation(fmt.Sprintf("position %q has no symbol", e.Title.T))
	}

	updated, err := parseUpdated(e.Updated.T)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, fmt.Sprintf("position %s: updated", e.Symbol.Symbol), err)
	}

	p := &models.Position{
		RemoteID:     e.ID.T,
		Updated:      updated,
		Title:        e.Title.T,
		SelfLink:     selfLink(e.Links, positionSelfLinkIndex),
		FeedLink:     e.FeedLink.Href,
		Symbol:       e.Symbol.Symbol,
		Exchange:     e.Symbol.Exchange,
		FullName:     e.Symbol.FullName,
		Data:         make(map[string]float64),
		Transactions: make(map[string]models.Transaction),
	}

	for key, raw := range e.Data {
		if strings.HasPrefix(key, metricPrefix) {
			m, err := parseMoneyMetric(raw)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrValidation, fmt.Sprintf("position %s: %s", p.Symbol, key), err)
			}
			if p.Money == nil {
				p.Money = make(map[string]models.Metric)
			}
			p.Money[strings.TrimPrefix(key, metricPrefix)] = m
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrValidation, fmt.Sprintf("position %s: %s", p.Symbol, key), err)
		}
		p.Data[key] = v
	}

	return p, nil
}

// parseMoneyMetric converts a gd$money list. The first amount is the metric
// value. An empty list gives a metric with no amounts.
func parseMoneyMetric(raw json.RawMessage) (models.Metric, error) {
	var rec MoneyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Metric{}, err
	}
	if len(rec.Money) == 0 {
		return models.Metric{}, nil
	}

	m := models.Metric{Amounts: make([]models.Money, 0, len(rec.Money))}
	for _, mv := range rec.Money {
		amount, err := mv.Amount.Float64()
		if err != nil {
			return models.Metric{}, err
		}
		m.Amounts = append(m.Amounts, models.Money{Amount: amount, CurrencyCode: mv.CurrencyCode})
	}
	m.Value = m.Amounts[0].Amount
	m.CurrencyCode = m.Amounts[0].CurrencyCode
	return m, nil
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var n Numeric
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Float64()
}

func parseUpdated(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func selfLink(links []Link, fallback int) string {
	for _, l := range links {
		if l.Rel == "self" {
			return l.Href
		}
	}
	if fallback < len(links) {
		return links[fallback].Href
	}
	return ""
}
