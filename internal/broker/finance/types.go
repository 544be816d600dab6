// Package finance provides a session client for the finance portfolio feeds.
package finance

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// TextNode is the GData JSON wrapper around a text value: {"$t": "..."}.
type TextNode struct {
	T string `json:"$t"`
}

// Link is one entry of a record's link list.
type Link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

// FeedLink points at the child feed of a record.
type FeedLink struct {
	Href string `json:"href"`
}

// Numeric holds a number the service may send either quoted or bare.
type Numeric string

// UnmarshalJSON implements custom unmarshaling for Numeric.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return errors.New("numeric value is not a scalar")
	}
	*n = Numeric(data)
	return nil
}

// Float64 converts the value to a float.
func (n Numeric) Float64() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
}

// MoneyValue is one gd$money amount.
type MoneyValue struct {
	Amount       Numeric `json:"amount"`
	CurrencyCode string  `json:"currencyCode"`
}

// MoneyRecord is the value of a gf$-prefixed metric.
type MoneyRecord struct {
	Money []MoneyValue `json:"gd$money"`
}

// SymbolInfo identifies the instrument of a position.
type SymbolInfo struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	FullName string `json:"fullName"`
}

// PortfolioEntry is a raw portfolio record as served by the feed.
type PortfolioEntry struct {
	ID       TextNode                   `json:"id"`
	Updated  TextNode                   `json:"updated"`
	Title    TextNode                   `json:"title"`
	ETag     string                     `json:"gd$etag"`
	Links    []Link                     `json:"link"`
	FeedLink FeedLink                   `json:"gd$feedLink"`
	Data     map[string]json.RawMessage `json:"gf$portfolioData"`
}

// PositionEntry is a raw position record as served by the feed.
type PositionEntry struct {
	ID       TextNode                   `json:"id"`
	Updated  TextNode                   `json:"updated"`
	Title    TextNode                   `json:"title"`
	Links    []Link                     `json:"link"`
	FeedLink FeedLink                   `json:"gd$feedLink"`
	Symbol   SymbolInfo                 `json:"gf$symbol"`
	Data     map[string]json.RawMessage `json:"gf$positionData"`
}

// PortfolioFeed is the response of the portfolio collection endpoint.
type PortfolioFeed struct {
	Feed struct {
		Entry []PortfolioEntry `json:"entry"`
	} `json:"feed"`
}

// PositionFeed is the response of a portfolio's position feed.
// Entry is absent when the portfolio holds no positions.
type PositionFeed struct {
	Feed struct {
		Entry []PositionEntry `json:"entry"`
	} `json:"feed"`
}

// PortfolioEntryResponse is the echo returned after creating a portfolio.
type PortfolioEntryResponse struct {
	Entry *PortfolioEntry `json:"entry"`
}
