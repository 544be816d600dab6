// Package models contains the normalized entities mirrored from the finance service.
package models

import (
	"maps"
	"time"
)

// Money is one amount of a money metric in a given currency.
type Money struct {
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
}

// Metric is a computed figure reported by the service.
// Unitless metrics leave CurrencyCode empty and Amounts nil.
type Metric struct {
	Value        float64 `json:"value"`
	CurrencyCode string  `json:"currency_code,omitempty"`
	Amounts      []Money `json:"amounts,omitempty"` // every amount the service sent, in order
}

// IsMoney returns true if the metric is expressed in a currency.
func (m Metric) IsMoney() bool {
	return m.CurrencyCode != ""
}

// Portfolio is a server-side portfolio as last seen by the session.
type Portfolio struct {
	Title        string               `json:"title"`
	Updated      time.Time            `json:"updated"`
	RemoteID     string               `json:"remote_id"`
	ETag         string               `json:"etag"`
	SelfLink     string               `json:"self_link"`
	FeedLink     string               `json:"feed_link"`
	CurrencyCode string               `json:"currency_code,omitempty"`
	Metrics      map[string]Metric    `json:"metrics"`
	Positions    map[string]*Position `json:"positions"` // keyed by symbol
}

// Clone returns a copy of p that shares no maps or slices with it.
func (p *Portfolio) Clone() *Portfolio {
	if p == nil {
		return nil
	}
	c := *p
	c.Metrics = cloneMetrics(p.Metrics)
	c.Positions = make(map[string]*Position, len(p.Positions))
	for symbol, pos := range p.Positions {
		c.Positions[symbol] = pos.Clone()
	}
	return &c
}

// Position is a holding of one symbol inside a portfolio.
type Position struct {
	RemoteID     string                 `json:"remote_id"`
	Updated      time.Time              `json:"updated"`
	Title        string                 `json:"title"`
	SelfLink     string                 `json:"self_link"`
	FeedLink     string                 `json:"feed_link"`
	Symbol       string                 `json:"symbol"`
	Exchange     string                 `json:"exchange"`
	FullName     string                 `json:"full_name"`
	Data         map[string]float64     `json:"position_data"`
	Money        map[string]Metric      `json:"money,omitempty"`
	Transactions map[string]Transaction `json:"transactions"` // not populated by the service feed
}

// Clone returns a copy of p that shares no maps or slices with it.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	c.Data = maps.Clone(p.Data)
	c.Money = cloneMetrics(p.Money)
	c.Transactions = maps.Clone(p.Transactions)
	return &c
}

// TransactionKind is the direction of a transaction.
type TransactionKind int

const (
	Buy TransactionKind = iota
	Sell
)

// String returns the name the service expects for the kind.
func (k TransactionKind) String() string {
	switch k {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return "Unknown"
	}
}

// Valid returns true for Buy and Sell.
func (k TransactionKind) Valid() bool {
	return k == Buy || k == Sell
}

// Transaction is a buy or sell submitted against a position.
type Transaction struct {
	Kind         TransactionKind `json:"kind"`
	Timestamp    time.Time       `json:"timestamp"`
	Shares       float64         `json:"shares"`
	Price        float64         `json:"price"`
	Commission   float64         `json:"commission"`
	CurrencyCode string          `json:"currency_code"`
}

func cloneMetrics(in map[string]Metric) map[string]Metric {
	if in == nil {
		return nil
	}
	out := make(map[string]Metric, len(in))
	for k, m := range in {
		if m.Amounts != nil {
			m.Amounts = append([]Money(nil), m.Amounts...)
		}
		out[k] = m
	}
	return out
}
