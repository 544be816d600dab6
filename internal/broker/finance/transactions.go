package finance

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	apperrors "gfinance/internal/errors"
	"gfinance/internal/models"
	"gfinance/internal/validation"
)

// TransactionResult is the service's answer to an accepted transaction.
type TransactionResult struct {
	StatusCode  int
	Body        []byte
	Transaction models.Transaction
}

type transactionSettings struct {
	commission   float64
	currencyCode string
	timestamp    time.Time
}

// TransactionOption customizes SubmitTransaction.
type TransactionOption func(*transactionSettings)

// WithCommission sets the commission paid (default 0.0).
func WithCommission(commission float64) TransactionOption {
	return func(ts *transactionSettings) {
		ts.commission = commission
	}
}

// WithTransactionCurrency sets the currency of price and commission (default USD).
func WithTransactionCurrency(code string) TransactionOption {
	return func(ts *transactionSettings) {
		ts.currencyCode = code
	}
}

// WithTimestamp sets the transaction date (default now).
func WithTimestamp(t time.Time) TransactionOption {
	return func(ts *transactionSettings) {
		ts.timestamp = t
	}
}

// Buy submits a Buy transaction.
func (s *Session) Buy(ctx context.Context, portfolioTitle, symbol string, shares, price float64, opts ...TransactionOption) (*TransactionResult, error) {
	return s.SubmitTransaction(ctx, models.Buy, portfolioTitle, symbol, shares, price, opts...)
}

// Sell submits a Sell transaction.
func (s *Session) Sell(ctx context.Context, portfolioTitle, symbol string, shares, price float64, opts ...TransactionOption) (*TransactionResult, error) {
	return s.SubmitTransaction(ctx, models.Sell, portfolioTitle, symbol, shares, price, opts...)
}

// SubmitTransaction posts a transaction to the position's transaction feed.
// The target is derived from the portfolio's remote id and the symbol.
//
// An accepted transaction does not change the cached positions unless the
// session was created with RefreshAfterTransaction; run ListPositions to see
// its effect. When the refresh itself fails, the result is returned together
// with the refresh error.
func (s *Session) SubmitTransaction(ctx context.Context, kind models.TransactionKind, portfolioTitle, symbol string, shares, price float64, opts ...TransactionOption) (*TransactionResult, error) {
	if err := s.requireAuth(); err != nil {
		return nil, err
	}

	settings := transactionSettings{currencyCode: DefaultCurrency}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.timestamp.IsZero() {
		settings.timestamp = s.opts.Now()
	}
	code := validation.NormalizeCurrency(settings.currencyCode)

	var v validation.Errors
	if !kind.Valid() {
		v.Add("kind", fmt.Sprintf("unknown transaction kind %d", kind))
	}
	if !validation.ValidateRequired(symbol) {
		v.Add("symbol", "must not be empty")
	}
	if !validation.ValidateCurrency(code) {
		v.Add("currency_code", fmt.Sprintf("must be 3 characters, got %q", settings.currencyCode))
	}
	if !validation.ValidateFinite(shares) {
		v.Add("shares", "must be a finite number")
	}
	if !validation.ValidateFinite(price) {
		v.Add("price", "must be a finite number")
	}
	if !validation.ValidateFinite(settings.commission) {
		v.Add("commission", "must be a finite number")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	p, err := s.lookup(portfolioTitle)
	if err != nil {
		return nil, err
	}

	tx := models.Transaction{
		Kind:         kind,
		Timestamp:    settings.timestamp,
		Shares:       shares,
		Price:        price,
		Commission:   settings.commission,
		CurrencyCode: code,
	}
	body, err := EncodeTransaction(tx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "encoding transaction", err)
	}

	resp, err := s.do(ctx, http.MethodPost, transactionURL(p.RemoteID, symbol), contentTypeAtom, body)
	if err != nil {
		return nil, fmt.Errorf("submitting %s of %s: %w", kind, symbol, err)
	}
	if resp.StatusCode != http.StatusCreated {
		log.Printf("[Finance] %s of %s in %q rejected with status %d", kind, symbol, portfolioTitle, resp.StatusCode)
		return nil, apperrors.Remote("submit transaction", resp.StatusCode, resp.Body)
	}

	log.Printf("[Finance] %s %s x%s at %s %s in %q accepted", kind, symbol, formatFloat(shares), formatFloat(price), code, portfolioTitle)

	result := &TransactionResult{
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
		Transaction: tx,
	}

	if s.opts.RefreshAfterTransaction {
		if err := s.ListPositions(ctx, portfolioTitle); err != nil {
			return result, fmt.Errorf("refreshing positions after transaction: %w", err)
		}
	}

	return result, nil
}

// transactionURL is <portfolioRemoteId>/positions/<symbol>/transactions.
func transactionURL(remoteID, symbol string) string {
	return withQuery(remoteID+"/positions/"+url.PathEscape(symbol)+"/transactions", "alt=json")
}
