// Package financetest provides an in-process fake of the finance feeds for
// tests and offline demos.
package financetest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Route names accepted by Override.
const (
	RouteLogin           = "login"
	RouteListPortfolios  = "list-portfolios"
	RouteCreatePortfolio = "create-portfolio"
	RouteDeletePortfolio = "delete-portfolio"
	RouteListPositions   = "list-positions"
	RouteTransactions    = "transactions"
)

const (
	authPath = "/accounts/ClientLogin"
	feedPath = "/finance/feeds/default/portfolios"
)

// RecordedRequest is one request received by the server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Transaction is a transaction the server accepted.
type Transaction struct {
	PortfolioID  string
	Symbol       string
	Type         string
	Date         string
	Shares       float64
	Price        float64
	Commission   float64
	CurrencyCode string
}

type override struct {
	status int
	body   string
}

type portfolio struct {
	id        string
	title     string
	currency  string
	updated   time.Time
	metrics   map[string]string
	money     map[string]float64
	positions map[string]*position // keyed by EXCHANGE:SYMBOL
}

type position struct {
	symbol   string
	exchange string
	fullName string
	updated  time.Time
	data     map[string]float64
}

// Server is a fake finance service.
type Server struct {
	*httptest.Server

	Identity string
	Secret   string
	Token    string

	mu           sync.Mutex
	nextID       int
	portfolios   map[string]*portfolio
	requests     []RecordedRequest
	transactions []Transaction
	overrides    map[string]override
	emptyFeeds   bool
	quota        *quota
	accounts     map[string]string
	expired      int
}

// NewServer starts a fake service accepting identity and secret.
func NewServer(identity, secret string) *Server {
	s := &Server{
		Identity:   identity,
		Secret:     secret,
		Token:      "test-auth-token",
		portfolios: make(map[string]*portfolio),
		overrides:  make(map[string]override),
		accounts:   make(map[string]string),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.throttle)
	r.Post(authPath, s.route(RouteLogin, s.handleLogin))
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get(feedPath, s.route(RouteListPortfolios, s.handleListPortfolios))
		r.Post(feedPath, s.route(RouteCreatePortfolio, s.handleCreatePortfolio))
		r.Delete(feedPath+"/{id}", s.route(RouteDeletePortfolio, s.handleDeletePortfolio))
		r.Get(feedPath+"/{id}/positions", s.route(RouteListPositions, s.handleListPositions))
		r.Post(feedPath+"/{id}/positions/{symbol}/transactions", s.route(RouteTransactions, s.handleTransaction))
	})

	s.Server = httptest.NewServer(r)
	return s
}

// AuthURL is the login endpoint of the server.
func (s *Server) AuthURL() string {
	return s.URL + authPath
}

// FeedURL is the portfolio collection of the server.
func (s *Server) FeedURL() string {
	return s.URL + feedPath
}

// AddPortfolio seeds a portfolio and returns its id. Unitless metrics are
// served as strings, money metrics as gf$ gd$money records in currency.
func (s *Server) AddPortfolio(title, currency string, metrics map[string]string, money map[string]float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPortfolioLocked(title, currency, metrics, money)
}

// AddPosition seeds a position in portfolio id.
func (s *Server) AddPosition(id, exchange, symbol, fullName string, data map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		panic(fmt.Sprintf("financetest: unknown portfolio %s", id))
	}
	if data == nil {
		data = map[string]float64{}
	}
	p.positions[exchange+":"+symbol] = &position{
		symbol:   symbol,
		exchange: exchange,
		fullName: fullName,
		updated:  time.Date(2011, 6, 1, 12, 0, 0, 0, time.UTC),
		data:     data,
	}
}

// AddAccount lets identity log in with secret too. Every account sees the
// same portfolios.
func (s *Server) AddAccount(identity, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[identity] = secret
}

// ExpireToken revokes the current token. Later feed calls with it answer
// 401 until the client logs in again.
func (s *Server) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired++
	s.Token = fmt.Sprintf("test-auth-token-%d", s.expired)
}

// RemovePortfolio deletes a portfolio behind the client's back.
func (s *Server) RemovePortfolio(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.portfolios, id)
}

// ClearOverride restores the normal behavior of route.
func (s *Server) ClearOverride(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, route)
}

// Override makes every later call to route answer status with body.
func (s *Server) Override(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[route] = override{status: status, body: body}
}

// OmitEmptyEntries serves feeds with no entry key when they have no entries.
func (s *Server) OmitEmptyEntries(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emptyFeeds = omit
}

// Requests returns the requests received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// RequestCount returns the number of requests received so far.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Transactions returns the transactions accepted so far.
func (s *Server) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transaction(nil), s.transactions...)
}

// PortfolioTitles returns the titles held by the server, sorted.
func (s *Server) PortfolioTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	titles := make([]string, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		titles = append(titles, p.title)
	}
	sort.Strings(titles)
	return titles
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.Token
		s.mu.Unlock()
		if r.Header.Get("Authorization") != "GoogleLogin auth="+token {
			http.Error(w, "Token invalid", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		o, ok := s.overrides[name]
		s.mu.Unlock()
		if ok {
			w.WriteHeader(o.status)
			io.WriteString(w, o.body)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error=BadRequest", http.StatusBadRequest)
		return
	}
	email, passwd := r.PostForm.Get("Email"), r.PostForm.Get("Passwd")

	s.mu.Lock()
	secret, ok := s.accounts[email]
	if email == s.Identity {
		secret, ok = s.Secret, true
	}
	token := s.Token
	s.mu.Unlock()

	if !ok || passwd != secret || r.PostForm.Get("service") == "" {
		http.Error(w, "Error=BadAuthentication", http.StatusForbidden)
		return
	}
	fmt.Fprintf(w, "SID=test-sid\nLSID=test-lsid\nAuth=%s\n", token)
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.portfolios))
	for id := range s.portfolios {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})

	entries := make([]any, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, s.portfolioJSON(s.portfolios[id], r.URL.Query().Get("returns") == "true"))
	}
	writeJSON(w, http.StatusOK, s.feedJSON(entries))
}

type createEntryXML struct {
	Title string `xml:"title"`
	Data  struct {
		CurrencyCode string `xml:"currencyCode,attr"`
	} `xml:"portfolioData"`
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/atom+xml") {
		http.Error(w, "Content-Type must be application/atom+xml", http.StatusUnsupportedMediaType)
		return
	}

	var entry createEntryXML
	if err := xml.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid entry: "+err.Error(), http.StatusBadRequest)
		return
	}
	if entry.Title == "" {
		http.Error(w, "Portfolio title is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.portfolios {
		if p.title == entry.Title {
			http.Error(w, "Portfolio name already exists", http.StatusConflict)
			return
		}
	}

	id := s.addPortfolioLocked(entry.Title, entry.Data.CurrencyCode, map[string]string{"gainPercentage": "0.0"}, nil)
	writeJSON(w, http.StatusCreated, map[string]any{"entry": s.portfolioJSON(s.portfolios[id], false)})
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[id]; !ok {
		http.Error(w, "Portfolio not found", http.StatusNotFound)
		return
	}
	delete(s.portfolios, id)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		http.Error(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	keys := make([]string, 0, len(p.positions))
	for key := range p.positions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]any, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, s.positionJSON(p, p.positions[key]))
	}
	writeJSON(w, http.StatusOK, s.feedJSON(entries))
}

type transactionEntryXML struct {
	Data struct {
		Date       string   `xml:"date,attr"`
		Shares     string   `xml:"shares,attr"`
		Type       string   `xml:"type,attr"`
		Commission moneyXML `xml:"commission>money"`
		Price      moneyXML `xml:"price>money"`
	} `xml:"transactionData"`
}

type moneyXML struct {
	Amount       string `xml:"amount,attr"`
	CurrencyCode string `xml:"currencyCode,attr"`
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	symbol := chi.URLParam(r, "symbol")

	var entry transactionEntryXML
	if err := xml.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid entry: "+err.Error(), http.StatusBadRequest)
		return
	}

	shares, err1 := strconv.ParseFloat(entry.Data.Shares, 64)
	price, err2 := strconv.ParseFloat(entry.Data.Price.Amount, 64)
	commission, err3 := strconv.ParseFloat(entry.Data.Commission.Amount, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "Invalid numeric value", http.StatusBadRequest)
		return
	}
	if entry.Data.Type != "Buy" && entry.Data.Type != "Sell" {
		http.Error(w, "Invalid transaction type", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		http.Error(w, "Portfolio not found", http.StatusNotFound)
		return
	}

	pos := p.findPosition(symbol)
	if pos == nil {
		exchange, sym := "", symbol
		if before, after, found := strings.Cut(symbol, ":"); found {
			exchange, sym = before, after
		}
		pos = &position{symbol: sym, exchange: exchange, fullName: sym, data: map[string]float64{}}
		p.positions[exchange+":"+sym] = pos
	}

	delta := shares
	if entry.Data.Type == "Sell" {
		delta = -shares
	}
	pos.data["shares"] += delta
	pos.updated = time.Now().UTC()

	tx := Transaction{
		PortfolioID:  id,
		Symbol:       symbol,
		Type:         entry.Data.Type,
		Date:         entry.Data.Date,
		Shares:       shares,
		Price:        price,
		Commission:   commission,
		CurrencyCode: entry.Data.Price.CurrencyCode,
	}
	s.transactions = append(s.transactions, tx)

	writeJSON(w, http.StatusCreated, map[string]any{
		"entry": map[string]any{
			"id": text(fmt.Sprintf("%s/positions/%s:%s/transactions/%d", s.portfolioURL(id), pos.exchange, pos.symbol, len(s.transactions))),
			"gf$transactionData": map[string]any{
				"date":   tx.Date,
				"shares": entry.Data.Shares,
				"type":   tx.Type,
			},
		},
	})
}

func (p *portfolio) findPosition(symbol string) *position {
	if pos, ok := p.positions[symbol]; ok {
		return pos
	}
	for _, pos := range p.positions {
		if pos.symbol == symbol {
			return pos
		}
	}
	return nil
}

func (s *Server) addPortfolioLocked(title, currency string, metrics map[string]string, money map[string]float64) string {
	s.nextID++
	id := strconv.Itoa(s.nextID)
	if metrics == nil {
		metrics = map[string]string{}
	}
	s.portfolios[id] = &portfolio{
		id:        id,
		title:     title,
		currency:  currency,
		updated:   time.Date(2011, 6, 1, 12, 0, 0, 0, time.UTC),
		metrics:   metrics,
		money:     money,
		positions: make(map[string]*position),
	}
	return id
}

func (s *Server) portfolioURL(id string) string {
	return s.FeedURL() + "/" + id
}

func (s *Server) feedJSON(entries []any) map[string]any {
	feed := map[string]any{
		"title": text("Portfolio Feed"),
	}
	if len(entries) > 0 || !s.emptyFeeds {
		feed["entry"] = entries
	}
	return map[string]any{"version": "1.0", "feed": feed}
}

func (s *Server) portfolioJSON(p *portfolio, returns bool) map[string]any {
	self := s.portfolioURL(p.id)

	data := map[string]any{"currencyCode": p.currency}
	if returns {
		for k, v := range p.metrics {
			data[k] = v
		}
		for k, v := range p.money {
			data["gf$"+k] = moneyJSON(v, p.currency)
		}
	}

	return map[string]any{
		"id":      text(self),
		"updated": text(p.updated.Format("2006-01-02T15:04:05.000Z")),
		"title":   map[string]string{"$t": p.title, "type": "text"},
		"gd$etag": fmt.Sprintf(`W/"etag-%s"`, p.id),
		"link": []map[string]string{
			{"rel": "alternate", "type": "text/html", "href": s.URL + "/finance/portfolio?action=view&pid=" + p.id},
			{"rel": "self", "type": "application/atom+xml", "href": self},
			{"rel": "edit", "type": "application/atom+xml", "href": self},
		},
		"gd$feedLink":      map[string]string{"href": self + "/positions"},
		"gf$portfolioData": data,
	}
}

func (s *Server) positionJSON(p *portfolio, pos *position) map[string]any {
	self := fmt.Sprintf("%s/positions/%s:%s", s.portfolioURL(p.id), pos.exchange, pos.symbol)

	data := map[string]any{}
	for k, v := range pos.data {
		data[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return map[string]any{
		"id":      text(self),
		"updated": text(pos.updated.Format("2006-01-02T15:04:05.000Z")),
		"title":   map[string]string{"$t": pos.fullName, "type": "text"},
		"link": []map[string]string{
			{"rel": "self", "type": "application/atom+xml", "href": self},
		},
		"gd$feedLink": map[string]string{"href": self + "/transactions"},
		"gf$symbol": map[string]string{
			"symbol":   pos.symbol,
			"exchange": pos.exchange,
			"fullName": pos.fullName,
		},
		"gf$positionData": data,
	}
}

func moneyJSON(amount float64, currency string) map[string]any {
	return map[string]any{
		"gd$money": []map[string]string{
			{"amount": strconv.FormatFloat(amount, 'f', -1, 64), "currencyCode": currency},
		},
	}
}

func text(s string) map[string]string {
	return map[string]string{"$t": s}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
