package finance

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "gfinance/internal/errors"
)

const (
	defaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-ID"
)

// Request is one call the session asks the gateway to make.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the uninterpreted answer of the service.
type Response struct {
	StatusCode int
	Body       []byte
}

// Gateway performs requests against the service. Implementations must not
// interpret the status, cache or retry; non-2xx answers are not errors.
type Gateway interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPGateway is a Gateway over net/http.
type HTTPGateway struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPGateway creates a gateway on httpClient (a client with the default
// timeout when nil), paced to requestsPerSecond. A non-positive rate disables pacing.
func NewHTTPGateway(httpClient *http.Client, requestsPerSecond float64) *HTTPGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &HTTPGateway{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Do executes req and returns the status code and raw body.
func (g *HTTPGateway) Do(ctx context.Context, req Request) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Transport("waiting for rate limiter", err)
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, apperrors.Transport("building request", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("[Finance] %s %s failed (request %s): %v", req.Method, httpReq.URL.Path, requestID, err)
		return nil, apperrors.Transport(req.Method+" "+httpReq.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport("reading response body", err)
	}

	log.Printf("[Finance] %s %s -> %d (request %s)", req.Method, httpReq.URL.Path, resp.StatusCode, requestID)

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
