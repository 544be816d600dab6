package financetest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func login(t *testing.T, s *Server, secret string) *http.Response {
	t.Helper()
	resp, err := s.Client().PostForm(s.AuthURL(), url.Values{
		"Email":   {s.Identity},
		"Passwd":  {secret},
		"service": {"finance"},
	})
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, s *Server, path, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, s.URL+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "GoogleLogin auth="+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Login(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()

	resp := login(t, s, "pw")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Auth="+s.Token) {
		t.Errorf("body = %q", body)
	}

	if resp := login(t, s, "nope"); resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong secret status = %d, want 403", resp.StatusCode)
	}
}

func TestServer_RequiresToken(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()

	if resp := get(t, s, feedPath, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}
	if resp := get(t, s, feedPath, s.Token); resp.StatusCode != http.StatusOK {
		t.Errorf("status with token = %d, want 200", resp.StatusCode)
	}
	if s.RequestCount() != 2 {
		t.Errorf("RequestCount() = %d, want 2", s.RequestCount())
	}
}

func TestServer_Override(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()

	s.Override(RouteListPortfolios, http.StatusTeapot, "short and stout")
	resp := get(t, s, feedPath, s.Token)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusTeapot || string(body) != "short and stout" {
		t.Errorf("overridden response = %d %q", resp.StatusCode, body)
	}

	s.ClearOverride(RouteListPortfolios)
	if resp := get(t, s, feedPath, s.Token); resp.StatusCode != http.StatusOK {
		t.Errorf("status after clear = %d, want 200", resp.StatusCode)
	}
}

func TestServer_EmptyFeed(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()

	body, _ := io.ReadAll(get(t, s, feedPath, s.Token).Body)
	if !strings.Contains(string(body), `"entry":[]`) {
		t.Errorf("empty feed = %s, want an empty entry list", body)
	}

	s.OmitEmptyEntries(true)
	body, _ = io.ReadAll(get(t, s, feedPath, s.Token).Body)
	if strings.Contains(string(body), `"entry"`) {
		t.Errorf("empty feed = %s, want no entry key", body)
	}
}

func TestServer_Quota(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()
	s.SetQuota(0.001, 2)

	for i := 0; i < 2; i++ {
		if resp := get(t, s, feedPath, s.Token); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, resp.StatusCode)
		}
	}
	if resp := get(t, s, feedPath, s.Token); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("over quota status = %d, want 503", resp.StatusCode)
	}

	// Other credentials have their own bucket.
	if resp := get(t, s, feedPath, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("other client status = %d, want 401", resp.StatusCode)
	}

	s.SetQuota(0, 0)
	if resp := get(t, s, feedPath, s.Token); resp.StatusCode != http.StatusOK {
		t.Errorf("status after removing quota = %d, want 200", resp.StatusCode)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	if got := clientKey(req); got != "127.0.0.1:12345" {
		t.Errorf("clientKey() = %q, want the remote address", got)
	}

	req.Header.Set("Authorization", "GoogleLogin auth=x")
	if got := clientKey(req); got != "GoogleLogin auth=x" {
		t.Errorf("clientKey() = %q, want the token", got)
	}
}

func TestServer_Transaction(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()
	id := s.AddPortfolio("P", "USD", nil, nil)

	body := `<entry xmlns="http://www.w3.org/2005/Atom" xmlns:gf="http://schemas.google.com/finance/2007" xmlns:gd="http://schemas.google.com/g/2005">` +
		`<gf:transactionData date="2011-06-01T00:00:00" shares="3.0" type="Buy">` +
		`<gf:commission><gd:money amount="0.0" currencyCode="USD"/></gf:commission>` +
		`<gf:price><gd:money amount="10.5" currencyCode="USD"/></gf:price>` +
		`</gf:transactionData></entry>`

	req, _ := http.NewRequest(http.MethodPost, s.FeedURL()+"/"+id+"/positions/NYSE:IBM/transactions", strings.NewReader(body))
	req.Header.Set("Authorization", "GoogleLogin auth="+s.Token)
	req.Header.Set("Content-Type", "application/atom+xml")
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("POST transaction: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	txs := s.Transactions()
	if len(txs) != 1 || txs[0].Shares != 3 || txs[0].Price != 10.5 || txs[0].Symbol != "NYSE:IBM" {
		t.Errorf("Transactions() = %+v", txs)
	}

	positions, _ := io.ReadAll(get(t, s, feedPath+"/"+id+"/positions", s.Token).Body)
	if !strings.Contains(string(positions), `"symbol":"IBM"`) || !strings.Contains(string(positions), `"shares":"3"`) {
		t.Errorf("positions after transaction = %s", positions)
	}
}

func TestServer_ExpireToken(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()

	old := s.Token
	s.ExpireToken()
	if s.Token == old {
		t.Fatal("ExpireToken() kept the token")
	}
	if resp := get(t, s, feedPath, old); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", resp.StatusCode)
	}

	body, _ := io.ReadAll(login(t, s, "pw").Body)
	if !strings.Contains(string(body), "Auth="+s.Token) {
		t.Errorf("login after expiry = %q, want the new token", body)
	}
	if resp := get(t, s, feedPath, s.Token); resp.StatusCode != http.StatusOK {
		t.Errorf("new token status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_AddAccount(t *testing.T) {
	s := NewServer("a@example.com", "pw")
	defer s.Close()
	s.AddAccount("b@example.com", "pw2")

	form := url.Values{"Email": {"b@example.com"}, "Passwd": {"pw2"}, "service": {"finance"}}
	resp, err := s.Client().PostForm(s.AuthURL(), form)
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("second account status = %d, want 200", resp.StatusCode)
	}

	form.Set("Passwd", "pw")
	resp, err = s.Client().PostForm(s.AuthURL(), form)
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong secret status = %d, want 403", resp.StatusCode)
	}
}
