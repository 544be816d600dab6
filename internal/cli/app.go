// Package cli implements the gfinance command line over one finance session.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"gfinance/internal/broker/finance"
	"gfinance/internal/broker/finance/financetest"
	"gfinance/internal/config"
	apperrors "gfinance/internal/errors"
	"gfinance/internal/present"
)

// Register adds the subcommands to c, grouped by topic.
func Register(c *subcommands.Commander) {
	c.Register(&portfoliosCmd{}, "portfolios")
	c.Register(&createCmd{}, "portfolios")
	c.Register(&deleteCmd{}, "portfolios")

	c.Register(&positionsCmd{}, "positions")
	c.Register(&findCmd{}, "positions")

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")

	c.Register(&demoCmd{}, "")
}

// A CLI process is short lived, global flags are fine.
var (
	formatFlag  = flag.String("format", string(present.FormatTerminal), "output format: markdown, terminal or plain")
	emailFlag   = flag.String("email", "", "account email, defaults to $GFINANCE_EMAIL")
	offlineFlag = flag.Bool("offline", false, "run against an in-process fake service seeded with sample data")
)

// stdout receives command output.
var stdout io.Writer = os.Stdout

const (
	offlineIdentity = "demo@example.com"
	offlineSecret   = "demo"
)

// app is the state shared by one command run.
type app struct {
	session *finance.Session
	format  present.Format
	out     io.Writer
	close   func()
}

// openApp builds an authenticated session with the portfolio list fetched.
func openApp(ctx context.Context) (*app, error) {
	format, err := present.ParseFormat(*formatFlag)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "invalid -format", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{format: format, out: stdout, close: func() {}}

	identity := *emailFlag
	if identity == "" {
		identity = cfg.Email
	}
	var secret string

	if *offlineFlag {
		srv := newOfflineServer()
		cfg.AuthURL = srv.AuthURL()
		cfg.FeedURL = srv.FeedURL()
		identity, secret = offlineIdentity, offlineSecret
		a.close = srv.Close
	} else {
		if identity == "" {
			return nil, apperrors.ValidationField("email", "set -email or GFINANCE_EMAIL")
		}
		if secret, err = readPassword(cfg); err != nil {
			return nil, err
		}
	}

	gateway := finance.NewHTTPGateway(&http.Client{Timeout: cfg.Timeout}, cfg.RequestsPerSecond)
	a.session, err = finance.NewSession(gateway, finance.OptionsFromConfig(cfg))
	if err != nil {
		a.close()
		return nil, err
	}

	if err := a.session.Login(ctx, identity, secret); err != nil {
		a.close()
		return nil, err
	}
	if err := a.call(ctx, a.session.ListPortfolios); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// call runs fn and, when the service refuses the token, logs in again with
// the sealed credentials and runs it once more.
func (a *app) call(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if code, ok := apperrors.StatusCode(err); !ok || code != http.StatusUnauthorized {
		return err
	}
	if err := a.session.Relogin(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

// readPassword takes the secret from the configuration or prompts for it.
func readPassword(cfg *config.Config) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", apperrors.ValidationField("password", "set GFINANCE_PASSWORD when stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// newOfflineServer starts a fake service holding a small sample account.
func newOfflineServer() *financetest.Server {
	srv := financetest.NewServer(offlineIdentity, offlineSecret)

	id := srv.AddPortfolio("My Portfolio", "USD",
		map[string]string{"gainPercentage": "0.0523", "return1w": "-0.01", "totalGain": "1234.56"},
		map[string]float64{"marketValue": 11500.75, "costBasis": 10266.19})
	srv.AddPosition(id, "NASDAQ", "GOOG", "Google Inc.", map[string]float64{"shares": 10, "gainPercentage": 0.25})
	srv.AddPosition(id, "NASDAQ", "AAPL", "Apple Inc.", map[string]float64{"shares": 25, "gainPercentage": 0.4})
	srv.AddPosition(id, "NYSE", "IBM", "International Business Machines", map[string]float64{"shares": 5})

	return srv
}

// fail reports err and maps it to the process exit status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitStatus(apperrors.ExitCode(err))
}

func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}

// parseDate accepts a day or a full RFC 3339 timestamp. Empty means now.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// splitSymbol accepts EXCHANGE:SYMBOL as a shorthand for -x.
func splitSymbol(s, exchange string) (string, string) {
	if before, after, ok := strings.Cut(s, ":"); ok && exchange == "" {
		return after, before
	}
	return s, exchange
}
