package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"gfinance/internal/broker/finance"
	"gfinance/internal/present"
)

type demoCmd struct {
	portfolio string
	symbol    string
	shares    float64
	price     float64
}

func (*demoCmd) Name() string     { return "demo" }
func (*demoCmd) Synopsis() string { return "walk through a full session" }
func (*demoCmd) Usage() string {
	return `gfinance [-offline] demo [-p <title>] [-s <symbol>]

  Lists the portfolios, shows the positions of one portfolio, buys and sells
  the same lot of a symbol, then creates and deletes a scratch portfolio.
  Use -offline to run it against sample data.
`
}

func (c *demoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "My Portfolio", "portfolio to trade in")
	f.StringVar(&c.symbol, "s", "NASDAQ:GOOG", "symbol to trade")
	f.Float64Var(&c.shares, "n", 500, "shares to buy then sell")
	f.Float64Var(&c.price, "price", 450.54, "price per share")
}

func (c *demoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := c.run(ctx, a); err != nil {
		return fail(err)
	}
	fmt.Fprintln(a.out, "Done.")
	return subcommands.ExitSuccess
}

func (c *demoCmd) run(ctx context.Context, a *app) error {
	s := a.session

	if err := present.WritePortfolios(a.out, s.Portfolios(), a.format); err != nil {
		return err
	}
	if err := c.showPositions(ctx, a); err != nil {
		return err
	}

	symbol, exchange := splitSymbol(c.symbol, "")
	found, err := s.FindPosition(c.portfolio, symbol, exchange)
	if err != nil {
		return err
	}
	for i := range found {
		if err := present.WritePosition(a.out, &found[i], a.format); err != nil {
			return err
		}
	}

	if _, err := s.Buy(ctx, c.portfolio, c.symbol, c.shares, c.price); err != nil {
		return err
	}
	if err := c.showPositions(ctx, a); err != nil {
		return err
	}

	if _, err := s.Sell(ctx, c.portfolio, c.symbol, c.shares, c.price); err != nil {
		return err
	}
	if err := c.showPositions(ctx, a); err != nil {
		return err
	}

	scratch := fmt.Sprintf("Testing %d", time.Now().Unix())
	if err := s.CreatePortfolio(ctx, scratch, finance.WithCurrency(finance.DefaultCurrency)); err != nil {
		return err
	}
	if err := present.WritePortfolios(a.out, s.Portfolios(), a.format); err != nil {
		return err
	}
	return s.DeletePortfolio(ctx, scratch)
}

func (c *demoCmd) showPositions(ctx context.Context, a *app) error {
	if err := a.call(ctx, func(ctx context.Context) error { return a.session.ListPositions(ctx, c.portfolio) }); err != nil {
		return err
	}
	p, _ := a.session.Portfolio(c.portfolio)
	return present.WritePortfolio(a.out, p, a.format)
}
