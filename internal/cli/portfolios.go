package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"gfinance/internal/broker/finance"
	"gfinance/internal/present"
)

type portfoliosCmd struct {
	verbose bool
}

func (*portfoliosCmd) Name() string     { return "portfolios" }
func (*portfoliosCmd) Synopsis() string { return "list the portfolios of the account" }
func (*portfoliosCmd) Usage() string {
	return `gfinance portfolios [-v]

  Lists every portfolio with its currency and last update.
  With -v each portfolio is shown with its metrics.
`
}

func (c *portfoliosCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "show the metrics of every portfolio")
}

func (c *portfoliosCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	portfolios := a.session.Portfolios()
	if !c.verbose {
		if err := present.WritePortfolios(a.out, portfolios, a.format); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	for _, p := range portfolios {
		if err := present.WritePortfolio(a.out, p, a.format); err != nil {
			return fail(err)
		}
	}
	return subcommands.ExitSuccess
}

type createCmd struct {
	currency string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create a portfolio" }
func (*createCmd) Usage() string {
	return `gfinance create [-c <currency>] <title>

  Creates a portfolio with the given title and base currency.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", finance.DefaultCurrency, "three letter currency code")
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("create takes exactly one title")
	}
	title := f.Arg(0)

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	create := func(ctx context.Context) error {
		return a.session.CreatePortfolio(ctx, title, finance.WithCurrency(c.currency))
	}
	if err := a.call(ctx, create); err != nil {
		return fail(err)
	}

	p, _ := a.session.Portfolio(title)
	fmt.Fprintf(a.out, "Created portfolio %q (currency: %s)\n", p.Title, p.CurrencyCode)
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a portfolio" }
func (*deleteCmd) Usage() string {
	return `gfinance delete <title>

  Deletes the portfolio with the given title.
`
}

func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("delete takes exactly one title")
	}
	title := f.Arg(0)

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.call(ctx, func(ctx context.Context) error { return a.session.DeletePortfolio(ctx, title) }); err != nil {
		return fail(err)
	}
	fmt.Fprintf(a.out, "Deleted portfolio %q\n", title)
	return subcommands.ExitSuccess
}
