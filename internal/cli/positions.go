package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"gfinance/internal/present"
)

type positionsCmd struct{}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "show a portfolio with its positions" }
func (*positionsCmd) Usage() string {
	return `gfinance positions <title>

  Fetches the positions of the portfolio and shows them with its metrics.
`
}

func (*positionsCmd) SetFlags(*flag.FlagSet) {}

func (*positionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("positions takes exactly one title")
	}
	title := f.Arg(0)

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.call(ctx, func(ctx context.Context) error { return a.session.ListPositions(ctx, title) }); err != nil {
		return fail(err)
	}

	p, _ := a.session.Portfolio(title)
	if err := present.WritePortfolio(a.out, p, a.format); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type findCmd struct {
	exchange string
}

func (*findCmd) Name() string     { return "find" }
func (*findCmd) Synopsis() string { return "show the data of one position" }
func (*findCmd) Usage() string {
	return `gfinance find [-x <exchange>] <title> <symbol>

  Shows the positions of the portfolio on the symbol. The symbol may be
  written EXCHANGE:SYMBOL instead of using -x.
`
}

func (c *findCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.exchange, "x", "", "exchange the position must be on")
}

func (c *findCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage("find takes a title and a symbol")
	}
	title := f.Arg(0)
	symbol, exchange := splitSymbol(f.Arg(1), c.exchange)

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	if err := a.call(ctx, func(ctx context.Context) error { return a.session.ListPositions(ctx, title) }); err != nil {
		return fail(err)
	}

	found, err := a.session.FindPosition(title, symbol, exchange)
	if err != nil {
		return fail(err)
	}
	if len(found) == 0 {
		fmt.Fprintf(a.out, "No position on %s in %q\n", f.Arg(1), title)
		return subcommands.ExitSuccess
	}

	for i := range found {
		if err := present.WritePosition(a.out, &found[i], a.format); err != nil {
			return fail(err)
		}
	}
	return subcommands.ExitSuccess
}
