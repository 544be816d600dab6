package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"gfinance/internal/broker/finance"
	"gfinance/internal/models"
)

// txFlags are the options shared by buy and sell.
type txFlags struct {
	commission float64
	currency   string
	date       string
}

func (t *txFlags) register(f *flag.FlagSet) {
	f.Float64Var(&t.commission, "commission", 0, "commission paid")
	f.StringVar(&t.currency, "c", finance.DefaultCurrency, "currency of price and commission")
	f.StringVar(&t.date, "d", "", "transaction date, YYYY-MM-DD or RFC 3339 (default now)")
}

func (t *txFlags) execute(ctx context.Context, kind models.TransactionKind, f *flag.FlagSet) subcommands.ExitStatus {
	if f.NArg() != 4 {
		return usage("%s takes a title, a symbol, a number of shares and a price", kind)
	}
	title, symbol := f.Arg(0), f.Arg(1)

	shares, err := strconv.ParseFloat(f.Arg(2), 64)
	if err != nil {
		return usage("invalid shares %q", f.Arg(2))
	}
	price, err := strconv.ParseFloat(f.Arg(3), 64)
	if err != nil {
		return usage("invalid price %q", f.Arg(3))
	}
	when, err := parseDate(t.date)
	if err != nil {
		return usage("%v", err)
	}

	opts := []finance.TransactionOption{
		finance.WithCommission(t.commission),
		finance.WithTransactionCurrency(t.currency),
	}
	if !when.IsZero() {
		opts = append(opts, finance.WithTimestamp(when))
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	var res *finance.TransactionResult
	err = a.call(ctx, func(ctx context.Context) error {
		var err error
		res, err = a.session.SubmitTransaction(ctx, kind, title, symbol, shares, price, opts...)
		return err
	})
	if res != nil {
		fmt.Fprintf(a.out, "%s of %v %s at %v %s accepted (status %d)\n",
			kind, shares, symbol, price, res.Transaction.CurrencyCode, res.StatusCode)
	}
	if err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type buyCmd struct {
	txFlags
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase" }
func (*buyCmd) Usage() string {
	return `gfinance buy [-commission <amount>] [-c <currency>] [-d <date>] <title> <symbol> <shares> <price>

  Records a Buy transaction on the position of the portfolio. Run
  'gfinance positions' afterwards to see the updated position.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.execute(ctx, models.Buy, f)
}

type sellCmd struct {
	txFlags
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale" }
func (*sellCmd) Usage() string {
	return `gfinance sell [-commission <amount>] [-c <currency>] [-d <date>] <title> <symbol> <shares> <price>

  Records a Sell transaction on the position of the portfolio.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.execute(ctx, models.Sell, f)
}
