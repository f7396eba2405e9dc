package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"convert_go/internal/app"
	"convert_go/internal/domain"
	"convert_go/internal/infra"
	"convert_go/internal/stats"
)

const usage = `usage: router <command> [flags]

commands:
  convert        create and/or route a conversion
  update-prices  record the current price of every target market
  purge-prices   delete price history older than the retention
  stats          build, print and archive the statistics report
  balances       print positive settled and pending balances
  serve          run the price jobs and the metrics endpoint
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		slog.Error("Command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to config.yaml")

	var handler func(context.Context, *app.Bootstrap) error
	switch cmd {
	case "convert":
		id := fs.String("id", "", "route an existing pending conversion")
		user := fs.String("user", "", "user id for a new conversion")
		from := fs.String("from", "", "source currency")
		to := fs.String("to", "", "target currency")
		amount := fs.String("amount", "", "amount of the source currency")
		rate := fs.String("rate", "0", "quoted rate (required when converting to USDS)")
		handler = func(ctx context.Context, b *app.Bootstrap) error {
			return convert(ctx, b, out, *id, *user, *from, *to, *amount, *rate)
		}
	case "update-prices":
		handler = func(ctx context.Context, b *app.Bootstrap) error {
			n, err := b.Updater.UpdateMarketPrices(ctx)
			fmt.Fprintf(out, "recorded %d prices\n", n)
			return err
		}
	case "purge-prices":
		handler = func(ctx context.Context, b *app.Bootstrap) error {
			n, err := b.Updater.PurgeOldPrices(ctx)
			fmt.Fprintf(out, "purged %d rows\n", n)
			return err
		}
	case "stats":
		keep := fs.Int("keep", 30, "number of archived reports to keep")
		latest := fs.Bool("latest", false, "print the last archived report instead of building one")
		handler = func(ctx context.Context, b *app.Bootstrap) error {
			return report(ctx, b, out, *latest, *keep)
		}
	case "balances":
		handler = func(ctx context.Context, b *app.Bootstrap) error {
			bal, err := b.Reporter.PositiveBalances(ctx)
			if err != nil {
				return err
			}
			return stats.Render(out, &stats.Report{Balances: bal})
		}
	case "serve":
		handler = func(ctx context.Context, b *app.Bootstrap) error {
			infra.PrintBanner(out, b.Config)
			return b.Serve(ctx)
		}
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	b := app.NewBootstrap()
	if err := b.Initialize(ctx, *cfgPath); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer b.Close()

	return handler(ctx, b)
}

func convert(ctx context.Context, b *app.Bootstrap, out io.Writer, id, user, from, to, amount, rate string) error {
	if id == "" {
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		r, err := decimal.NewFromString(rate)
		if err != nil {
			return fmt.Errorf("invalid rate %q: %w", rate, err)
		}
		c, err := b.NewConversion(ctx, user, domain.ParseCurrency(from), domain.ParseCurrency(to), amt, r)
		if err != nil {
			return err
		}
		id = c.ID
	}

	outcome, err := b.Convert(ctx, id)
	if err != nil {
		return err
	}

	printOutcome(out, outcome)
	if outcome.Status == domain.StatusError {
		return fmt.Errorf("conversion %s failed: %s", id, outcome.ErrorDetail)
	}
	return nil
}

func report(ctx context.Context, b *app.Bootstrap, out io.Writer, latest bool, keep int) error {
	if latest {
		rep, err := b.Archive.LoadLatest()
		if err != nil {
			return err
		}
		if rep == nil {
			return errors.New("no archived report")
		}
		return stats.Render(out, rep)
	}

	rep, err := b.Reporter.Build(ctx)
	if err != nil {
		return err
	}
	if err := stats.Render(out, rep); err != nil {
		return err
	}
	if err := b.Archive.Save(rep); err != nil {
		return err
	}
	return b.Archive.Cleanup(keep)
}

func printOutcome(w io.Writer, o domain.ConversionOutcome) {
	fmt.Fprintf(w, "conversion %s: %s\n", o.ConversionID, o.Status)
	if o.ErrorDetail != "" {
		fmt.Fprintf(w, "error: %s\n", o.ErrorDetail)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, leg := range o.Legs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			leg.Provider, leg.Venue, leg.Symbol, leg.Side, leg.Size, leg.OrderID, leg.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}
