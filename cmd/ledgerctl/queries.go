package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/subcommands"

	"github.com/JoeShih716/go-mem-finance/rpc"
)

// balanceCmd
type balanceCmd struct{}

func (*balanceCmd) Name() string             { return "balance" }
func (*balanceCmd) Synopsis() string         { return "print the current balance" }
func (*balanceCmd) Usage() string            { return "ledgerctl balance\n" }
func (*balanceCmd) SetFlags(f *flag.FlagSet) {}

func (*balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.GetBalance(ctx, &rpc.GetBalanceRequest{})
		if err != nil {
			return err
		}
		fmt.Println(formatAmount(resp.Balance))
		return nil
	})
}

// historyCmd 交易紀錄 (最新在前)
type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list transactions, most recent first" }
func (*historyCmd) Usage() string {
	return `ledgerctl history [-n <count>]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "number of transactions to show (0 for all)")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.GetTransactions(ctx, &rpc.GetTransactionsRequest{})
		if err != nil {
			return err
		}
		printMarkdown(historyMarkdown(resp.Transactions, *currency, c.limit))
		return nil
	})
}

// monthCmd 本月某分類的支出
type monthCmd struct{}

func (*monthCmd) Name() string     { return "month" }
func (*monthCmd) Synopsis() string { return "total expenses of a category in the current month" }
func (*monthCmd) Usage() string {
	return `ledgerctl month <category>
`
}
func (*monthCmd) SetFlags(f *flag.FlagSet) {}

func (*monthCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "month takes exactly one category")
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.GetCurrentMonthExpenses(ctx, &rpc.GetCurrentMonthExpensesRequest{Category: f.Arg(0)})
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", f.Arg(0), formatAmount(resp.Amount))
		return nil
	})
}

// summaryCmd
type summaryCmd struct{}

func (*summaryCmd) Name() string             { return "summary" }
func (*summaryCmd) Synopsis() string         { return "display the account dashboard" }
func (*summaryCmd) Usage() string            { return "ledgerctl summary\n" }
func (*summaryCmd) SetFlags(f *flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.GetSummary(ctx, &rpc.GetSummaryRequest{})
		if err != nil {
			return err
		}
		printMarkdown(summaryMarkdown(*ownerID, resp.Summary, *currency))
		return nil
	})
}

// watchCmd 持續輸出事件 (JSON lines)，Ctrl-C 結束
type watchCmd struct {
	all bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "stream ledger events as JSON lines" }
func (*watchCmd) Usage() string {
	return `ledgerctl watch [-all]
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "receive events of every account")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stream, err := s.client.WatchEvents(ctx, &rpc.WatchEventsRequest{AllOwners: c.all})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", explain(err))
		return subcommands.ExitFailure
	}
	enc := json.NewEncoder(os.Stdout)
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", explain(rpc.FromError(err)))
			return subcommands.ExitFailure
		}
		if err := enc.Encode(ev); err != nil {
			return subcommands.ExitFailure
		}
	}
}
