package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/adapter/out/postgres"
)

// archiveCmd 直接從 Postgres 讀取已封存的事件，不經過 gRPC
type archiveCmd struct {
	dsn   string
	after uint64
	limit int
}

func (*archiveCmd) Name() string     { return "archive" }
func (*archiveCmd) Synopsis() string { return "read archived events of -owner from Postgres" }
func (*archiveCmd) Usage() string {
	return `ledgerctl archive [-dsn <postgres-url>] [-after <seq>] [-limit <n>]

  Prints events with a sequence greater than -after, oldest first, as JSON lines.
`
}

func (c *archiveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "dsn", os.Getenv("LEDGER_POSTGRES_DSN"), "postgres connection string (defaults to $LEDGER_POSTGRES_DSN)")
	f.Uint64Var(&c.after, "after", 0, "only events after this command sequence")
	f.IntVar(&c.limit, "limit", 100, "maximum number of events")
}

func (c *archiveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dsn == "" {
		return usage(f, "missing -dsn")
	}
	if *ownerID == "" {
		return usage(nil, "missing -owner (or $LEDGER_OWNER)")
	}

	ctx, cancel := callContext(ctx)
	defer cancel()

	store, err := postgres.NewEventStore(ctx, c.dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	events, err := store.Events(ctx, *ownerID, c.after, c.limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	enc := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
