package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/subcommands"

	"github.com/JoeShih716/go-mem-finance/rpc"
)

// benchCmd 壓力測試：並發送出大量小額存款，量測 TPS
type benchCmd struct {
	total       int
	concurrency int
	amount      string
	duration    time.Duration
}

func (*benchCmd) Name() string     { return "bench" }
func (*benchCmd) Synopsis() string { return "load test the server with concurrent deposits" }
func (*benchCmd) Usage() string {
	return `ledgerctl bench [-n <requests>] [-c <concurrency>] [-amount <value>] [-d <duration>]

  Every request is a deposit with a fresh command id against -owner.
`
}

func (c *benchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.total, "n", 100000, "total number of requests")
	f.IntVar(&c.concurrency, "c", 1000, "number of requests in flight")
	f.StringVar(&c.amount, "amount", "0.01", "amount of each deposit")
	f.DurationVar(&c.duration, "d", 120*time.Second, "overall deadline")
}

func (c *benchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.total <= 0 || c.concurrency <= 0 {
		return usage(f, "-n and -c must be positive")
	}
	amt, err := parseAmount(c.amount)
	if err != nil {
		return usage(nil, "%v", err)
	}
	s, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, c.duration)
	defer cancel()

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	wg.Add(c.total)
	sem := make(chan struct{}, c.concurrency)

	startTime := time.Now()
	for i := 0; i < c.total; i++ {
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := s.client.Deposit(ctx, &rpc.DepositRequest{Amount: amt})
			if err != nil {
				// 只抽樣記錄，避免洗版
				if failed.Add(1)%1000 == 1 {
					log.Printf("Deposit %d failed: %s", idx, explain(err))
				}
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("Completed %d requests in %v (%d failed)\n", c.total, elapsed, failed.Load())
	fmt.Printf("TPS: %.2f\n", float64(c.total)/elapsed.Seconds())
	if failed.Load() > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
