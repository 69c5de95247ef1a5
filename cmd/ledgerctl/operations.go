package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/JoeShih716/go-mem-finance/rpc"
)

// usage 印出參數錯誤
func usage(f *flag.FlagSet, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	if f != nil {
		f.Usage()
	}
	return subcommands.ExitUsageError
}

// printMeta 寫入結果共用的尾碼
func printMeta(m rpc.CommandMeta) string {
	if m.Duplicate {
		return fmt.Sprintf("(seq %d, already applied)", m.Sequence)
	}
	return fmt.Sprintf("(seq %d)", m.Sequence)
}

// depositCmd
type depositCmd struct{ withCommandID }

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "deposit funds into the account" }
func (*depositCmd) Usage() string {
	return `ledgerctl deposit [-id <uuid>] <amount>
`
}
func (c *depositCmd) SetFlags(f *flag.FlagSet) { c.setIDFlag(f) }

func (c *depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "deposit takes exactly one amount")
	}
	amt, err := parseAmount(f.Arg(0))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.Deposit(ctx, &rpc.DepositRequest{CommandID: c.commandID, Amount: amt})
		if err != nil {
			return err
		}
		fmt.Printf("balance: %s %s\n", formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}

// withdrawCmd
type withdrawCmd struct{ withCommandID }

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "withdraw funds from the account" }
func (*withdrawCmd) Usage() string {
	return `ledgerctl withdraw [-id <uuid>] <amount>
`
}
func (c *withdrawCmd) SetFlags(f *flag.FlagSet) { c.setIDFlag(f) }

func (c *withdrawCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "withdraw takes exactly one amount")
	}
	amt, err := parseAmount(f.Arg(0))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.Withdraw(ctx, &rpc.WithdrawRequest{CommandID: c.commandID, Amount: amt})
		if err != nil {
			return err
		}
		fmt.Printf("balance: %s %s\n", formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}

// loanCmd 借款，本金立即入帳
type loanCmd struct {
	withCommandID
	rate int64
	days int64
}

func (*loanCmd) Name() string     { return "loan" }
func (*loanCmd) Synopsis() string { return "take a loan; the principal is credited immediately" }
func (*loanCmd) Usage() string {
	return `ledgerctl loan [-rate <percent>] [-days <n>] [-id <uuid>] <amount>

  Repayment due is principal + principal*rate/100, rounded down.
`
}

func (c *loanCmd) SetFlags(f *flag.FlagSet) {
	c.setIDFlag(f)
	f.Int64Var(&c.rate, "rate", 10, "interest rate in percent (0-100)")
	f.Int64Var(&c.days, "days", 30, "loan duration in days")
}

func (c *loanCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "loan takes exactly one amount")
	}
	amt, err := parseAmount(f.Arg(0))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.TakeLoan(ctx, &rpc.TakeLoanRequest{
			CommandID:    c.commandID,
			Amount:       amt,
			InterestRate: c.rate,
			DurationDays: c.days,
		})
		if err != nil {
			return err
		}
		fmt.Printf("loan #%d, balance: %s %s\n", resp.Index, formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}

// repayCmd 一次還清貸款
type repayCmd struct{ withCommandID }

func (*repayCmd) Name() string     { return "repay" }
func (*repayCmd) Synopsis() string { return "repay a loan in full" }
func (*repayCmd) Usage() string {
	return `ledgerctl repay [-id <uuid>] <loan-index> <payment>
`
}
func (c *repayCmd) SetFlags(f *flag.FlagSet) { c.setIDFlag(f) }

func (c *repayCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage(f, "repay takes a loan index and a payment")
	}
	idx, err := strconv.Atoi(f.Arg(0))
	if err != nil {
		return usage(nil, "invalid loan index %q", f.Arg(0))
	}
	payment, err := parseAmount(f.Arg(1))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.RepayLoan(ctx, &rpc.RepayLoanRequest{CommandID: c.commandID, Index: idx, Payment: payment})
		if err != nil {
			return err
		}
		fmt.Printf("loan #%d repaid, balance: %s %s\n", idx, formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}

// investCmd
type investCmd struct {
	withCommandID
	kind string
}

func (*investCmd) Name() string     { return "invest" }
func (*investCmd) Synopsis() string { return "move funds into an investment" }
func (*investCmd) Usage() string {
	return `ledgerctl invest [-type <label>] [-id <uuid>] <amount>
`
}

func (c *investCmd) SetFlags(f *flag.FlagSet) {
	c.setIDFlag(f)
	f.StringVar(&c.kind, "type", "Stocks", "investment type label")
}

func (c *investCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "invest takes exactly one amount")
	}
	amt, err := parseAmount(f.Arg(0))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.MakeInvestment(ctx, &rpc.MakeInvestmentRequest{CommandID: c.commandID, Amount: amt, InvestmentType: c.kind})
		if err != nil {
			return err
		}
		fmt.Printf("investment #%d, balance: %s %s\n", resp.Index, formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}

// redeemCmd 贖回投資
type redeemCmd struct{ withCommandID }

func (*redeemCmd) Name() string     { return "redeem" }
func (*redeemCmd) Synopsis() string { return "withdraw an investment with its fixed return" }
func (*redeemCmd) Usage() string {
	return `ledgerctl redeem [-id <uuid>] <investment-index>
`
}
func (c *redeemCmd) SetFlags(f *flag.FlagSet) { c.setIDFlag(f) }

func (c *redeemCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage(f, "redeem takes exactly one investment index")
	}
	idx, err := strconv.Atoi(f.Arg(0))
	if err != nil {
		return usage(nil, "invalid investment index %q", f.Arg(0))
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.WithdrawInvestment(ctx, &rpc.WithdrawInvestmentRequest{CommandID: c.commandID, Index: idx})
		if err != nil {
			return err
		}
		fmt.Printf("payout: %s, balance: %s %s\n", formatAmount(resp.Payout), formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}

// expenseCmd
type expenseCmd struct {
	withCommandID
	category string
}

func (*expenseCmd) Name() string     { return "expense" }
func (*expenseCmd) Synopsis() string { return "record an expense" }
func (*expenseCmd) Usage() string {
	return `ledgerctl expense [-category <name>] [-id <uuid>] <amount> <description...>
`
}

func (c *expenseCmd) SetFlags(f *flag.FlagSet) {
	c.setIDFlag(f)
	f.StringVar(&c.category, "category", "Other", "expense category")
}

func (c *expenseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		return usage(f, "expense takes an amount and a description")
	}
	amt, err := parseAmount(f.Arg(0))
	if err != nil {
		return usage(nil, "%v", err)
	}
	desc := strings.Join(f.Args()[1:], " ")
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.AddExpense(ctx, &rpc.AddExpenseRequest{
			CommandID:   c.commandID,
			Amount:      amt,
			Category:    c.category,
			Description: desc,
		})
		if err != nil {
			return err
		}
		fmt.Printf("expense #%d, balance: %s %s\n", resp.Index, formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}

// budgetCmd 設定或覆寫某分類的月預算
type budgetCmd struct {
	withCommandID
	month int
	year  int
}

func (*budgetCmd) Name() string     { return "budget" }
func (*budgetCmd) Synopsis() string { return "set the monthly budget of a category" }
func (*budgetCmd) Usage() string {
	return `ledgerctl budget [-month <1-12>] [-year <yyyy>] [-id <uuid>] <category> <amount>

  Setting the same category, month and year again replaces the amount.
`
}

func (c *budgetCmd) SetFlags(f *flag.FlagSet) {
	now := time.Now()
	c.setIDFlag(f)
	f.IntVar(&c.month, "month", int(now.Month()), "budget month")
	f.IntVar(&c.year, "year", now.Year(), "budget year")
}

func (c *budgetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage(f, "budget takes a category and an amount")
	}
	amt, err := parseAmount(f.Arg(1))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.SetBudget(ctx, &rpc.SetBudgetRequest{
			CommandID: c.commandID,
			Category:  f.Arg(0),
			Amount:    amt,
			Month:     c.month,
			Year:      c.year,
		})
		if err != nil {
			return err
		}
		fmt.Printf("budget #%d: %s %s for %04d-%02d %s\n", resp.Index, f.Arg(0), formatAmount(amt), c.year, c.month, printMeta(resp.CommandMeta))
		return nil
	})
}

// goalCmd 建立儲蓄目標
type goalCmd struct {
	withCommandID
	description string
	deadline    string
}

func (*goalCmd) Name() string     { return "goal" }
func (*goalCmd) Synopsis() string { return "create a savings goal" }
func (*goalCmd) Usage() string {
	return `ledgerctl goal -deadline <yyyy-mm-dd> [-desc <text>] [-id <uuid>] <name> <target>
`
}

func (c *goalCmd) SetFlags(f *flag.FlagSet) {
	c.setIDFlag(f)
	f.StringVar(&c.description, "desc", "", "goal description")
	f.StringVar(&c.deadline, "deadline", "", "goal deadline (yyyy-mm-dd, end of day UTC)")
}

func (c *goalCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage(f, "goal takes a name and a target amount")
	}
	deadline, err := parseDeadline(c.deadline)
	if err != nil {
		return usage(f, "%v", err)
	}
	target, err := parseAmount(f.Arg(1))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.CreateSavingsGoal(ctx, &rpc.CreateSavingsGoalRequest{
			CommandID:    c.commandID,
			Name:         f.Arg(0),
			Description:  c.description,
			TargetAmount: target,
			Deadline:     deadline.Unix(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("goal #%d: %s, target %s by %s %s\n", resp.Index, f.Arg(0), formatAmount(target), deadline.Format(time.DateOnly), printMeta(resp.CommandMeta))
		return nil
	})
}

// parseDeadline 日期取當天最後一秒 (UTC)
func parseDeadline(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing -deadline")
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -deadline %q: %w", s, err)
	}
	return d.Add(24*time.Hour - time.Second), nil
}

// contributeCmd
type contributeCmd struct{ withCommandID }

func (*contributeCmd) Name() string     { return "contribute" }
func (*contributeCmd) Synopsis() string { return "move funds into a savings goal" }
func (*contributeCmd) Usage() string {
	return `ledgerctl contribute [-id <uuid>] <goal-index> <amount>
`
}
func (c *contributeCmd) SetFlags(f *flag.FlagSet) { c.setIDFlag(f) }

func (c *contributeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage(f, "contribute takes a goal index and an amount")
	}
	idx, err := strconv.Atoi(f.Arg(0))
	if err != nil {
		return usage(nil, "invalid goal index %q", f.Arg(0))
	}
	amt, err := parseAmount(f.Arg(1))
	if err != nil {
		return usage(nil, "%v", err)
	}
	return call(ctx, func(ctx context.Context, cl *rpc.Client) error {
		resp, err := cl.ContributeToSavingsGoal(ctx, &rpc.ContributeToSavingsGoalRequest{CommandID: c.commandID, Index: idx, Amount: amt})
		if err != nil {
			return err
		}
		g := resp.Goal
		state := "in progress"
		if g.Completed {
			state = "completed"
		}
		fmt.Printf("%s: %s / %s (%s), balance: %s %s\n", g.Name, formatAmount(g.CurrentAmount), formatAmount(g.TargetAmount), state, formatAmount(resp.Balance), printMeta(resp.CommandMeta))
		return nil
	})
}
