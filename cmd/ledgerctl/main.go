// ledgerctl 操作 FinanceLedger 服務的命令列工具
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// register 註冊所有子命令
func register(c *subcommands.Commander) {
	c.Register(&depositCmd{}, "operations")
	c.Register(&withdrawCmd{}, "operations")
	c.Register(&loanCmd{}, "operations")
	c.Register(&repayCmd{}, "operations")
	c.Register(&investCmd{}, "operations")
	c.Register(&redeemCmd{}, "operations")
	c.Register(&expenseCmd{}, "operations")
	c.Register(&budgetCmd{}, "operations")
	c.Register(&goalCmd{}, "operations")
	c.Register(&contributeCmd{}, "operations")

	c.Register(&balanceCmd{}, "queries")
	c.Register(&historyCmd{}, "queries")
	c.Register(&monthCmd{}, "queries")
	c.Register(&summaryCmd{}, "queries")
	c.Register(&watchCmd{}, "queries")

	c.Register(&benchCmd{}, "tools")
	c.Register(&archiveCmd{}, "tools")
}
