package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/pkg/amount"
)

// printMarkdown 在終端機渲染 markdown，渲染失敗時直接輸出原文
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "warning: cannot render markdown: %v\n", err)
	fmt.Print(md)
}

// historyMarkdown 交易紀錄表格，最新的在最上面
// limit <= 0 代表全部
func historyMarkdown(txs []domain.Transaction, code string, limit int) string {
	var b strings.Builder
	b.WriteString("# Transactions\n\n")
	if len(txs) == 0 {
		b.WriteString("_no transactions yet_\n")
		return b.String()
	}
	b.WriteString("| Date | Type | Amount | Details |\n")
	b.WriteString("|:---|:---|---:|:---|\n")
	shown := 0
	for i := len(txs) - 1; i >= 0; i-- {
		if limit > 0 && shown == limit {
			break
		}
		tx := txs[i]
		sign := "-"
		if tx.Type.Credit() {
			sign = "+"
		}
		fmt.Fprintf(&b, "| %s | %s | %s%s | %s |\n",
			time.Unix(tx.Timestamp, 0).UTC().Format(time.DateTime),
			tx.Type,
			sign, amount.Format(tx.Amount, code),
			escapeCell(tx.Details))
		shown++
	}
	return b.String()
}

// summaryMarkdown 儀表板總覽
func summaryMarkdown(owner string, s *domain.Summary, code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Account %s\n\n", escapeCell(owner))
	fmt.Fprintf(&b, "* Balance: **%s**\n", amount.Format(s.Balance, code))
	fmt.Fprintf(&b, "* Transactions: %d\n", s.TransactionCount)
	fmt.Fprintf(&b, "* Active loans: %d (%s outstanding)\n", s.ActiveLoanCount, amount.Format(s.OutstandingLoans, code))
	fmt.Fprintf(&b, "* Invested: %s\n", amount.Format(s.ActiveInvestments, code))
	fmt.Fprintf(&b, "* Saved in open goals: %s\n", amount.Format(s.ActiveSavings, code))

	if len(s.ExpensesByCategory) > 0 {
		b.WriteString("\n## Expenses by category\n\n")
		b.WriteString("| Category | Amount |\n")
		b.WriteString("|:---|---:|\n")
		for _, c := range s.ExpensesByCategory {
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(c.Category), amount.Format(c.Amount, code))
		}
	}

	if len(s.BudgetUsage) > 0 {
		b.WriteString("\n## Budgets this month\n\n")
		b.WriteString("| Category | Budget | Spent | Remaining |\n")
		b.WriteString("|:---|---:|---:|---:|\n")
		for _, u := range s.BudgetUsage {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escapeCell(u.Category),
				amount.Format(u.Budget, code),
				amount.Format(u.Spent, code),
				amount.Format(u.Remaining(), code))
		}
	}

	if len(s.Last7Days) > 0 {
		b.WriteString("\n## Last 7 days\n\n")
		b.WriteString("| Day | Amount |\n")
		b.WriteString("|:---|---:|\n")
		for _, d := range s.Last7Days {
			day := d.Date
			if t, err := time.Parse(time.DateOnly, d.Date); err == nil {
				day = t.Format("Mon 01/02")
			}
			fmt.Fprintf(&b, "| %s | %s |\n", day, amount.Format(d.Amount, code))
		}
	}
	return b.String()
}

// escapeCell 表格儲存格內不能有 | 與換行
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
