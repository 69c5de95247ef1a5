package domain

import (
	"sort"
	"time"
)

// MonthExpenses 加總指定分類在某年某月的支出；未知分類回傳 0
//
// 參數:
//
//	category: 支出分類
//	month, year: 月份與年份
//	loc: 判斷時間戳所屬月份使用的時區
func (a *Account) MonthExpenses(category string, month time.Month, year int, loc *time.Location) int64 {
	var total int64
	for _, e := range a.Expenses {
		if e.Category != category {
			continue
		}
		t := time.Unix(e.Timestamp, 0).In(loc)
		if t.Month() == month && t.Year() == year {
			total += e.Amount
		}
	}
	return total
}

// ActiveLoans 回傳仍未還清的貸款索引
func (a *Account) ActiveLoans() []int {
	var out []int
	for i, l := range a.Loans {
		if l.Active && !l.Repaid {
			out = append(out, i)
		}
	}
	return out
}

// ActiveInvestments 回傳尚未贖回的投資索引
func (a *Account) ActiveInvestments() []int {
	var out []int
	for i, inv := range a.Investments {
		if inv.Active {
			out = append(out, i)
		}
	}
	return out
}

// CategoryAmount 分類與金額
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

// BudgetUsage 當月預算與實際支出比較
type BudgetUsage struct {
	Category string `json:"category"`
	Budget   int64  `json:"budget"`
	Spent    int64  `json:"spent"`
}

// Remaining 預算剩餘，超支時為負數
func (u BudgetUsage) Remaining() int64 {
	return u.Budget - u.Spent
}

// SummaryDays 總覽中每日交易金額涵蓋的天數
const SummaryDays = 7

// DailyTotal 某一天所有交易金額的加總，不分交易類型
type DailyTotal struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Amount int64  `json:"amount"`
}

// DailyTotals 回傳最近 days 天 (含 now 當天) 每天的交易金額加總，最舊的一天在前。
// 日期以 now 的時區切分，沒有交易的日子金額為 0
func (a *Account) DailyTotals(now time.Time, days int) []DailyTotal {
	if days <= 0 {
		return []DailyTotal{}
	}
	out := make([]DailyTotal, days)
	index := make(map[string]int, days)
	y, m, d := now.Date()
	for i := range out {
		day := time.Date(y, m, d-(days-1-i), 0, 0, 0, 0, now.Location()).Format(time.DateOnly)
		out[i].Date = day
		index[day] = i
	}
	for _, t := range a.Transactions {
		day := time.Unix(t.Timestamp, 0).In(now.Location()).Format(time.DateOnly)
		if i, ok := index[day]; ok {
			out[i].Amount += t.Amount
		}
	}
	return out
}

// Summary 儀表板總覽
type Summary struct {
	Balance            int64            `json:"balance"`
	TransactionCount   int              `json:"transactionCount"`
	ExpensesByCategory []CategoryAmount `json:"expensesByCategory"`
	BudgetUsage        []BudgetUsage    `json:"budgetUsage"`
	ActiveLoanCount    int              `json:"activeLoanCount"`
	OutstandingLoans   int64            `json:"outstandingLoans"`
	ActiveInvestments  int64            `json:"activeInvestments"`
	ActiveSavings      int64            `json:"activeSavings"`
	// Last7Days 最近 SummaryDays 天每日的交易金額，最舊在前
	Last7Days []DailyTotal `json:"last7Days"`
}

// Summarize 計算儀表板總覽，now 決定「本月」
func (a *Account) Summarize(now time.Time) *Summary {
	s := &Summary{
		Balance:            a.Balance,
		TransactionCount:   len(a.Transactions),
		ExpensesByCategory: []CategoryAmount{},
		BudgetUsage:        []BudgetUsage{},
	}

	byCategory := make(map[string]int64)
	for _, e := range a.Expenses {
		byCategory[e.Category] += e.Amount
	}
	for c, amt := range byCategory {
		s.ExpensesByCategory = append(s.ExpensesByCategory, CategoryAmount{Category: c, Amount: amt})
	}
	sort.Slice(s.ExpensesByCategory, func(i, j int) bool {
		return s.ExpensesByCategory[i].Category < s.ExpensesByCategory[j].Category
	})

	// 只比較本月預算，順序沿用預算寫入順序
	for _, b := range a.Budgets {
		if b.Month != int(now.Month()) || b.Year != now.Year() {
			continue
		}
		s.BudgetUsage = append(s.BudgetUsage, BudgetUsage{
			Category: b.Category,
			Budget:   b.Amount,
			Spent:    a.MonthExpenses(b.Category, now.Month(), now.Year(), now.Location()),
		})
	}

	for _, i := range a.ActiveLoans() {
		s.ActiveLoanCount++
		s.OutstandingLoans += a.Loans[i].Amount
	}
	for _, i := range a.ActiveInvestments() {
		s.ActiveInvestments += a.Investments[i].Amount
	}
	for _, g := range a.SavingsGoals {
		if !g.Completed {
			s.ActiveSavings += g.CurrentAmount
		}
	}
	s.Last7Days = a.DailyTotals(now, SummaryDays)
	return s
}
