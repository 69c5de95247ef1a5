package domain

// InvestmentReturnRate 投資固定報酬率 (百分比)，贖回時計算，不隨時間加權
const InvestmentReturnRate = 10

// MaxInterestRate 貸款利率上限 (百分比)
const MaxInterestRate = 100

// ExpenseCategories 前端使用的標準支出分類；引擎不檢查分類是否屬於此集合
var ExpenseCategories = []string{
	"Food",
	"Transportation",
	"Housing",
	"Entertainment",
	"Healthcare",
	"Education",
	"Clothing",
	"Utilities",
	"Insurance",
	"Other",
}

// Loan 貸款
// Active 與 Repaid 只會在一次成功的還款中同時翻轉
type Loan struct {
	Amount       int64 `json:"amount"`
	InterestRate int64 `json:"interestRate"` // 百分比 0-100
	Duration     int64 `json:"duration"`     // 天
	StartTime    int64 `json:"startTime"`
	Active       bool  `json:"active"`
	Repaid       bool  `json:"repaid"`
}

// RequiredRepayment 應還金額 = 本金 + 本金*利率/100 (整數除法，無條件捨去)
func (l Loan) RequiredRepayment() int64 {
	return l.Amount + percentOf(l.Amount, l.InterestRate)
}

// Investment 投資
type Investment struct {
	Amount         int64  `json:"amount"`
	InvestmentType string `json:"investmentType"`
	StartTime      int64  `json:"startTime"`
	Active         bool   `json:"active"`
}

// Return 贖回時的固定收益
func (i Investment) Return() int64 {
	return percentOf(i.Amount, InvestmentReturnRate)
}

// Expense 支出紀錄，寫入後不可變更
type Expense struct {
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
}

// Budget 預算，以 (Category, Month, Year) 為唯一鍵
type Budget struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

// SavingsGoal 儲蓄目標
// Completed 一旦為 true 就不會再變回 false
type SavingsGoal struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	TargetAmount  int64  `json:"targetAmount"`
	CurrentAmount int64  `json:"currentAmount"`
	Deadline      int64  `json:"deadline"`
	Completed     bool   `json:"completed"`
}

// percentOf 計算 amount*rate/100，先拆成商與餘數避免乘法溢位。
// amount 與 rate 皆非負，因此截斷即為無條件捨去。
func percentOf(amount, rate int64) int64 {
	q, r := amount/100, amount%100
	return q*rate + r*rate/100
}
