package rpc

import "github.com/JoeShih716/go-mem-finance/internal/app/core/domain"

// 所有寫入請求都可帶 CommandID (UUID 字串)，重送相同 ID 不會重複入帳
// 未帶時由伺服器產生

type DepositRequest struct {
	CommandID string `json:"commandId,omitempty"`
	Amount    int64  `json:"amount"`
}

type WithdrawRequest struct {
	CommandID string `json:"commandId,omitempty"`
	Amount    int64  `json:"amount"`
}

type TakeLoanRequest struct {
	CommandID    string `json:"commandId,omitempty"`
	Amount       int64  `json:"amount"`
	InterestRate int64  `json:"interestRate"`
	DurationDays int64  `json:"durationDays"`
}

type RepayLoanRequest struct {
	CommandID string `json:"commandId,omitempty"`
	Index     int    `json:"index"`
	Payment   int64  `json:"payment"`
}

type MakeInvestmentRequest struct {
	CommandID      string `json:"commandId,omitempty"`
	Amount         int64  `json:"amount"`
	InvestmentType string `json:"investmentType"`
}

type WithdrawInvestmentRequest struct {
	CommandID string `json:"commandId,omitempty"`
	Index     int    `json:"index"`
}

type AddExpenseRequest struct {
	CommandID   string `json:"commandId,omitempty"`
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type SetBudgetRequest struct {
	CommandID string `json:"commandId,omitempty"`
	Category  string `json:"category"`
	Amount    int64  `json:"amount"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
}

// CreateSavingsGoalRequest Deadline 為 Unix 秒
type CreateSavingsGoalRequest struct {
	CommandID    string `json:"commandId,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	TargetAmount int64  `json:"targetAmount"`
	Deadline     int64  `json:"deadline"`
}

type ContributeToSavingsGoalRequest struct {
	CommandID string `json:"commandId,omitempty"`
	Index     int    `json:"index"`
	Amount    int64  `json:"amount"`
}

// CommandMeta 寫入操作共通的回傳欄位
type CommandMeta struct {
	Sequence  uint64 `json:"seq"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type BalanceResponse struct {
	CommandMeta
	Balance int64 `json:"balance"`
}

type IndexResponse struct {
	CommandMeta
	Index   int   `json:"index"`
	Balance int64 `json:"balance"`
}

type LoanResponse struct {
	CommandMeta
	Loan    domain.Loan `json:"loan"`
	Balance int64       `json:"balance"`
}

type PayoutResponse struct {
	CommandMeta
	Payout  int64 `json:"payout"`
	Balance int64 `json:"balance"`
}

type SavingsGoalResponse struct {
	CommandMeta
	Goal    domain.SavingsGoal `json:"goal"`
	Balance int64              `json:"balance"`
}

type GetAccountRequest struct{}

type AccountResponse struct {
	Account *domain.Account `json:"account"`
}

type GetBalanceRequest struct{}

type GetTransactionsRequest struct{}

// TransactionsResponse 交易依寫入順序 (最舊在前)
type TransactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type GetCurrentMonthExpensesRequest struct {
	Category string `json:"category"`
}

type AmountResponse struct {
	Amount int64 `json:"amount"`
}

type GetSummaryRequest struct{}

type SummaryResponse struct {
	Summary *domain.Summary `json:"summary"`
}

// WatchEventsRequest AllOwners 為 true 時接收所有帳戶的事件
type WatchEventsRequest struct {
	AllOwners bool `json:"allOwners,omitempty"`
}
