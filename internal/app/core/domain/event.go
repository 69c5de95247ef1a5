package domain

// EventName 事件名稱，提供外部觀察者 (UI) 更新快取
type EventName string

const (
	EventDeposit                EventName = "Deposit"
	EventWithdrawal             EventName = "Withdrawal"
	EventLoanTaken              EventName = "LoanTaken"
	EventLoanRepaid             EventName = "LoanRepaid"
	EventInvestmentMade         EventName = "InvestmentMade"
	EventInvestmentWithdrawn    EventName = "InvestmentWithdrawn"
	EventExpenseAdded           EventName = "ExpenseAdded"
	EventBudgetSet              EventName = "BudgetSet"
	EventSavingsGoalCreated     EventName = "SavingsGoalCreated"
	EventSavingsGoalContributed EventName = "SavingsGoalContributed"
	EventSavingsGoalCompleted   EventName = "SavingsGoalCompleted"
)

// Event 成功變更後送出的通知，與交易紀錄分開
// Fields 帶有操作的主要參數
type Event struct {
	Name      EventName      `json:"name"`
	Owner     string         `json:"owner"`
	Sequence  uint64         `json:"seq"`
	Timestamp int64          `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}
