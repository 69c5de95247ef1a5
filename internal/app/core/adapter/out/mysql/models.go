package mysql

import "github.com/JoeShih716/go-mem-finance/internal/app/core/domain"

// 每個集合以 (owner, position) 為主鍵，position 即 domain 中的索引
// owner 長度上限為 domain.MaxOwnerLength，其餘文字欄位不限長度 (text)

// sqlAccount 對應 fin_accounts 表
type sqlAccount struct {
	Owner     string `gorm:"primaryKey;size:128"`
	Balance   int64
	Sequence  uint64
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "fin_accounts"
}

// sqlTransaction 對應 fin_transactions 表
type sqlTransaction struct {
	Owner     string `gorm:"primaryKey;size:128"`
	Position  int    `gorm:"primaryKey;autoIncrement:false"`
	Type      uint8
	Amount    int64
	Timestamp int64
	Details   string `gorm:"type:text"`
}

func (*sqlTransaction) TableName() string {
	return "fin_transactions"
}

type sqlLoan struct {
	Owner        string `gorm:"primaryKey;size:128"`
	Position     int    `gorm:"primaryKey;autoIncrement:false"`
	Amount       int64
	InterestRate int64
	Duration     int64
	StartTime    int64
	Active       bool
	Repaid       bool
}

func (*sqlLoan) TableName() string {
	return "fin_loans"
}

type sqlInvestment struct {
	Owner          string `gorm:"primaryKey;size:128"`
	Position       int    `gorm:"primaryKey;autoIncrement:false"`
	Amount         int64
	InvestmentType string `gorm:"type:text"`
	StartTime      int64
	Active         bool
}

func (*sqlInvestment) TableName() string {
	return "fin_investments"
}

type sqlExpense struct {
	Owner       string `gorm:"primaryKey;size:128"`
	Position    int    `gorm:"primaryKey;autoIncrement:false"`
	Amount      int64
	Category    string `gorm:"type:text"`
	Description string `gorm:"type:text"`
	Timestamp   int64
}

func (*sqlExpense) TableName() string {
	return "fin_expenses"
}

type sqlBudget struct {
	Owner    string `gorm:"primaryKey;size:128"`
	Position int    `gorm:"primaryKey;autoIncrement:false"`
	Category string `gorm:"type:text"`
	Amount   int64
	Month    int
	Year     int
}

func (*sqlBudget) TableName() string {
	return "fin_budgets"
}

type sqlSavingsGoal struct {
	Owner         string `gorm:"primaryKey;size:128"`
	Position      int    `gorm:"primaryKey;autoIncrement:false"`
	Name          string `gorm:"type:text"`
	Description   string `gorm:"type:text"`
	TargetAmount  int64
	CurrentAmount int64
	Deadline      int64
	Completed     bool
}

func (*sqlSavingsGoal) TableName() string {
	return "fin_savings_goals"
}

// sqlCommand 對應 fin_commands 表，記錄已處理的指令與結果 (冪等)
// CommandID 只在同一帳戶內唯一，主鍵為 (owner, command_id)
type sqlCommand struct {
	Owner     string `gorm:"primaryKey;size:128"`
	CommandID []byte `gorm:"column:command_id;type:binary(16);primaryKey"`
	Sequence  uint64
	Op        uint8
	Result    []byte `gorm:"type:json"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

func (*sqlCommand) TableName() string {
	return "fin_commands"
}

// allModels AutoMigrate 使用
var allModels = []any{
	&sqlAccount{},
	&sqlTransaction{},
	&sqlLoan{},
	&sqlInvestment{},
	&sqlExpense{},
	&sqlBudget{},
	&sqlSavingsGoal{},
	&sqlCommand{},
}

// row <-> domain 轉換

func transactionRow(owner string, pos int, t domain.Transaction) sqlTransaction {
	return sqlTransaction{Owner: owner, Position: pos, Type: uint8(t.Type), Amount: t.Amount, Timestamp: t.Timestamp, Details: t.Details}
}

func (r sqlTransaction) toDomain() domain.Transaction {
	return domain.Transaction{Type: domain.TransactionType(r.Type), Amount: r.Amount, Timestamp: r.Timestamp, Details: r.Details}
}

func loanRow(owner string, pos int, l domain.Loan) sqlLoan {
	return sqlLoan{
		Owner: owner, Position: pos,
		Amount: l.Amount, InterestRate: l.InterestRate, Duration: l.Duration,
		StartTime: l.StartTime, Active: l.Active, Repaid: l.Repaid,
	}
}

func (r sqlLoan) toDomain() domain.Loan {
	return domain.Loan{
		Amount: r.Amount, InterestRate: r.InterestRate, Duration: r.Duration,
		StartTime: r.StartTime, Active: r.Active, Repaid: r.Repaid,
	}
}

func investmentRow(owner string, pos int, i domain.Investment) sqlInvestment {
	return sqlInvestment{Owner: owner, Position: pos, Amount: i.Amount, InvestmentType: i.InvestmentType, StartTime: i.StartTime, Active: i.Active}
}

func (r sqlInvestment) toDomain() domain.Investment {
	return domain.Investment{Amount: r.Amount, InvestmentType: r.InvestmentType, StartTime: r.StartTime, Active: r.Active}
}

func expenseRow(owner string, pos int, e domain.Expense) sqlExpense {
	return sqlExpense{Owner: owner, Position: pos, Amount: e.Amount, Category: e.Category, Description: e.Description, Timestamp: e.Timestamp}
}

func (r sqlExpense) toDomain() domain.Expense {
	return domain.Expense{Amount: r.Amount, Category: r.Category, Description: r.Description, Timestamp: r.Timestamp}
}

func budgetRow(owner string, pos int, b domain.Budget) sqlBudget {
	return sqlBudget{Owner: owner, Position: pos, Category: b.Category, Amount: b.Amount, Month: b.Month, Year: b.Year}
}

func (r sqlBudget) toDomain() domain.Budget {
	return domain.Budget{Category: r.Category, Amount: r.Amount, Month: r.Month, Year: r.Year}
}

func savingsGoalRow(owner string, pos int, g domain.SavingsGoal) sqlSavingsGoal {
	return sqlSavingsGoal{
		Owner: owner, Position: pos,
		Name: g.Name, Description: g.Description,
		TargetAmount: g.TargetAmount, CurrentAmount: g.CurrentAmount,
		Deadline: g.Deadline, Completed: g.Completed,
	}
}

func (r sqlSavingsGoal) toDomain() domain.SavingsGoal {
	return domain.SavingsGoal{
		Name: r.Name, Description: r.Description,
		TargetAmount: r.TargetAmount, CurrentAmount: r.CurrentAmount,
		Deadline: r.Deadline, Completed: r.Completed,
	}
}

// changedRows 只挑出新增或內容改變的紀錄
func changedRows[D comparable, R any](owner string, before, after []D, toRow func(string, int, D) R) []R {
	var rows []R
	for i, d := range after {
		if i < len(before) && before[i] == d {
			continue
		}
		rows = append(rows, toRow(owner, i, d))
	}
	return rows
}
