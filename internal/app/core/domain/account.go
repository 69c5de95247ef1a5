package domain

import (
	"fmt"
	"math"
)

// Account 單一擁有者的帳戶聚合，持有餘額與六個依寫入順序排列的集合
type Account struct {
	Owner        string        `json:"owner"`
	Balance      int64         `json:"balance"`
	Sequence     uint64        `json:"seq"`
	Transactions []Transaction `json:"transactions"`
	Loans        []Loan        `json:"loans"`
	Investments  []Investment  `json:"investments"`
	Expenses     []Expense     `json:"expenses"`
	Budgets      []Budget      `json:"budgets"`
	SavingsGoals []SavingsGoal `json:"savingsGoals"`
}

func NewAccount(owner string) *Account {
	return &Account{
		Owner:        owner,
		Transactions: []Transaction{},
		Loans:        []Loan{},
		Investments:  []Investment{},
		Expenses:     []Expense{},
		Budgets:      []Budget{},
		SavingsGoals: []SavingsGoal{},
	}
}

// Clone 深拷貝，回傳的快照與內部狀態不共用 slice
func (a *Account) Clone() *Account {
	return &Account{
		Owner:        a.Owner,
		Balance:      a.Balance,
		Sequence:     a.Sequence,
		Transactions: append([]Transaction{}, a.Transactions...),
		Loans:        append([]Loan{}, a.Loans...),
		Investments:  append([]Investment{}, a.Investments...),
		Expenses:     append([]Expense{}, a.Expenses...),
		Budgets:      append([]Budget{}, a.Budgets...),
		SavingsGoals: append([]SavingsGoal{}, a.SavingsGoals...),
	}
}

// commitFunc 驗證通過後才執行的變更，本身不會失敗
type commitFunc func() *Result

// Validate 檢查指令能否套用於目前狀態，不改變任何欄位
//
// 參數:
//
//	cmd: 指令
//
// 回傳:
//
//	error: 驗證錯誤 (如餘額不足)
func (a *Account) Validate(cmd *Command) error {
	_, err := a.prepare(cmd)
	return err
}

// Apply 驗證並套用指令。
// 任何錯誤都發生在變更之前，失敗時帳戶狀態、交易紀錄與事件皆不變。
//
// 參數:
//
//	cmd: 指令 (Sequence 為 0 時自動分配下一個序號)
//
// 回傳:
//
//	*Result: 操作結果與事件
//	error: 驗證錯誤
func (a *Account) Apply(cmd *Command) (*Result, error) {
	commit, err := a.prepare(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Sequence == 0 {
		cmd.Sequence = a.Sequence + 1
	}
	a.Sequence = cmd.Sequence
	res := commit()
	res.Sequence = cmd.Sequence
	res.Balance = a.Balance
	for i := range res.Events {
		res.Events[i].Owner = a.Owner
		res.Events[i].Sequence = cmd.Sequence
		res.Events[i].Timestamp = cmd.CreatedAt
	}
	return res, nil
}

func (a *Account) prepare(cmd *Command) (commitFunc, error) {
	switch cmd.Op {
	case OpDeposit:
		return a.deposit(cmd)
	case OpWithdraw:
		return a.withdraw(cmd)
	case OpTakeLoan:
		return a.takeLoan(cmd)
	case OpRepayLoan:
		return a.repayLoan(cmd)
	case OpMakeInvestment:
		return a.makeInvestment(cmd)
	case OpWithdrawInvestment:
		return a.withdrawInvestment(cmd)
	case OpAddExpense:
		return a.addExpense(cmd)
	case OpSetBudget:
		return a.setBudget(cmd)
	case OpCreateSavingsGoal:
		return a.createSavingsGoal(cmd)
	case OpContributeToSavingsGoal:
		return a.contributeToSavingsGoal(cmd)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, cmd.Op)
}

// checkCredit 加入餘額前檢查溢位
func (a *Account) checkCredit(amount int64) error {
	if amount > math.MaxInt64-a.Balance {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	return nil
}

// checkDebit 扣款金額需為正數且不得超過餘額
func (a *Account) checkDebit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > a.Balance {
		return ErrInsufficientBalance
	}
	return nil
}

func (a *Account) record(t TransactionType, amount, ts int64, details string) {
	a.Transactions = append(a.Transactions, Transaction{
		Type:      t,
		Amount:    amount,
		Timestamp: ts,
		Details:   details,
	})
}

func event(name EventName, fields map[string]any) Event {
	return Event{Name: name, Fields: fields}
}

// deposit 存款
func (a *Account) deposit(cmd *Command) (commitFunc, error) {
	if cmd.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := a.checkCredit(cmd.Amount); err != nil {
		return nil, err
	}
	return func() *Result {
		a.Balance += cmd.Amount
		a.record(TransactionTypeDeposit, cmd.Amount, cmd.CreatedAt, "Deposit")
		return &Result{Events: []Event{
			event(EventDeposit, map[string]any{"amount": cmd.Amount}),
		}}
	}, nil
}

// withdraw 提款
// 金額非正數同時視為 ErrInsufficientBalance 與 ErrInvalidAmount
func (a *Account) withdraw(cmd *Command) (commitFunc, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientBalance, ErrInvalidAmount)
	}
	if cmd.Amount > a.Balance {
		return nil, ErrInsufficientBalance
	}
	return func() *Result {
		a.Balance -= cmd.Amount
		a.record(TransactionTypeWithdrawal, cmd.Amount, cmd.CreatedAt, "Withdrawal")
		return &Result{Events: []Event{
			event(EventWithdrawal, map[string]any{"amount": cmd.Amount}),
		}}
	}, nil
}

// takeLoan 借款，本金立即入帳，不做信用檢查
func (a *Account) takeLoan(cmd *Command) (commitFunc, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, ErrInvalidAmount)
	}
	if cmd.InterestRate < 0 || cmd.InterestRate > MaxInterestRate {
		return nil, fmt.Errorf("%w: interest rate %d", ErrInvalidParameter, cmd.InterestRate)
	}
	if cmd.Duration < 1 {
		return nil, fmt.Errorf("%w: duration %d", ErrInvalidParameter, cmd.Duration)
	}
	if err := a.checkCredit(cmd.Amount); err != nil {
		return nil, err
	}
	loan := Loan{
		Amount:       cmd.Amount,
		InterestRate: cmd.InterestRate,
		Duration:     cmd.Duration,
		StartTime:    cmd.CreatedAt,
		Active:       true,
	}
	// 應還金額必須可表示
	if loan.Amount > math.MaxInt64-percentOf(loan.Amount, loan.InterestRate) {
		return nil, fmt.Errorf("%w: loan amount too large", ErrInvalidParameter)
	}
	return func() *Result {
		index := len(a.Loans)
		a.Balance += cmd.Amount
		a.Loans = append(a.Loans, loan)
		a.record(TransactionTypeLoan, cmd.Amount, cmd.CreatedAt,
			fmt.Sprintf("Loan taken at %d%% for %d days", cmd.InterestRate, cmd.Duration))
		return &Result{Index: index, Events: []Event{
			event(EventLoanTaken, map[string]any{
				"index":        index,
				"amount":       cmd.Amount,
				"interestRate": cmd.InterestRate,
				"duration":     cmd.Duration,
			}),
		}}
	}, nil
}

// repayLoan 還款
// 付款金額需不低於應還金額，超出部分一併扣除
func (a *Account) repayLoan(cmd *Command) (commitFunc, error) {
	if cmd.Index < 0 || cmd.Index >= len(a.Loans) {
		return nil, fmt.Errorf("%w: loan %d", ErrNotFound, cmd.Index)
	}
	loan := a.Loans[cmd.Index]
	if loan.Repaid || !loan.Active {
		return nil, fmt.Errorf("%w: loan %d", ErrAlreadyRepaid, cmd.Index)
	}
	if cmd.Amount < loan.RequiredRepayment() {
		return nil, fmt.Errorf("%w: need %d, got %d", ErrInsufficientPayment, loan.RequiredRepayment(), cmd.Amount)
	}
	if cmd.Amount > a.Balance {
		return nil, ErrInsufficientBalance
	}
	return func() *Result {
		a.Balance -= cmd.Amount
		l := &a.Loans[cmd.Index]
		l.Active = false
		l.Repaid = true
		a.record(TransactionTypeLoanRepayment, cmd.Amount, cmd.CreatedAt,
			fmt.Sprintf("Repayment of loan #%d", cmd.Index))
		updated := *l
		return &Result{Index: cmd.Index, Loan: &updated, Events: []Event{
			event(EventLoanRepaid, map[string]any{"index": cmd.Index, "amount": cmd.Amount}),
		}}
	}, nil
}

// makeInvestment 投資，本金離開可用餘額
func (a *Account) makeInvestment(cmd *Command) (commitFunc, error) {
	if err := a.checkDebit(cmd.Amount); err != nil {
		return nil, err
	}
	return func() *Result {
		index := len(a.Investments)
		a.Balance -= cmd.Amount
		a.Investments = append(a.Investments, Investment{
			Amount:         cmd.Amount,
			InvestmentType: cmd.Label,
			StartTime:      cmd.CreatedAt,
			Active:         true,
		})
		a.record(TransactionTypeInvestment, cmd.Amount, cmd.CreatedAt, "Investment in "+cmd.Label)
		return &Result{Index: index, Events: []Event{
			event(EventInvestmentMade, map[string]any{
				"index":          index,
				"amount":         cmd.Amount,
				"investmentType": cmd.Label,
			}),
		}}
	}, nil
}

// withdrawInvestment 贖回投資，本金加固定 10% 收益入帳，只記錄收益
func (a *Account) withdrawInvestment(cmd *Command) (commitFunc, error) {
	if cmd.Index < 0 || cmd.Index >= len(a.Investments) {
		return nil, fmt.Errorf("%w: investment %d", ErrNotFound, cmd.Index)
	}
	inv := a.Investments[cmd.Index]
	if !inv.Active {
		return nil, fmt.Errorf("%w: investment %d", ErrAlreadyWithdrawn, cmd.Index)
	}
	ret := inv.Return()
	payout := inv.Amount + ret
	if err := a.checkCredit(payout); err != nil {
		return nil, err
	}
	return func() *Result {
		a.Balance += payout
		a.Investments[cmd.Index].Active = false
		a.record(TransactionTypeInvestmentReturn, ret, cmd.CreatedAt,
			fmt.Sprintf("Return on %s investment #%d", inv.InvestmentType, cmd.Index))
		return &Result{Index: cmd.Index, Payout: payout, Events: []Event{
			event(EventInvestmentWithdrawn, map[string]any{
				"index":          cmd.Index,
				"amount":         payout,
				"investmentType": inv.InvestmentType,
			}),
		}}
	}, nil
}

// addExpense 支出，視為立即的現金流出
func (a *Account) addExpense(cmd *Command) (commitFunc, error) {
	if cmd.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if cmd.Description == "" {
		return nil, fmt.Errorf("%w: empty description", ErrInvalidParameter)
	}
	if cmd.Amount > a.Balance {
		return nil, ErrInsufficientBalance
	}
	return func() *Result {
		index := len(a.Expenses)
		a.Balance -= cmd.Amount
		a.Expenses = append(a.Expenses, Expense{
			Amount:      cmd.Amount,
			Category:    cmd.Label,
			Description: cmd.Description,
			Timestamp:   cmd.CreatedAt,
		})
		a.record(TransactionTypeExpense, cmd.Amount, cmd.CreatedAt, cmd.Label+": "+cmd.Description)
		return &Result{Index: index, Events: []Event{
			event(EventExpenseAdded, map[string]any{
				"index":       index,
				"amount":      cmd.Amount,
				"category":    cmd.Label,
				"description": cmd.Description,
			}),
		}}
	}, nil
}

// setBudget 以 (分類, 月, 年) upsert 預算，不產生交易紀錄
func (a *Account) setBudget(cmd *Command) (commitFunc, error) {
	if cmd.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if cmd.Month < 1 || cmd.Month > 12 {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidParameter, cmd.Month)
	}
	return func() *Result {
		index := a.budgetIndex(cmd.Label, cmd.Month, cmd.Year)
		if index >= 0 {
			a.Budgets[index].Amount = cmd.Amount
		} else {
			index = len(a.Budgets)
			a.Budgets = append(a.Budgets, Budget{
				Category: cmd.Label,
				Amount:   cmd.Amount,
				Month:    cmd.Month,
				Year:     cmd.Year,
			})
		}
		return &Result{Index: index, Events: []Event{
			event(EventBudgetSet, map[string]any{
				"category": cmd.Label,
				"amount":   cmd.Amount,
				"month":    cmd.Month,
				"year":     cmd.Year,
			}),
		}}
	}, nil
}

func (a *Account) budgetIndex(category string, month, year int) int {
	for i, b := range a.Budgets {
		if b.Category == category && b.Month == month && b.Year == year {
			return i
		}
	}
	return -1
}

// createSavingsGoal 建立儲蓄目標，期限必須晚於建立時間
func (a *Account) createSavingsGoal(cmd *Command) (commitFunc, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: target %d", ErrInvalidParameter, cmd.Amount)
	}
	if cmd.Deadline <= cmd.CreatedAt {
		return nil, fmt.Errorf("%w: deadline %d is not in the future", ErrInvalidParameter, cmd.Deadline)
	}
	return func() *Result {
		index := len(a.SavingsGoals)
		a.SavingsGoals = append(a.SavingsGoals, SavingsGoal{
			Name:         cmd.Label,
			Description:  cmd.Description,
			TargetAmount: cmd.Amount,
			Deadline:     cmd.Deadline,
		})
		return &Result{Index: index, Events: []Event{
			event(EventSavingsGoalCreated, map[string]any{
				"index":        index,
				"name":         cmd.Label,
				"targetAmount": cmd.Amount,
				"deadline":     cmd.Deadline,
			}),
		}}
	}, nil
}

// contributeToSavingsGoal 存入儲蓄目標，達標時標記完成 (單向)
// 期限過後仍可存入
func (a *Account) contributeToSavingsGoal(cmd *Command) (commitFunc, error) {
	if cmd.Index < 0 || cmd.Index >= len(a.SavingsGoals) {
		return nil, fmt.Errorf("%w: savings goal %d", ErrNotFound, cmd.Index)
	}
	if a.SavingsGoals[cmd.Index].Completed {
		return nil, fmt.Errorf("%w: savings goal %d", ErrAlreadyCompleted, cmd.Index)
	}
	if err := a.checkDebit(cmd.Amount); err != nil {
		return nil, err
	}
	if cmd.Amount > math.MaxInt64-a.SavingsGoals[cmd.Index].CurrentAmount {
		return nil, fmt.Errorf("%w: savings overflow", ErrInvalidAmount)
	}
	return func() *Result {
		g := &a.SavingsGoals[cmd.Index]
		a.Balance -= cmd.Amount
		g.CurrentAmount += cmd.Amount
		a.record(TransactionTypeSavings, cmd.Amount, cmd.CreatedAt, "Contribution to "+g.Name)
		events := []Event{
			event(EventSavingsGoalContributed, map[string]any{
				"index":  cmd.Index,
				"name":   g.Name,
				"amount": cmd.Amount,
			}),
		}
		if g.CurrentAmount >= g.TargetAmount {
			g.Completed = true
			events = append(events, event(EventSavingsGoalCompleted, map[string]any{
				"index": cmd.Index,
				"name":  g.Name,
			}))
		}
		updated := *g
		return &Result{Index: cmd.Index, Goal: &updated, Events: events}
	}, nil
}
