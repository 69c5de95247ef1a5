package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層
// 負責組裝指令 (時間戳、CommandID)、呼叫 Ledger、成功後發布事件
// 同一帳戶的事件依序號遞增發布
type CoreUseCase struct {
	ledger     Ledger
	order      *ownerLocks
	publishers []EventPublisher
	now        func() time.Time
	loc        *time.Location
}

// Option CoreUseCase 設定選項
type Option func(*CoreUseCase)

// WithPublisher 加入事件輸出，可多次呼叫
func WithPublisher(p EventPublisher) Option {
	return func(c *CoreUseCase) {
		c.publishers = append(c.publishers, p)
	}
}

// WithClock 替換時鐘 (測試用)
func WithClock(now func() time.Time) Option {
	return func(c *CoreUseCase) {
		c.now = now
	}
}

// WithLocation 設定判斷「本月」使用的時區
func WithLocation(loc *time.Location) Option {
	return func(c *CoreUseCase) {
		c.loc = loc
	}
}

func NewCoreUseCase(ledger Ledger, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		ledger: ledger,
		order:  newOwnerLocks(),
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit 補齊指令的 CreatedAt 與 CommandID 後交給 Ledger 處理
//
// 參數:
//
//	ctx: 上下文
//	cmd: 指令 (Owner 必填)
//
// 回傳:
//
//	*domain.Result: 操作結果
//	error: 處理錯誤
func (c *CoreUseCase) Submit(ctx context.Context, cmd *domain.Command) (*domain.Result, error) {
	if cmd.Owner == "" {
		return nil, fmt.Errorf("%w: empty owner", domain.ErrInvalidParameter)
	}
	if len(cmd.Owner) > domain.MaxOwnerLength {
		return nil, fmt.Errorf("%w: owner longer than %d bytes", domain.ErrInvalidParameter, domain.MaxOwnerLength)
	}
	if cmd.CreatedAt == 0 {
		cmd.CreatedAt = c.now().Unix()
	}
	if cmd.CommandID == uuid.Nil {
		cmd.CommandID = uuid.New()
	}

	// 發布完成前不讓同帳戶的下一筆指令進入 Ledger
	unlock := c.order.lock(cmd.Owner)
	defer unlock()
	res, err := c.ledger.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !res.Duplicate {
		c.publish(ctx, res.Events)
	}
	return res, nil
}

// publish 狀態已提交，發布失敗只記錄不回傳
func (c *CoreUseCase) publish(ctx context.Context, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	for _, p := range c.publishers {
		if err := p.Publish(ctx, events); err != nil {
			log.Printf("publish %d events for %s failed: %v", len(events), events[0].Owner, err)
		}
	}
}

// Deposit 存款，回傳新餘額
func (c *CoreUseCase) Deposit(ctx context.Context, owner string, amount int64) (int64, error) {
	res, err := c.Submit(ctx, &domain.Command{Op: domain.OpDeposit, Owner: owner, Amount: amount})
	if err != nil {
		return 0, err
	}
	return res.Balance, nil
}

// Withdraw 提款，回傳新餘額
func (c *CoreUseCase) Withdraw(ctx context.Context, owner string, amount int64) (int64, error) {
	res, err := c.Submit(ctx, &domain.Command{Op: domain.OpWithdraw, Owner: owner, Amount: amount})
	if err != nil {
		return 0, err
	}
	return res.Balance, nil
}

// TakeLoan 借款，回傳貸款索引
func (c *CoreUseCase) TakeLoan(ctx context.Context, owner string, amount, interestRate, durationDays int64) (int, error) {
	res, err := c.Submit(ctx, &domain.Command{
		Op:           domain.OpTakeLoan,
		Owner:        owner,
		Amount:       amount,
		InterestRate: interestRate,
		Duration:     durationDays,
	})
	if err != nil {
		return 0, err
	}
	return res.Index, nil
}

// RepayLoan 還款，回傳更新後的貸款
func (c *CoreUseCase) RepayLoan(ctx context.Context, owner string, index int, payment int64) (*domain.Loan, error) {
	res, err := c.Submit(ctx, &domain.Command{Op: domain.OpRepayLoan, Owner: owner, Index: index, Amount: payment})
	if err != nil {
		return nil, err
	}
	return res.Loan, nil
}

// MakeInvestment 投資，回傳投資索引
func (c *CoreUseCase) MakeInvestment(ctx context.Context, owner string, amount int64, investmentType string) (int, error) {
	res, err := c.Submit(ctx, &domain.Command{Op: domain.OpMakeInvestment, Owner: owner, Amount: amount, Label: investmentType})
	if err != nil {
		return 0, err
	}
	return res.Index, nil
}

// WithdrawInvestment 贖回投資，回傳入帳金額 (本金+收益)
func (c *CoreUseCase) WithdrawInvestment(ctx context.Context, owner string, index int) (int64, error) {
	res, err := c.Submit(ctx, &domain.Command{Op: domain.OpWithdrawInvestment, Owner: owner, Index: index})
	if err != nil {
		return 0, err
	}
	return res.Payout, nil
}

// AddExpense 新增支出，回傳支出索引
func (c *CoreUseCase) AddExpense(ctx context.Context, owner string, amount int64, category, description string) (int, error) {
	res, err := c.Submit(ctx, &domain.Command{
		Op:          domain.OpAddExpense,
		Owner:       owner,
		Amount:      amount,
		Label:       category,
		Description: description,
	})
	if err != nil {
		return 0, err
	}
	return res.Index, nil
}

// SetBudget 設定預算，回傳預算索引
func (c *CoreUseCase) SetBudget(ctx context.Context, owner, category string, amount int64, month, year int) (int, error) {
	res, err := c.Submit(ctx, &domain.Command{
		Op:     domain.OpSetBudget,
		Owner:  owner,
		Label:  category,
		Amount: amount,
		Month:  month,
		Year:   year,
	})
	if err != nil {
		return 0, err
	}
	return res.Index, nil
}

// CreateSavingsGoal 建立儲蓄目標，回傳目標索引
func (c *CoreUseCase) CreateSavingsGoal(ctx context.Context, owner, name, description string, target int64, deadline time.Time) (int, error) {
	res, err := c.Submit(ctx, &domain.Command{
		Op:          domain.OpCreateSavingsGoal,
		Owner:       owner,
		Label:       name,
		Description: description,
		Amount:      target,
		Deadline:    deadline.Unix(),
	})
	if err != nil {
		return 0, err
	}
	return res.Index, nil
}

// ContributeToSavingsGoal 存入儲蓄目標，回傳更新後的目標
func (c *CoreUseCase) ContributeToSavingsGoal(ctx context.Context, owner string, index int, amount int64) (*domain.SavingsGoal, error) {
	res, err := c.Submit(ctx, &domain.Command{Op: domain.OpContributeToSavingsGoal, Owner: owner, Index: index, Amount: amount})
	if err != nil {
		return nil, err
	}
	return res.Goal, nil
}

// GetAccount 取得帳戶完整快照
func (c *CoreUseCase) GetAccount(ctx context.Context, owner string) (*domain.Account, error) {
	return c.ledger.Snapshot(ctx, owner)
}

// GetBalance 取得帳戶餘額
func (c *CoreUseCase) GetBalance(ctx context.Context, owner string) (int64, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// GetTransactions 交易紀錄，依寫入順序 (最舊在前)
func (c *CoreUseCase) GetTransactions(ctx context.Context, owner string) ([]domain.Transaction, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return acct.Transactions, nil
}

func (c *CoreUseCase) GetLoans(ctx context.Context, owner string) ([]domain.Loan, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return acct.Loans, nil
}

func (c *CoreUseCase) GetInvestments(ctx context.Context, owner string) ([]domain.Investment, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return acct.Investments, nil
}

func (c *CoreUseCase) GetExpenses(ctx context.Context, owner string) ([]domain.Expense, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return acct.Expenses, nil
}

func (c *CoreUseCase) GetBudgets(ctx context.Context, owner string) ([]domain.Budget, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return acct.Budgets, nil
}

func (c *CoreUseCase) GetSavingsGoals(ctx context.Context, owner string) ([]domain.SavingsGoal, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return acct.SavingsGoals, nil
}

// GetCurrentMonthExpenses 加總指定分類在呼叫當下所屬月份的支出
func (c *CoreUseCase) GetCurrentMonthExpenses(ctx context.Context, owner, category string) (int64, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return 0, err
	}
	now := c.now().In(c.loc)
	return acct.MonthExpenses(category, now.Month(), now.Year(), c.loc), nil
}

// GetSummary 儀表板總覽
func (c *CoreUseCase) GetSummary(ctx context.Context, owner string) (*domain.Summary, error) {
	acct, err := c.ledger.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return acct.Summarize(c.now().In(c.loc)), nil
}
