package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

// unit 代表 1.0 (測試中以百萬分之一為最小單位)
const unit = 1_000_000

var now = time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC).Unix()

// apply 為小工具：套用指令並在失敗時讓測試失敗
func apply(t *testing.T, a *Account, cmd Command) *Result {
	t.Helper()
	if cmd.CreatedAt == 0 {
		cmd.CreatedAt = now
	}
	res, err := a.Apply(&cmd)
	if err != nil {
		t.Fatalf("Apply(%s) err=%v", cmd.Op, err)
	}
	return res
}

// applyErr 套用預期失敗的指令，並確認狀態未被改變
func applyErr(t *testing.T, a *Account, cmd Command, want error) {
	t.Helper()
	if cmd.CreatedAt == 0 {
		cmd.CreatedAt = now
	}
	before := a.Clone()
	_, err := a.Apply(&cmd)
	if !errors.Is(err, want) {
		t.Fatalf("Apply(%s) err=%v want %v", cmd.Op, err, want)
	}
	assertSameState(t, before, a)
}

func assertSameState(t *testing.T, want, got *Account) {
	t.Helper()
	if want.Balance != got.Balance || want.Sequence != got.Sequence {
		t.Fatalf("balance/seq changed: %d/%d -> %d/%d", want.Balance, want.Sequence, got.Balance, got.Sequence)
	}
	if len(want.Transactions) != len(got.Transactions) ||
		len(want.Loans) != len(got.Loans) ||
		len(want.Investments) != len(got.Investments) ||
		len(want.Expenses) != len(got.Expenses) ||
		len(want.Budgets) != len(got.Budgets) ||
		len(want.SavingsGoals) != len(got.SavingsGoals) {
		t.Fatalf("collections changed on failed command")
	}
	for i := range want.Loans {
		if want.Loans[i] != got.Loans[i] {
			t.Fatalf("loan %d changed: %+v -> %+v", i, want.Loans[i], got.Loans[i])
		}
	}
	for i := range want.Investments {
		if want.Investments[i] != got.Investments[i] {
			t.Fatalf("investment %d changed", i)
		}
	}
	for i := range want.SavingsGoals {
		if want.SavingsGoals[i] != got.SavingsGoals[i] {
			t.Fatalf("goal %d changed", i)
		}
	}
	for i := range want.Budgets {
		if want.Budgets[i] != got.Budgets[i] {
			t.Fatalf("budget %d changed", i)
		}
	}
}

func TestDepositWithdraw(t *testing.T) {
	a := NewAccount("alice")

	res := apply(t, a, Command{Op: OpDeposit, Amount: unit})
	if res.Balance != unit {
		t.Fatalf("balance=%d want=%d", res.Balance, unit)
	}
	res = apply(t, a, Command{Op: OpWithdraw, Amount: unit / 2})
	if res.Balance != unit/2 {
		t.Fatalf("balance=%d want=%d", res.Balance, unit/2)
	}

	if len(a.Transactions) != 2 {
		t.Fatalf("transactions=%d want=2", len(a.Transactions))
	}
	if a.Transactions[0].Type != TransactionTypeDeposit || a.Transactions[1].Type != TransactionTypeWithdrawal {
		t.Fatalf("unexpected order: %v %v", a.Transactions[0].Type, a.Transactions[1].Type)
	}
	if a.Transactions[0].Type.String() != "Deposit" {
		t.Fatalf("type name=%q", a.Transactions[0].Type.String())
	}

	applyErr(t, a, Command{Op: OpWithdraw, Amount: 2 * unit}, ErrInsufficientBalance)
	applyErr(t, a, Command{Op: OpDeposit, Amount: 0}, ErrInvalidAmount)
	applyErr(t, a, Command{Op: OpDeposit, Amount: -5}, ErrInvalidAmount)
	applyErr(t, a, Command{Op: OpDeposit, Amount: math.MaxInt64}, ErrInvalidAmount)
}

func TestWithdrawNonPositive(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpDeposit, Amount: unit})

	// 非正數同時符合兩種錯誤
	for _, amt := range []int64{0, -1} {
		applyErr(t, a, Command{Op: OpWithdraw, Amount: amt}, ErrInsufficientBalance)
		applyErr(t, a, Command{Op: OpWithdraw, Amount: amt}, ErrInvalidAmount)
	}
}

func TestLoanRoundTrip(t *testing.T) {
	a := NewAccount("alice")
	res := apply(t, a, Command{Op: OpTakeLoan, Amount: unit, InterestRate: 10, Duration: 365})
	if res.Index != 0 {
		t.Fatalf("loan index=%d want=0", res.Index)
	}
	if a.Balance != unit {
		t.Fatalf("loan proceeds not credited: %d", a.Balance)
	}
	loan := a.Loans[0]
	if !loan.Active || loan.Repaid || loan.InterestRate != 10 || loan.Duration != 365 || loan.StartTime != now {
		t.Fatalf("unexpected loan %+v", loan)
	}

	required := loan.RequiredRepayment()
	if required != unit+unit/10 {
		t.Fatalf("required=%d want=%d", required, unit+unit/10)
	}

	// 餘額只有本金 1.0，先補足利息
	apply(t, a, Command{Op: OpDeposit, Amount: unit / 10})

	applyErr(t, a, Command{Op: OpRepayLoan, Index: 0, Amount: required - 1}, ErrInsufficientPayment)
	applyErr(t, a, Command{Op: OpRepayLoan, Index: 1, Amount: required}, ErrNotFound)
	applyErr(t, a, Command{Op: OpRepayLoan, Index: -1, Amount: required}, ErrNotFound)

	res = apply(t, a, Command{Op: OpRepayLoan, Index: 0, Amount: required})
	if res.Loan == nil || res.Loan.Active || !res.Loan.Repaid {
		t.Fatalf("unexpected loan in result %+v", res.Loan)
	}
	if a.Loans[0].Active || !a.Loans[0].Repaid {
		t.Fatalf("loan not marked repaid %+v", a.Loans[0])
	}
	if a.Balance != 0 {
		t.Fatalf("balance=%d want=0", a.Balance)
	}
	last := a.Transactions[len(a.Transactions)-1]
	if last.Type != TransactionTypeLoanRepayment || last.Amount != required {
		t.Fatalf("unexpected last transaction %+v", last)
	}

	apply(t, a, Command{Op: OpDeposit, Amount: 2 * unit})
	applyErr(t, a, Command{Op: OpRepayLoan, Index: 0, Amount: required}, ErrAlreadyRepaid)
}

func TestRepayLoanOverpaymentDebitsFullAmount(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpDeposit, Amount: 5 * unit})
	apply(t, a, Command{Op: OpTakeLoan, Amount: unit, InterestRate: 10, Duration: 30})

	apply(t, a, Command{Op: OpRepayLoan, Index: 0, Amount: 2 * unit})
	if a.Balance != 4*unit {
		t.Fatalf("balance=%d want=%d", a.Balance, 4*unit)
	}
}

func TestRepayLoanInsufficientBalance(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpTakeLoan, Amount: unit, InterestRate: 10, Duration: 30})
	applyErr(t, a, Command{Op: OpRepayLoan, Index: 0, Amount: unit + unit/10}, ErrInsufficientBalance)
}

func TestTakeLoanValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"zero amount", Command{Op: OpTakeLoan, Amount: 0, InterestRate: 10, Duration: 1}},
		{"negative rate", Command{Op: OpTakeLoan, Amount: unit, InterestRate: -1, Duration: 1}},
		{"rate above 100", Command{Op: OpTakeLoan, Amount: unit, InterestRate: 101, Duration: 1}},
		{"zero duration", Command{Op: OpTakeLoan, Amount: unit, InterestRate: 10, Duration: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			applyErr(t, NewAccount("alice"), tc.cmd, ErrInvalidParameter)
		})
	}

	// 邊界值可接受
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpTakeLoan, Amount: unit, InterestRate: 0, Duration: 1})
	apply(t, a, Command{Op: OpTakeLoan, Amount: unit, InterestRate: 100, Duration: 1})
	if got := a.Loans[1].RequiredRepayment(); got != 2*unit {
		t.Fatalf("required=%d want=%d", got, 2*unit)
	}
}

// TestInterestTruncation 利息採整數除法，無條件捨去
func TestInterestTruncation(t *testing.T) {
	tests := []struct {
		amount, rate, want int64
	}{
		{1, 10, 1},
		{9, 10, 9},
		{10, 10, 11},
		{19, 10, 20},
		{1_000_001, 10, 1_100_001},
		{1_000_009, 10, 1_100_009},
		{1_000_010, 10, 1_100_011},
		{99, 1, 99},
		{100, 1, 101},
		{199, 50, 298},
		{math.MaxInt64 / 2, 100, math.MaxInt64 / 2 * 2},
	}
	for _, tc := range tests {
		got := Loan{Amount: tc.amount, InterestRate: tc.rate}.RequiredRepayment()
		if got != tc.want {
			t.Errorf("RequiredRepayment(%d @ %d%%)=%d want=%d", tc.amount, tc.rate, got, tc.want)
		}
	}
}

func TestInvestmentRoundTrip(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpDeposit, Amount: unit})
	res := apply(t, a, Command{Op: OpMakeInvestment, Amount: unit, Label: "Stocks"})
	if res.Index != 0 || a.Balance != 0 {
		t.Fatalf("index=%d balance=%d", res.Index, a.Balance)
	}
	inv := a.Investments[0]
	if !inv.Active || inv.InvestmentType != "Stocks" || inv.Amount != unit {
		t.Fatalf("unexpected investment %+v", inv)
	}

	res = apply(t, a, Command{Op: OpWithdrawInvestment, Index: 0})
	if res.Payout != unit+unit/10 {
		t.Fatalf("payout=%d want=%d", res.Payout, unit+unit/10)
	}
	if a.Balance != unit+unit/10 {
		t.Fatalf("balance=%d want=%d", a.Balance, unit+unit/10)
	}
	if a.Investments[0].Active {
		t.Fatalf("investment still active")
	}
	// 只記錄收益
	last := a.Transactions[len(a.Transactions)-1]
	if last.Type != TransactionTypeInvestmentReturn || last.Amount != unit/10 {
		t.Fatalf("unexpected last transaction %+v", last)
	}

	applyErr(t, a, Command{Op: OpWithdrawInvestment, Index: 0}, ErrAlreadyWithdrawn)
	applyErr(t, a, Command{Op: OpWithdrawInvestment, Index: 3}, ErrNotFound)
}

func TestMakeInvestmentValidation(t *testing.T) {
	a := NewAccount("alice")
	applyErr(t, a, Command{Op: OpMakeInvestment, Amount: unit, Label: "Stocks"}, ErrInsufficientBalance)
	applyErr(t, a, Command{Op: OpMakeInvestment, Amount: 0, Label: "Stocks"}, ErrInvalidAmount)
}

func TestAddExpense(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpDeposit, Amount: unit})

	res := apply(t, a, Command{Op: OpAddExpense, Amount: unit / 10, Label: "Food", Description: "Lunch"})
	if res.Index != 0 {
		t.Fatalf("index=%d", res.Index)
	}
	e := a.Expenses[0]
	if e.Amount != unit/10 || e.Category != "Food" || e.Description != "Lunch" || e.Timestamp != now {
		t.Fatalf("unexpected expense %+v", e)
	}
	if a.Balance != unit-unit/10 {
		t.Fatalf("balance=%d", a.Balance)
	}

	// 任意分類皆可接受
	apply(t, a, Command{Op: OpAddExpense, Amount: 1, Label: "Cats", Description: "Food"})

	applyErr(t, a, Command{Op: OpAddExpense, Amount: unit, Label: "Food", Description: ""}, ErrInvalidParameter)
	applyErr(t, a, Command{Op: OpAddExpense, Amount: 0, Label: "Food", Description: "x"}, ErrInvalidAmount)
	applyErr(t, a, Command{Op: OpAddExpense, Amount: 10 * unit, Label: "Food", Description: "x"}, ErrInsufficientBalance)
}

func TestSetBudgetUpsert(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpSetBudget, Label: "Food", Amount: unit, Month: 6, Year: 2023})
	apply(t, a, Command{Op: OpSetBudget, Label: "Rent", Amount: unit, Month: 6, Year: 2023})
	apply(t, a, Command{Op: OpSetBudget, Label: "Food", Amount: unit, Month: 6, Year: 2023})
	res := apply(t, a, Command{Op: OpSetBudget, Label: "Food", Amount: 2 * unit, Month: 6, Year: 2023})

	if res.Index != 0 {
		t.Fatalf("upsert index=%d want=0", res.Index)
	}
	if len(a.Budgets) != 2 {
		t.Fatalf("budgets=%d want=2", len(a.Budgets))
	}
	if a.Budgets[0].Amount != 2*unit || a.Budgets[0].Category != "Food" {
		t.Fatalf("unexpected budget %+v", a.Budgets[0])
	}
	if len(a.Transactions) != 0 {
		t.Fatalf("budget must not log transactions")
	}

	// 不同月份是不同的鍵
	res = apply(t, a, Command{Op: OpSetBudget, Label: "Food", Amount: 0, Month: 7, Year: 2023})
	if res.Index != 2 {
		t.Fatalf("index=%d want=2", res.Index)
	}

	applyErr(t, a, Command{Op: OpSetBudget, Label: "Food", Amount: unit, Month: 0, Year: 2023}, ErrInvalidParameter)
	applyErr(t, a, Command{Op: OpSetBudget, Label: "Food", Amount: unit, Month: 13, Year: 2023}, ErrInvalidParameter)
	applyErr(t, a, Command{Op: OpSetBudget, Label: "Food", Amount: -1, Month: 6, Year: 2023}, ErrInvalidAmount)
}

func TestSavingsGoalCompletion(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpDeposit, Amount: 20 * unit})
	deadline := now + 86400

	res := apply(t, a, Command{Op: OpCreateSavingsGoal, Label: "Car", Description: "Save for a car", Amount: 10 * unit, Deadline: deadline})
	if res.Index != 0 {
		t.Fatalf("index=%d", res.Index)
	}
	g := a.SavingsGoals[0]
	if g.CurrentAmount != 0 || g.Completed || g.Deadline != deadline || g.TargetAmount != 10*unit {
		t.Fatalf("unexpected goal %+v", g)
	}
	txCount := len(a.Transactions)

	res = apply(t, a, Command{Op: OpContributeToSavingsGoal, Index: 0, Amount: 5 * unit})
	if res.Goal.Completed || res.Goal.CurrentAmount != 5*unit {
		t.Fatalf("unexpected goal %+v", res.Goal)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events=%d want=1", len(res.Events))
	}

	res = apply(t, a, Command{Op: OpContributeToSavingsGoal, Index: 0, Amount: 5 * unit})
	if !res.Goal.Completed || !a.SavingsGoals[0].Completed {
		t.Fatalf("goal should be completed")
	}
	if len(res.Events) != 2 || res.Events[1].Name != EventSavingsGoalCompleted {
		t.Fatalf("unexpected events %+v", res.Events)
	}
	if len(a.Transactions) != txCount+2 {
		t.Fatalf("transactions=%d want=%d", len(a.Transactions), txCount+2)
	}

	applyErr(t, a, Command{Op: OpContributeToSavingsGoal, Index: 0, Amount: unit}, ErrAlreadyCompleted)
	if !a.SavingsGoals[0].Completed {
		t.Fatalf("completed reverted")
	}
	applyErr(t, a, Command{Op: OpContributeToSavingsGoal, Index: 9, Amount: unit}, ErrNotFound)
}

func TestSavingsGoalOvershootCompletes(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpDeposit, Amount: 20 * unit})
	apply(t, a, Command{Op: OpCreateSavingsGoal, Label: "Car", Amount: 10 * unit, Deadline: now + 1})
	res := apply(t, a, Command{Op: OpContributeToSavingsGoal, Index: 0, Amount: 15 * unit})
	if !res.Goal.Completed || res.Goal.CurrentAmount != 15*unit {
		t.Fatalf("unexpected goal %+v", res.Goal)
	}
}

func TestSavingsGoalValidation(t *testing.T) {
	a := NewAccount("alice")
	applyErr(t, a, Command{Op: OpCreateSavingsGoal, Label: "Car", Amount: 0, Deadline: now + 1}, ErrInvalidParameter)
	applyErr(t, a, Command{Op: OpCreateSavingsGoal, Label: "Car", Amount: unit, Deadline: now}, ErrInvalidParameter)

	apply(t, a, Command{Op: OpCreateSavingsGoal, Label: "Car", Amount: unit, Deadline: now + 1})
	applyErr(t, a, Command{Op: OpContributeToSavingsGoal, Index: 0, Amount: unit}, ErrInsufficientBalance)
	applyErr(t, a, Command{Op: OpContributeToSavingsGoal, Index: 0, Amount: 0}, ErrInvalidAmount)

	// 期限過後仍可存入
	apply(t, a, Command{Op: OpDeposit, Amount: unit})
	apply(t, a, Command{Op: OpContributeToSavingsGoal, Index: 0, Amount: unit / 2, CreatedAt: now + 3600})
}

func TestUnknownOperation(t *testing.T) {
	applyErr(t, NewAccount("alice"), Command{Op: 0}, ErrUnknownOperation)
}

// TestBalanceConservation 以獨立模型計算預期餘額，並確認交易紀錄只增不減
func TestBalanceConservation(t *testing.T) {
	a := NewAccount("alice")
	cmds := []Command{
		{Op: OpDeposit, Amount: 10 * unit},
		{Op: OpWithdraw, Amount: 3 * unit},
		{Op: OpTakeLoan, Amount: 2 * unit, InterestRate: 7, Duration: 90},
		{Op: OpMakeInvestment, Amount: 4 * unit, Label: "Bonds"},
		{Op: OpAddExpense, Amount: unit, Label: "Food", Description: "Dinner"},
		{Op: OpSetBudget, Label: "Food", Amount: 3 * unit, Month: 6, Year: 2023},
		{Op: OpCreateSavingsGoal, Label: "Trip", Amount: 2 * unit, Deadline: now + 100},
		{Op: OpContributeToSavingsGoal, Index: 0, Amount: unit},
		{Op: OpWithdrawInvestment, Index: 0},
		{Op: OpRepayLoan, Index: 0, Amount: 2*unit + 2*unit*7/100},
		{Op: OpWithdraw, Amount: 100 * unit}, // 失敗
		{Op: OpContributeToSavingsGoal, Index: 0, Amount: unit},
	}

	var expected int64
	prevTx := 0
	for _, cmd := range cmds {
		cmd.CreatedAt = now
		before := a.Clone()
		res, err := a.Apply(&cmd)
		if err != nil {
			assertSameState(t, before, a)
			continue
		}
		switch cmd.Op {
		case OpDeposit, OpTakeLoan:
			expected += cmd.Amount
		case OpWithdraw, OpRepayLoan, OpMakeInvestment, OpAddExpense, OpContributeToSavingsGoal:
			expected -= cmd.Amount
		case OpWithdrawInvestment:
			expected += res.Payout
		}
		if a.Balance != expected {
			t.Fatalf("after %s balance=%d want=%d", cmd.Op, a.Balance, expected)
		}
		if a.Balance < 0 {
			t.Fatalf("negative balance after %s", cmd.Op)
		}

		wantTx := prevTx + 1
		if cmd.Op == OpSetBudget || cmd.Op == OpCreateSavingsGoal {
			wantTx = prevTx
		}
		if len(a.Transactions) != wantTx {
			t.Fatalf("after %s transactions=%d want=%d", cmd.Op, len(a.Transactions), wantTx)
		}
		for i := 0; i < prevTx; i++ {
			if a.Transactions[i] != before.Transactions[i] {
				t.Fatalf("transaction %d rewritten", i)
			}
		}
		prevTx = len(a.Transactions)
	}
	if a.Sequence != uint64(len(cmds)-1) {
		t.Fatalf("sequence=%d want=%d", a.Sequence, len(cmds)-1)
	}
}

func TestApplyStampsEvents(t *testing.T) {
	a := NewAccount("bob")
	res := apply(t, a, Command{Op: OpDeposit, Amount: 7})
	if len(res.Events) != 1 {
		t.Fatalf("events=%d", len(res.Events))
	}
	ev := res.Events[0]
	if ev.Name != EventDeposit || ev.Owner != "bob" || ev.Sequence != 1 || ev.Timestamp != now {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Fields["amount"] != int64(7) {
		t.Fatalf("amount field=%v", ev.Fields["amount"])
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := NewAccount("alice")
	apply(t, a, Command{Op: OpDeposit, Amount: unit})
	apply(t, a, Command{Op: OpTakeLoan, Amount: unit, InterestRate: 1, Duration: 1})
	cp := a.Clone()
	cp.Loans[0].Active = false
	cp.Transactions[0].Amount = 1
	if !a.Loans[0].Active || a.Transactions[0].Amount != unit {
		t.Fatalf("clone shares memory with its source")
	}
}

func TestReasonRoundTrip(t *testing.T) {
	for _, r := range reasons {
		if got := ErrorFromReason(Reason(r.err)); got != r.err {
			t.Errorf("reason %s maps back to %v", r.reason, got)
		}
	}
	if Reason(errors.New("other")) != "" {
		t.Fatalf("foreign error should have empty reason")
	}
}

func TestReasonsOfCompoundError(t *testing.T) {
	a := NewAccount("alice")
	_, err := a.Apply(&Command{Op: OpWithdraw, Owner: "alice", Amount: 0, CreatedAt: now})
	got := Reasons(err)
	if len(got) != 2 || got[0] != "INVALID_AMOUNT" || got[1] != "INSUFFICIENT_BALANCE" {
		t.Fatalf("reasons=%v", got)
	}
	if Reason(err) != "INVALID_AMOUNT" {
		t.Fatalf("reason=%s", Reason(err))
	}
}
