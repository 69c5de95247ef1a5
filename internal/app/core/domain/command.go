package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxOwnerLength 帳戶識別的最大長度 (bytes)
const MaxOwnerLength = 128

// Operation 指令類型
type Operation uint8

const (
	OpDeposit Operation = iota + 1
	OpWithdraw
	OpTakeLoan
	OpRepayLoan
	OpMakeInvestment
	OpWithdrawInvestment
	OpAddExpense
	OpSetBudget
	OpCreateSavingsGoal
	OpContributeToSavingsGoal
)

var operationNames = map[Operation]string{
	OpDeposit:                 "deposit",
	OpWithdraw:                "withdraw",
	OpTakeLoan:                "takeLoan",
	OpRepayLoan:               "repayLoan",
	OpMakeInvestment:          "makeInvestment",
	OpWithdrawInvestment:      "withdrawInvestment",
	OpAddExpense:              "addExpense",
	OpSetBudget:               "setBudget",
	OpCreateSavingsGoal:       "createSavingsGoal",
	OpContributeToSavingsGoal: "contributeToSavingsGoal",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", uint8(o))
}

// Command 一筆對單一帳戶的狀態變更請求，也是 WAL 的紀錄單位。
// 欄位依操作共用:
//
//	Amount: 存提款/借款/還款/投資/支出/預算/目標/儲蓄金額
//	Index: 貸款、投資或儲蓄目標的索引
//	Label: 投資類型、支出或預算分類、儲蓄目標名稱
//
// CreatedAt 由建立指令的一方填入，重放時沿用，確保結果一致。
type Command struct {
	// Sequence: 帳戶內的順序號 (由帳本分配，1, 2, 3...)
	Sequence     uint64    `json:"seq"`
	Amount       int64     `json:"amount,omitempty"`
	InterestRate int64     `json:"rate,omitempty"`
	Duration     int64     `json:"duration,omitempty"`
	Deadline     int64     `json:"deadline,omitempty"`
	CreatedAt    int64     `json:"ts"`
	Index        int       `json:"index,omitempty"`
	Month        int       `json:"month,omitempty"`
	Year         int       `json:"year,omitempty"`
	Owner        string    `json:"owner"`
	Label        string    `json:"label,omitempty"`
	Description  string    `json:"desc,omitempty"`
	CommandID    uuid.UUID `json:"id"`
	Op           Operation `json:"op"`
}

// Result 指令成功後的回傳值
// 依操作類型只會填入部分欄位，對照表:
//
//	deposit/withdraw: Balance
//	takeLoan/makeInvestment/addExpense/setBudget/createSavingsGoal: Index
//	repayLoan: Loan
//	withdrawInvestment: Payout
//	contributeToSavingsGoal: Goal
type Result struct {
	Sequence uint64       `json:"seq"`
	Balance  int64        `json:"balance"`
	Payout   int64        `json:"payout,omitempty"`
	Index    int          `json:"index"`
	Loan     *Loan        `json:"loan,omitempty"`
	Goal     *SavingsGoal `json:"goal,omitempty"`
	Events   []Event      `json:"events,omitempty"`
	// Duplicate: 此指令先前已處理過，回傳的是當時的結果
	Duplicate bool `json:"duplicate,omitempty"`
}
