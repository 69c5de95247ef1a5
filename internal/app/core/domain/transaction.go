package domain

import "fmt"

// TransactionType 交易類型
// 為了節省記憶體，使用 uint8
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = iota + 1
	// 提款
	TransactionTypeWithdrawal
	// 借款入帳
	TransactionTypeLoan
	// 還款
	TransactionTypeLoanRepayment
	// 投資本金
	TransactionTypeInvestment
	// 投資收益
	TransactionTypeInvestmentReturn
	// 支出
	TransactionTypeExpense
	// 儲蓄
	TransactionTypeSavings
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeDeposit:          "Deposit",
	TransactionTypeWithdrawal:       "Withdrawal",
	TransactionTypeLoan:             "Loan",
	TransactionTypeLoanRepayment:    "LoanRepayment",
	TransactionTypeInvestment:       "Investment",
	TransactionTypeInvestmentReturn: "InvestmentReturn",
	TransactionTypeExpense:          "Expense",
	TransactionTypeSavings:          "Savings",
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", uint8(t))
}

// MarshalText 以名稱序列化 (JSON 中顯示為 "Deposit" 而非數字)
func (t TransactionType) MarshalText() ([]byte, error) {
	if _, ok := transactionTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown transaction type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText 由名稱還原交易類型
func (t *TransactionType) UnmarshalText(text []byte) error {
	for k, v := range transactionTypeNames {
		if v == string(text) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown transaction type %q", text)
}

// Credit 回傳此類型是否增加餘額
func (t TransactionType) Credit() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeLoan, TransactionTypeInvestmentReturn:
		return true
	}
	return false
}

// Transaction 交易紀錄，寫入後不可變更
type Transaction struct {
	// Amount: 金額 (最小貨幣單位)
	Amount int64 `json:"amount"`
	// Timestamp: 交易時間 (Unix 秒)
	Timestamp int64 `json:"timestamp"`
	// Details: 說明文字
	Details string `json:"details"`
	// Type: 放到最後面，利用 Padding 空間
	Type TransactionType `json:"transactionType"`
}
