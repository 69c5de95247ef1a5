package domain

import "errors"

var (
	// ErrInvalidAmount 金額為零、負數或格式錯誤
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidParameter 參數超出範圍 (利率、月份、期間、目標金額、期限)
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientPayment 還款金額低於應還金額
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrNotFound 找不到指定索引的紀錄 (貸款/投資/儲蓄目標)
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyRepaid 貸款已還清
	ErrAlreadyRepaid = errors.New("loan already repaid")

	// ErrAlreadyWithdrawn 投資已贖回
	ErrAlreadyWithdrawn = errors.New("investment already withdrawn")

	// ErrAlreadyCompleted 儲蓄目標已達成
	ErrAlreadyCompleted = errors.New("savings goal already completed")

	// ErrUnknownOperation 不支援的指令類型
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrLedgerClosed 帳本已關閉，不再接受指令
	ErrLedgerClosed = errors.New("ledger closed")
)

// reasons 錯誤對應的穩定代碼，供傳輸層 (gRPC ErrorInfo) 使用
var reasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInvalidParameter, "INVALID_PARAMETER"},
	{ErrInsufficientBalance, "INSUFFICIENT_BALANCE"},
	{ErrInsufficientPayment, "INSUFFICIENT_PAYMENT"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrAlreadyRepaid, "ALREADY_REPAID"},
	{ErrAlreadyWithdrawn, "ALREADY_WITHDRAWN"},
	{ErrAlreadyCompleted, "ALREADY_COMPLETED"},
	{ErrUnknownOperation, "UNKNOWN_OPERATION"},
	{ErrWALWriteFailed, "WAL_WRITE_FAILED"},
	{ErrLedgerClosed, "LEDGER_CLOSED"},
}

// Reason 回傳錯誤的穩定代碼，非領域錯誤回傳空字串。
// 同時符合多個錯誤時 (例如提款金額為零)，以表中先出現者為準。
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}

// Reasons 回傳錯誤符合的所有代碼，依表中順序
func Reasons(err error) []string {
	var out []string
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			out = append(out, r.reason)
		}
	}
	return out
}

// ErrorFromReason 由代碼還原為對應的領域錯誤，未知代碼回傳 nil
func ErrorFromReason(reason string) error {
	for _, r := range reasons {
		if r.reason == reason {
			return r.err
		}
	}
	return nil
}
