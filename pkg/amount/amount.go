// Package amount 轉換使用者輸入的十進位金額與帳本使用的最小貨幣單位
package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency 未指定幣別時使用
const DefaultCurrency = money.USD

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrTooPrecise      = errors.New("amount has more decimals than the currency allows")
	ErrOutOfRange      = errors.New("amount out of range")
)

// currencyOf 取得幣別，code 為空時使用 DefaultCurrency
func currencyOf(code string) (*money.Currency, error) {
	if code == "" {
		code = DefaultCurrency
	}
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return cur, nil
}

// Parse 將 "12.34" 轉為最小單位 (USD 為 1234)
//
// 參數:
//
//	s: 十進位金額字串，可含千分位逗號
//	code: ISO 4217 幣別代碼
//
// 回傳:
//
//	int64: 最小單位金額
//	error: 格式錯誤、小數位數超過幣別允許或超出 int64 範圍
func Parse(s, code string) (int64, error) {
	cur, err := currencyOf(code)
	if err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	minor := d.Shift(int32(cur.Fraction))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s %s", ErrTooPrecise, s, cur.Code)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, s)
	}
	return minor.IntPart(), nil
}

// Format 以幣別格式顯示最小單位金額，例如 1234 -> "$12.34"
func Format(minor int64, code string) string {
	cur, err := currencyOf(code)
	if err != nil {
		return fmt.Sprintf("%d", minor)
	}
	return money.New(minor, cur.Code).Display()
}

// Decimal 最小單位轉為十進位字串 (不含幣別符號)，例如 1234 -> "12.34"
func Decimal(minor int64, code string) string {
	cur, err := currencyOf(code)
	if err != nil {
		return fmt.Sprintf("%d", minor)
	}
	return decimal.New(minor, -int32(cur.Fraction)).StringFixed(int32(cur.Fraction))
}
