package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

const (
	// MoneyScale は利用金額と償還額で受け付ける小数点以下の桁数です
	MoneyScale int32 = 2
	// CreditScale はウォレットと台帳に保存するクレジットの桁数です
	CreditScale int32 = 4
)

// HasMoneyScale は金額が小数点以下MoneyScale桁に収まっているかを返します
// 45.000のような末尾の0は許可します
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// ValidateSpend は利用金額が0以上かつ小数点以下2桁以内かを検証します
func ValidateSpend(spend decimal.Decimal) error {
	if spend.IsNegative() || !HasMoneyScale(spend) {
		return ErrInvalidSpend
	}
	return nil
}

// ValidateAmount は償還額が正かつ小数点以下2桁以内かを検証します
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !HasMoneyScale(amount) {
		return ErrInvalidAmount
	}
	return nil
}

// ComputeCredit は利用金額と手数料率(%)からクレジット額を計算します
// 結果はCreditScale桁に丸めるため、返却値と保存値は一致します
// 利用金額が0以下の場合は0を返します
func ComputeCredit(spend, rate decimal.Decimal) decimal.Decimal {
	if !spend.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	return spend.Mul(rate).Div(hundred).Round(CreditScale)
}

// AccrualDescription は付与ログに残す監査用の説明文です
func AccrualDescription(rate, spend decimal.Decimal) string {
	return fmt.Sprintf("Commission (%s%%) on €%s spend", rate.String(), spend.String())
}

// ApplyAccrual は予約1件分のクレジット付与をウォレットと集計値に反映します
func (i *Influencer) ApplyAccrual(spend, credit decimal.Decimal) {
	i.WalletBalance.Available = i.WalletBalance.Available.Add(credit)
	i.TotalSpendGenerated = i.TotalSpendGenerated.Add(spend)
	i.TotalCreditsEarned = i.TotalCreditsEarned.Add(credit)
	i.TotalBookings++
}

// ApplyRedemption は利用可能残高からamountを引き、利用済みに加算します
// 残高不足の場合は何も変更せずErrInsufficientFundsを返します
func (i *Influencer) ApplyRedemption(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if i.WalletBalance.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	i.WalletBalance.Available = i.WalletBalance.Available.Sub(amount)
	i.WalletBalance.Redeemed = i.WalletBalance.Redeemed.Add(amount)
	return nil
}
