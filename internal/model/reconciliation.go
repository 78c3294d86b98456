package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerTotals は台帳から集計した種別ごとの合計です
type LedgerTotals struct {
	Earned   decimal.Decimal
	Redeemed decimal.Decimal
}

// ReconciliationReport は台帳とウォレットのキャッシュ値の突合結果です
type ReconciliationReport struct {
	InfluencerID    uuid.UUID       `json:"influencerId"`
	EarnedLogged    decimal.Decimal `json:"earnedLogged"`
	RedeemedLogged  decimal.Decimal `json:"redeemedLogged"`
	WalletEarned    decimal.Decimal `json:"walletEarned"`
	WalletRedeemed  decimal.Decimal `json:"walletRedeemed"`
	WalletAvailable decimal.Decimal `json:"walletAvailable"`
	Consistent      bool            `json:"consistent"`
}

// Reconcile はウォレットが台帳の射影と一致しているかを判定します
func Reconcile(inf *Influencer, totals LedgerTotals) ReconciliationReport {
	report := ReconciliationReport{
		InfluencerID:    inf.ID,
		EarnedLogged:    totals.Earned,
		RedeemedLogged:  totals.Redeemed,
		WalletEarned:    inf.TotalCreditsEarned,
		WalletRedeemed:  inf.WalletBalance.Redeemed,
		WalletAvailable: inf.WalletBalance.Available,
	}
	report.Consistent = totals.Earned.Equal(inf.TotalCreditsEarned) &&
		totals.Redeemed.Equal(inf.WalletBalance.Redeemed) &&
		totals.Earned.Sub(totals.Redeemed).Equal(inf.WalletBalance.Available)
	return report
}
