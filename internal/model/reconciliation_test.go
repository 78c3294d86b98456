package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestReconcile(t *testing.T) {
	inf := NewInfluencer(InfluencerProfile{Name: "Luca"}, uuid.New())
	inf.TotalCreditsEarned = decimal.NewFromInt(50)
	inf.WalletBalance.Available = decimal.NewFromInt(30)
	inf.WalletBalance.Redeemed = decimal.NewFromInt(20)

	tests := []struct {
		name   string
		totals LedgerTotals
		want   bool
	}{
		{
			name:   "一致",
			totals: LedgerTotals{Earned: decimal.NewFromInt(50), Redeemed: decimal.NewFromInt(20)},
			want:   true,
		},
		{
			name:   "付与ログの欠落",
			totals: LedgerTotals{Earned: decimal.NewFromInt(40), Redeemed: decimal.NewFromInt(20)},
			want:   false,
		},
		{
			name:   "利用ログの欠落",
			totals: LedgerTotals{Earned: decimal.NewFromInt(50), Redeemed: decimal.Zero},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(&inf, tt.totals)
			if got.Consistent != tt.want {
				t.Errorf("Reconcile().Consistent = %v, want %v", got.Consistent, tt.want)
			}
			if got.InfluencerID != inf.ID {
				t.Errorf("Reconcile().InfluencerID = %v, want %v", got.InfluencerID, inf.ID)
			}
		})
	}
}
