package service

import (
	"context"
	"errors"
	"testing"

	"github.com/refereat/refereat-server/internal/auth"
	"github.com/refereat/refereat-server/internal/model"
	"go.uber.org/zap/zaptest"
)

func TestAccountService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := NewAccountService(env.tx, env.accounts, env.restaurants, MockTokenIssuer{}, zaptest.NewLogger(t))

	reg, err := svc.RegisterRestaurant(ctx, RegisterRestaurantInput{
		Name:                        "Trattoria",
		Email:                       "Owner@Trattoria.example",
		Password:                    "correct-horse",
		DefaultCommissionPercentage: decPtr("12"),
	})
	if err != nil {
		t.Fatalf("RegisterRestaurant() error = %v", err)
	}
	if reg.Account.ProfileID != reg.Restaurant.ID || reg.Account.Role != model.RoleRestaurant {
		t.Errorf("account = %+v", reg.Account)
	}
	if !reg.Restaurant.DefaultCommissionPercentage.Decimal.Equal(dec("12")) {
		t.Errorf("default commission = %v", reg.Restaurant.DefaultCommissionPercentage)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "ログイン成功", email: "owner@trattoria.example", password: "correct-horse"},
		{name: "パスワード不一致", email: "owner@trattoria.example", password: "wrong-horse", wantErr: model.ErrInvalidCredentials},
		{name: "存在しないアカウント", email: "nobody@example.com", password: "correct-horse", wantErr: model.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && result.Token == "" {
				t.Error("token is empty")
			}
		})
	}
}

func TestAccountService_RegisterRestaurant_Errors(t *testing.T) {
	env := newTestEnv()
	svc := NewAccountService(env.tx, env.accounts, env.restaurants, MockTokenIssuer{}, zaptest.NewLogger(t))
	if _, err := svc.RegisterRestaurant(context.Background(), RegisterRestaurantInput{
		Name: "First", Email: "dup@example.com", Password: "long-enough",
	}); err != nil {
		t.Fatalf("RegisterRestaurant() error = %v", err)
	}

	tests := []struct {
		name    string
		in      RegisterRestaurantInput
		wantErr error
	}{
		{
			name:    "登録済みのメールアドレス",
			in:      RegisterRestaurantInput{Name: "Second", Email: "DUP@example.com", Password: "long-enough"},
			wantErr: model.ErrEmailTaken,
		},
		{
			name:    "手数料率が範囲外",
			in:      RegisterRestaurantInput{Name: "Second", Email: "new@example.com", Password: "long-enough", DefaultCommissionPercentage: decPtr("101")},
			wantErr: model.ErrInvalidCommission,
		},
		{
			name:    "短いパスワード",
			in:      RegisterRestaurantInput{Name: "Second", Email: "new@example.com", Password: "short"},
			wantErr: auth.ErrWeakPassword,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterRestaurant(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RegisterRestaurant() error = %v, want %v", err, tt.wantErr)
			}
			if len(env.store.restaurants) != 1 {
				t.Errorf("restaurants = %d, want 1", len(env.store.restaurants))
			}
		})
	}
}
