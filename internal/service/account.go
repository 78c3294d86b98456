package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/auth"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TokenIssuer はログイン成功時にアクセストークンを発行します
type TokenIssuer interface {
	Issue(account model.Account) (string, time.Time, error)
}

// AccountService はアカウント登録とログインを担当します
type AccountService struct {
	tx             repository.Transactor
	accountRepo    repository.AccountRepository
	restaurantRepo repository.RestaurantRepository
	issuer         TokenIssuer
	logger         *zap.Logger
}

func NewAccountService(
	tx repository.Transactor,
	accountRepo repository.AccountRepository,
	restaurantRepo repository.RestaurantRepository,
	issuer TokenIssuer,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		tx:             tx,
		accountRepo:    accountRepo,
		restaurantRepo: restaurantRepo,
		issuer:         issuer,
		logger:         logger,
	}
}

// RegisterRestaurantInput はレストラン登録の入力です
type RegisterRestaurantInput struct {
	Name                        string           `json:"name" validate:"required"`
	Email                       string           `json:"email" validate:"required,email"`
	Password                    string           `json:"password" validate:"required"`
	Address                     string           `json:"address,omitempty"`
	DefaultCommissionPercentage *decimal.Decimal `json:"defaultCommissionPercentage,omitempty"`
}

// Registration は登録されたレストランとそのアカウントです
type Registration struct {
	Restaurant model.Restaurant `json:"restaurant"`
	Account    model.Account    `json:"account"`
}

// RegisterRestaurant はレストランとrestaurantロールのアカウントを1つのトランザクションで作成します
func (s *AccountService) RegisterRestaurant(ctx context.Context, in RegisterRestaurantInput) (*Registration, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "AccountService.RegisterRestaurant")
	defer seg.Close(nil)

	var commission decimal.NullDecimal
	if in.DefaultCommissionPercentage != nil {
		if err := model.ValidateCommission(*in.DefaultCommissionPercentage); err != nil {
			return nil, err
		}
		commission = decimal.NewNullDecimal(*in.DefaultCommissionPercentage)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	restaurant := model.NewRestaurant(in.Name, in.Email, in.Address, commission)
	account := model.NewAccount(in.Email, hash, model.RoleRestaurant, restaurant.ID)

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.restaurantRepo.Create(ctx, tx, &restaurant); err != nil {
			return err
		}
		return s.accountRepo.Create(ctx, tx, &account)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register restaurant: %w", err)
	}

	s.logger.Info("restaurant registered",
		zap.String("restaurant_id", restaurant.ID.String()),
		zap.String("account_id", account.ID.String()),
	)
	return &Registration{Restaurant: restaurant, Account: account}, nil
}

// LoginResult はログインで発行されたトークンです
type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Account   model.Account `json:"account"`
}

// Login はメールアドレスとパスワードを検証してアクセストークンを発行します
// アカウントが存在しない場合とパスワード不一致は区別せずmodel.ErrInvalidCredentialsを返します
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "AccountService.Login")
	defer seg.Close(nil)

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrAccountNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	ok, err := auth.CheckPassword(account.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrInvalidCredentials
	}

	token, expiresAt, err := s.issuer.Issue(*account)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: *account}, nil
}
