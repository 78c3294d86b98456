package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/model"
)

const issuer = "refereat"

var ErrInvalidToken = errors.New("invalid or expired access token")

type Claims struct {
	AccountID uuid.UUID  `json:"account_id"`
	Role      model.Role `json:"role"`
	ProfileID uuid.UUID  `json:"profile_id"`
	jwt.RegisteredClaims
}

// TokenIssuer はHS256のアクセストークンを発行・検証します
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue はアカウントのアクセストークンを発行します
func (t *TokenIssuer) Issue(account model.Account) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		AccountID: account.ID,
		Role:      account.Role,
		ProfileID: account.ProfileID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   account.ID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse はトークンを検証してSessionを返します
func (t *TokenIssuer) Parse(tokenString string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}
	if claims.Role != model.RoleRestaurant && claims.Role != model.RoleInfluencer {
		return Session{}, ErrInvalidToken
	}
	return Session{
		AccountID: claims.AccountID,
		Role:      claims.Role,
		ProfileID: claims.ProfileID,
	}, nil
}
