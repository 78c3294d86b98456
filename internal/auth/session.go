package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/model"
)

// Session はリクエストごとの認証済み利用者です
type Session struct {
	AccountID uuid.UUID
	Role      model.Role
	ProfileID uuid.UUID
}

type sessionKey struct{}

// WithSession はctxにSessionを格納します
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext はctxからSessionを取り出します
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
