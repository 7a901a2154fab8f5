package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tms-graphql-api/internal/domain"
)

// UserLookup 只需要按 id 查用户
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Verifier resolves an Authorization header to an Identity. Token problems and
// unknown users yield the anonymous identity; a storage failure during the user
// lookup is kept on the identity (see Identity.Err) so protected operations
// report it instead of UNAUTHENTICATED.
type Verifier struct {
	JWT   *JWTer
	Users UserLookup
	Log   *zap.Logger
}

func NewVerifier(j *JWTer, users UserLookup, l *zap.Logger) *Verifier {
	if l == nil {
		l = zap.NewNop()
	}
	return &Verifier{JWT: j, Users: users, Log: l}
}

func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (v *Verifier) Resolve(ctx context.Context, header string) Identity {
	tok := BearerToken(header)
	if tok == "" {
		return Identity{}
	}
	claims, err := v.JWT.Parse(tok)
	if err != nil {
		v.Log.Debug("token rejected", zap.Error(err))
		return Identity{}
	}
	// 角色以库里为准：token 不会被服务端吊销
	u, err := v.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		v.Log.Warn("identity lookup failed", zap.String("uid", claims.UserID), zap.Error(err))
		return Failed(fmt.Errorf("resolve caller %s: %w", claims.UserID, err))
	}
	if u == nil {
		return Identity{}
	}
	return Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}
