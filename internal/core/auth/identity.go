package auth

import (
	"context"

	"tms-graphql-api/internal/domain"
)

// Identity 是一次请求的调用者；零值表示匿名
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role

	// 查用户时存储出错；此时身份未知，需要登录的操作返回该错误
	err error
}

// Failed 构造一个因存储错误而无法确定的身份
func Failed(err error) Identity { return Identity{err: err} }

func (i Identity) Err() error { return i.err }

func (i Identity) Anonymous() bool { return i.UserID == "" }

func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

func RequireAuth(ctx context.Context) (Identity, error) {
	id := FromContext(ctx)
	if id.err != nil {
		return id, id.err
	}
	if id.Anonymous() {
		return id, domain.Unauthenticated("authentication required")
	}
	return id, nil
}

func RequireAdmin(ctx context.Context) (Identity, error) {
	id, err := RequireAuth(ctx)
	if err != nil {
		return id, err
	}
	if !id.IsAdmin() {
		return id, domain.Forbidden("admin access required")
	}
	return id, nil
}
