package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tms-graphql-api/internal/core/auth"
	"tms-graphql-api/internal/domain"
	"tms-graphql-api/pkg/utils"
)

type AuthPayload struct {
	Token string
	User  *domain.User
}

type AuthService struct {
	users      domain.UserRepository
	jwt        *auth.JWTer
	bcryptCost int
	log        *zap.Logger
}

func NewAuthService(users domain.UserRepository, j *auth.JWTer, bcryptCost int, l *zap.Logger) *AuthService {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthService{users: users, jwt: j, bcryptCost: bcryptCost, log: l}
}

// Login 不区分“用户不存在”与“密码错误”
func (s *AuthService) Login(ctx context.Context, in domain.LoginInput) (*AuthPayload, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, domain.InvalidCredentials("Invalid credentials")
	}
	return s.issue(u)
}

// Register 新用户一律为 EMPLOYEE
func (s *AuthService) Register(ctx context.Context, in domain.RegisterInput) (*AuthPayload, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	ex, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if ex != nil {
		return nil, domain.AlreadyExists("User already exists")
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         domain.RoleEmployee,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// 并发注册同一邮箱
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.AlreadyExists("User already exists")
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("uid", u.ID), zap.String("email", u.Email))
	return s.issue(u)
}

func (s *AuthService) Me(ctx context.Context, id auth.Identity) (*domain.User, error) {
	return s.users.FindByID(ctx, id.UserID)
}

func (s *AuthService) issue(u *domain.User) (*AuthPayload, error) {
	tok, err := s.jwt.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthPayload{Token: tok, User: u}, nil
}
