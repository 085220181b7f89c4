package auth

import (
	"context"
	"fmt"

	"electric-inventory/internal/branch"
	"electric-inventory/internal/crypto"
	"electric-inventory/internal/errs"
	"electric-inventory/internal/metrics"
	"electric-inventory/internal/models"
	"electric-inventory/internal/user"
	"electric-inventory/internal/validation"

	"go.uber.org/zap"
)

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	// BranchName disambiguates usernames that exist in several branches.
	BranchName string `json:"branchName"`
}

type Service struct {
	users    *user.Service
	branches *branch.Service
	tokens   *TokenIssuer
	logger   *zap.Logger
}

func NewService(users *user.Service, branches *branch.Service, tokens *TokenIssuer, logger *zap.Logger) *Service {
	return &Service{users: users, branches: branches, tokens: tokens, logger: logger}
}

// Login checks the password against every active user with that username
// (usernames are unique per branch only) and signs a token for the first
// match by id.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, *models.User, error) {
	candidates, err := s.users.FindActiveByUsername(ctx, in.Username, in.BranchName)
	if err != nil {
		return "", nil, err
	}

	for i := range candidates {
		u := &candidates[i]
		if !crypto.VerifyPassword(u.PasswordHash, in.Password) {
			continue
		}

		token, err := s.tokens.Issue(u)
		if err != nil {
			return "", nil, fmt.Errorf("sign token: %w", err)
		}
		metrics.LoginAttempts.WithLabelValues("success").Inc()
		s.logger.Info("user logged in", zap.Uint("user_id", u.ID), zap.String("role", string(u.Role)))
		return token, u, nil
	}

	metrics.LoginAttempts.WithLabelValues("failure").Inc()
	s.logger.Info("login failed", zap.String("username", in.Username))
	return "", nil, fmt.Errorf("invalid credentials: %w", errs.ErrUnauthorized)
}

// Register creates the first ADMIN account. It is closed once an active
// ADMIN exists; later accounts are created through the users endpoints.
// A missing branch is created in the same transaction as the user.
func (s *Service) Register(ctx context.Context, in user.CreateInput) (*models.User, error) {
	admins, err := s.users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if admins > 0 {
		return nil, fmt.Errorf("registration is closed, ask an administrator: %w", errs.ErrForbidden)
	}

	if role, ok := models.ParseUserRole(in.Role); ok && role != models.RoleAdmin {
		return nil, validation.NewError("role", "oneof", "the first registered user must be ADMIN")
	}

	u, err := s.users.CreateWithBranch(ctx, in, s.branches)
	if err != nil {
		return nil, err
	}
	s.logger.Info("bootstrap admin registered", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}
