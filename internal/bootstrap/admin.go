package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Vaultexe/server/internal/config"
	"github.com/Vaultexe/server/internal/domain"
	"github.com/Vaultexe/server/internal/password"
	"github.com/Vaultexe/server/internal/repository"
)

// EnsureAdmin seeds the first admin account at startup if missing. Every
// later account enters through the invitation flow, so without this hook
// a fresh deployment has nobody who can invite.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, users repository.UserRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, users, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || strings.TrimSpace(cfg.AdminPassword) == "" {
		return fmt.Errorf("admin bootstrap missing required config")
	}

	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	user := domain.User{
		ID:            uuid.NewString(),
		Name:          "Admin",
		Email:         email,
		EmailVerified: true,
		IsActive:      true,
		IsAdmin:       true,
		MasterPwdHash: hashed,
		CreatedAt:     time.Now().UTC(),
	}

	created, err := users.Create(ctx, user)
	if err != nil {
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.Email),
			zap.String("user_id", created.ID),
		)
	}
	return nil
}
