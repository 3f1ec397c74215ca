// Package seed creates initial data at startup.
package seed

import (
	"context"
	"errors"
	"fmt"

	"learnhub/m/domain"
	"learnhub/m/internal/auth"
	"learnhub/m/internal/config"
	"learnhub/m/internal/logging"
	"learnhub/m/internal/store"
)

type userStore interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// Admin creates the configured ADMIN account unless it already exists.
// It does nothing when no seed email or password is configured.
func Admin(ctx context.Context, users userStore, cfg config.SeedAdminConfig, log logging.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	_, err := users.GetByEmail(ctx, cfg.Email)
	if err == nil {
		log.Debug(ctx, "seed admin already present", "email", cfg.Email)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("seed admin lookup: %w", err)
	}

	hashed, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("seed admin hash: %w", err)
	}

	var name *string
	if cfg.Name != "" {
		name = &cfg.Name
	}
	created, err := users.Create(ctx, domain.User{Name: name, Email: cfg.Email, Password: hashed, Role: domain.RoleAdmin})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("seed admin create: %w", err)
	}
	log.Info(ctx, "seeded admin user", "user_id", created.ID)
	return nil
}
