package services

import (
	"context"
	"errors"
	"strings"

	"github.com/newdaybreak/careers/types"
	"golang.org/x/crypto/bcrypt"
)

// AdminAccount is the account created when no administrator exists yet.
type AdminAccount struct {
	Name     string
	Email    string
	Password string
}

// SeedAdmin creates the administrator account unless one already exists.
// It is safe to run on every deploy. The returned flag reports whether a
// user was inserted.
func SeedAdmin(ctx context.Context, repo UserRepository, account AdminAccount) (types.User, bool, error) {
	account.Email = strings.TrimSpace(account.Email)
	account.Name = strings.TrimSpace(account.Name)
	if account.Email == "" {
		return types.User{}, false, errors.New("admin email is required")
	}
	if account.Password == "" {
		return types.User{}, false, errors.New("admin password is required")
	}
	if account.Name == "" {
		account.Name = "Admin"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, false, err
	}

	return repo.CreateAdminIfMissing(ctx, types.User{
		Name:         account.Name,
		Email:        account.Email,
		Role:         types.RoleAdmin,
		PasswordHash: string(hashed),
	})
}
