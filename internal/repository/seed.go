package repository

import (
	"context"
	"errors"
	"fmt"

	"classroom/internal/model"
	"classroom/pkg/constraints"

	"golang.org/x/crypto/bcrypt"
)

// SeedUser describes an account created at startup.
type SeedUser struct {
	Username    string
	Email       string
	Password    string
	IsSuperuser bool
	Groups      []string
}

// DefaultSeed mirrors the demo accounts of the production system.
var DefaultSeed = []SeedUser{
	{Username: "admin", Email: "admin@example.com", Password: "Admin@123", IsSuperuser: true, Groups: []string{constraints.GroupAdmin}},
	{Username: "instrutor1", Email: "instrutor1@example.com", Password: "Senha@123", Groups: []string{constraints.GroupInstructor}},
	{Username: "instrutor2", Email: "instrutor2@example.com", Password: "Senha@123", Groups: []string{constraints.GroupInstructor}},
	{Username: "aluno1", Email: "aluno1@example.com", Password: "Senha@123"},
	{Username: "aluno2", Email: "aluno2@example.com", Password: "Senha@123"},
	{Username: "aluno3", Email: "aluno3@example.com", Password: "Senha@123"},
	{Username: "aluno4", Email: "aluno4@example.com", Password: "Senha@123"},
	{Username: "aluno5", Email: "aluno5@example.com", Password: "Senha@123"},
}

// Seed creates the given accounts with bcrypt hashes of the given cost.
// Accounts that already exist are skipped.
func Seed(ctx context.Context, users UserRepository, seed []SeedUser, cost int) error {
	for _, su := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), cost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.Username, err)
		}
		u := &model.User{
			Username:     su.Username,
			Email:        su.Email,
			PasswordHash: hash,
			IsSuperuser:  su.IsSuperuser,
			IsActive:     true,
			Groups:       su.Groups,
		}
		if err := users.Create(ctx, u); err != nil && !errors.Is(err, ErrDuplicateUser) {
			return fmt.Errorf("seed %s: %w", su.Username, err)
		}
	}
	return nil
}
