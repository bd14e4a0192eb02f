package user

import (
	"context"
	"errors"
)

// ErrNotFound é retornado quando o usuário não existe
var ErrNotFound = errors.New("usuário não encontrado")

// ErrDuplicateEmail é retornado quando o email já está cadastrado
var ErrDuplicateEmail = errors.New("email já cadastrado")

// Repository define a interface para operações de repositório de usuários
type Repository interface {
	// Create persiste um novo usuário
	Create(ctx context.Context, u *User) error

	// FindByEmail busca um usuário pelo email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID busca um usuário pelo ID
	FindByID(ctx context.Context, id string) (*User, error)

	// CountAdmins conta os usuários ativos com papel ADMIN
	CountAdmins(ctx context.Context) (int64, error)
}
