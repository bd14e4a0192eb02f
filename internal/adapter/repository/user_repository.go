package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugohenrick/nfse-gateway/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implementa a interface user.Repository sobre PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository cria uma nova instância de UserRepository
func NewUserRepository(db *pgxpool.Pool) user.Repository {
	return &UserRepository{
		db: db,
	}
}

// Create implementa o método Create da interface user.Repository
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	query := `
		INSERT INTO users (id, name, email, password, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = conn.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.Password, u.Role, u.Active, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("falha ao inserir usuário: %w", err)
	}

	return nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*user.User, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf(`
		SELECT id, name, email, password, role, active, created_at, updated_at
		FROM users
		WHERE %s
	`, where)

	var u user.User
	err = conn.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("falha ao buscar usuário: %w", err)
	}

	return &u, nil
}

// FindByEmail implementa o método FindByEmail da interface user.Repository
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

// FindByID implementa o método FindByID da interface user.Repository
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

// CountAdmins implementa o método CountAdmins da interface user.Repository
func (r *UserRepository) CountAdmins(ctx context.Context) (int64, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE role = $1 AND active = true",
		user.RoleAdmin).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("falha ao contar administradores: %w", err)
	}

	return count, nil
}
