package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"learnhub/m/domain"
)

const userColumns = `id, name, email, password, role, created_at`

// UserRepository reads and writes rows of the users table.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u and returns the stored row. A taken email yields ErrDuplicateKey.
func (r *UserRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.Role == "" {
		u.Role = domain.DefaultRole
	}
	var out domain.User
	q := r.db.Rebind(`INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?) RETURNING ` + userColumns)
	if err := r.db.GetContext(ctx, &out, q, u.Name, u.Email, u.Password, u.Role); err != nil {
		return domain.User{}, mapError(err)
	}
	return out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		return domain.User{}, mapError(err)
	}
	return u, nil
}

// List returns every user ordered by id.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}
