package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NordCoder/tifi/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct{ db *DB }

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, first_name, last_name, is_active, created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 1, ?, ?);`

	qUserByID           = `SELECT ` + userColumns + ` FROM users WHERE id = ?;`
	qUserByEmail        = `SELECT ` + userColumns + ` FROM users WHERE email = ?;`
	qUserUpdatePassword = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?;`
	qUserDelete         = `DELETE FROM users WHERE id = ?;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	ts := r.db.nowNanos()
	u.Email = user.NormalizeEmail(u.Email)
	if _, err := r.db.querier(ctx).ExecContext(ctx, qUserInsert,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, ts, ts); err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("user insert: %w", err)
	}
	u.IsActive = true
	u.CreatedAt = fromNanos(ts)
	u.UpdatedAt = u.CreatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanUser(r.db.querier(ctx).QueryRowContext(ctx, qUserByID, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanUser(r.db.querier(ctx).QueryRowContext(ctx, qUserByEmail, user.NormalizeEmail(email)))
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.querier(ctx).ExecContext(ctx, qUserUpdatePassword, hash, r.db.nowNanos(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOne(res)
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.querier(ctx).ExecContext(ctx, qUserDelete, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*user.User, error) {
	var (
		u                user.User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromNanos(created)
	u.UpdatedAt = fromNanos(updated)
	return &u, nil
}
