package userservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrNotFound          = errors.New("user not found")
)

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func (m *DBModel) insertUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, username, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	args := []any{
		u.ID,
		u.Username,
		u.Name,
		u.Password.hash,
	}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&u.CreatedAt)
	if err != nil {
		switch {
		case common.IsUniqueViolation(err, "users_username_key"):
			return ErrDuplicateUsername
		default:
			return err
		}
	}

	u.OwnedBlogs = []uuid.UUID{}

	return nil
}

func (m *DBModel) getUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, name, password_hash, owned_blogs, created_at
		FROM users
		WHERE username = $1`

	return m.scanUser(m.db.QueryRowContext(ctx, query, username))
}

func (m *DBModel) getUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, username, name, password_hash, owned_blogs, created_at
		FROM users
		WHERE id = $1`

	return m.scanUser(m.db.QueryRowContext(ctx, query, id))
}

func (m *DBModel) getUsers(ctx context.Context) ([]User, error) {
	query := `
		SELECT id, username, name, owned_blogs, created_at
		FROM users
		ORDER BY created_at, username`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var (
			u     User
			owned pq.StringArray
		)

		err := rows.Scan(&u.ID, &u.Username, &u.Name, &owned, &u.CreatedAt)
		if err != nil {
			return nil, err
		}

		u.OwnedBlogs, err = parseIDs(owned)
		if err != nil {
			return nil, err
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (m *DBModel) scanUser(row *sql.Row) (*User, error) {
	var (
		u     User
		owned pq.StringArray
	)

	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Password.hash, &owned, &u.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	u.OwnedBlogs, err = parseIDs(owned)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("malformed owned blog id %q: %w", s, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
