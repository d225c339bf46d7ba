package blogservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUserForeignKey = errors.New("user_id does not exist")
	ErrEditConflict   = errors.New("unable to update the record due to an edit conflict, please try again")
)

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

// insert stores the blog and attaches it to its owner in one transaction.
func (m *BlogModel) insert(ctx context.Context, blog *Blog) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO blogs (id, title, author, url, likes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, version`

	args := []any{blog.ID, blog.Title, blog.Author, blog.URL, blog.Likes, toNullUUID(blog.UserID)}

	err = tx.QueryRowContext(ctx, query, args...).Scan(&blog.CreatedAt, &blog.Version)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case common.IsForeignKeyViolation(err, "blogs_user_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	if blog.UserID != nil {
		err = attach(ctx, tx, *blog.UserID, blog.ID)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (m *BlogModel) getBlogById(ctx context.Context, id uuid.UUID) (*Blog, error) {
	query := `
		SELECT id, title, author, url, likes, user_id, created_at, version
		FROM blogs
		WHERE id = $1`

	blog, err := scanBlog(m.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return blog, nil
}

// getBlogs returns blogs oldest first. A nil limit returns every row.
func (m *BlogModel) getBlogs(ctx context.Context, limit *int, offset int) ([]Blog, error) {
	query := `
		SELECT id, title, author, url, likes, user_id, created_at, version
		FROM blogs
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`

	var l sql.NullInt64
	if limit != nil {
		l = sql.NullInt64{Int64: int64(*limit), Valid: true}
	}

	rows, err := m.db.QueryContext(ctx, query, l, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *blog)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

// updateBlog replaces the mutable fields. The version guards against
// concurrent writers; a row that is gone altogether is ErrRecordNotFound.
func (m *BlogModel) updateBlog(ctx context.Context, blog *Blog) error {
	query := `
		UPDATE blogs
		SET title = $1, author = $2, url = $3, likes = $4, version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version`

	args := []any{blog.Title, blog.Author, blog.URL, blog.Likes, blog.ID, blog.Version}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&blog.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			exists, err := m.exists(ctx, blog.ID)
			if err != nil {
				return err
			}
			if !exists {
				return ErrRecordNotFound
			}
			return ErrEditConflict
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM blogs WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// deleteBlog removes the blog and detaches it from its owner in one
// transaction. It returns the owner the blog had, if any.
func (m *BlogModel) deleteBlog(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	query := `
		DELETE FROM blogs
		WHERE id = $1
		RETURNING user_id`

	var owner uuid.NullUUID
	err = tx.QueryRowContext(ctx, query, id).Scan(&owner)
	if err != nil {
		_ = tx.Rollback()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	if owner.Valid {
		err = detach(ctx, tx, owner.UUID, id)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return fromNullUUID(owner), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (*Blog, error) {
	var (
		blog  Blog
		owner uuid.NullUUID
	)

	err := row.Scan(&blog.ID, &blog.Title, &blog.Author, &blog.URL, &blog.Likes, &owner, &blog.CreatedAt, &blog.Version)
	if err != nil {
		return nil, err
	}

	blog.UserID = fromNullUUID(owner)

	return &blog, nil
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}
