package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrOwnerNotFound = errors.New("owner not found")
)

// users.owned_blogs is a denormalized copy of blogs.user_id. attach and
// detach keep it current inside the blog write transaction; the rebuild
// functions recompute it from blogs when it has drifted.

func attach(ctx context.Context, tx *sql.Tx, userID, blogID uuid.UUID) error {
	query := `
		UPDATE users
		SET owned_blogs = array_append(owned_blogs, $2::uuid)
		WHERE id = $1`

	_, err := tx.ExecContext(ctx, query, userID, blogID)
	return err
}

func detach(ctx context.Context, tx *sql.Tx, userID, blogID uuid.UUID) error {
	query := `
		UPDATE users
		SET owned_blogs = array_remove(owned_blogs, $2::uuid)
		WHERE id = $1`

	_, err := tx.ExecContext(ctx, query, userID, blogID)
	return err
}

// rebuildOwnedBlogs overwrites the user's list with the ids of the blogs
// whose user_id points at them, oldest first.
//
// A create committing while this statement runs is not visible to its
// snapshot, so the new id can be dropped until the next rebuild.
func (m *BlogModel) rebuildOwnedBlogs(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET owned_blogs = COALESCE(
			(SELECT array_agg(b.id ORDER BY b.created_at, b.id) FROM blogs b WHERE b.user_id = $1),
			'{}'::uuid[])
		WHERE id = $1`

	result, err := m.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrOwnerNotFound
	}

	return nil
}

// rebuildAllOwnedBlogs rebuilds every user's list and reports how many
// users were touched.
func (m *BlogModel) rebuildAllOwnedBlogs(ctx context.Context) (int64, error) {
	query := `
		UPDATE users u
		SET owned_blogs = COALESCE(
			(SELECT array_agg(b.id ORDER BY b.created_at, b.id) FROM blogs b WHERE b.user_id = u.id),
			'{}'::uuid[])`

	result, err := m.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// checkOwnedBlogs reports whether the stored list holds exactly the blogs
// that reference the user. Order is ignored.
func (m *BlogModel) checkOwnedBlogs(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `
		SELECT u.owned_blogs,
			COALESCE((SELECT array_agg(b.id) FROM blogs b WHERE b.user_id = u.id), '{}'::uuid[])
		FROM users u
		WHERE u.id = $1`

	var stored, derived pq.StringArray

	err := m.db.QueryRowContext(ctx, query, userID).Scan(&stored, &derived)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return false, ErrOwnerNotFound
		default:
			return false, err
		}
	}

	return sameIDs(stored, derived), nil
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)

	return slices.Equal(x, y)
}
