package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresURI builds a connection URI, escaping the credentials.
func PostgresURI(host, port, user, password, name string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func NewDB(URI string, maxOpenConns, maxIdleConns int, maxIdleTime time.Duration) (*sql.DB, error) {
	return connectDB(URI, maxOpenConns, maxIdleConns, maxIdleTime)
}

// connectDB connects to the database and returns the connection
func connectDB(URI string, maxOpenConns int, maxIdleConns int, maxIdleTime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", URI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// CloseDB closes the database connection
func CloseDB(db *sql.DB) error {
	return db.Close()
}

// Migrate applies every pending up migration. source is a migrate source URL
// such as "file://migrations".
func Migrate(source, URI string) error {
	m, err := migrate.New(source, URI)
	if err != nil {
		return fmt.Errorf("could not create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a unique constraint violation on
// the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	return isPQError(err, pqUniqueViolation, constraint)
}

// IsForeignKeyViolation reports whether err is a foreign key violation on the
// named constraint.
func IsForeignKeyViolation(err error, constraint string) bool {
	return isPQError(err, pqForeignKeyViolation, constraint)
}

func isPQError(err error, code pq.ErrorCode, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code && pqErr.Constraint == constraint
	}

	return false
}
