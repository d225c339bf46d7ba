package userservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

const (
	BcryptCost = 12

	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

type UserService struct {
	m      *DBModel
	tokens *TokenService
	mb     common.MessageProducer
	logger *slog.Logger
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID         uuid.UUID   `json:"id"`
	Username   string      `json:"username"`
	Name       string      `json:"name"`
	Password   Password    `json:"-"`
	OwnedBlogs []uuid.UUID `json:"blogs"`
	CreatedAt  time.Time   `json:"-"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

// Identity is who a request acts as, resolved from a verified token.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// AuthToken is returned by a successful login.
type AuthToken struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
