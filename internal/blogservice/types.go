package blogservice

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

type Blog struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	URL    string    `json:"url"`
	Likes  int       `json:"likes"`
	// UserID is the owner. Legacy entries have none.
	UserID    *uuid.UUID `json:"user,omitempty"`
	CreatedAt time.Time  `json:"-"`
	Version   int        `json:"-"`
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m      *BlogModel
	c      *common.Cache
	mb     common.MessageProducer
	logger *slog.Logger
	policy OwnershipPolicy

	// gen counts cache invalidations
	mu  sync.Mutex
	gen uint64
}

// Stats aggregates a list of blogs.
type Stats struct {
	TotalLikes int          `json:"total_likes"`
	Favorite   *Blog        `json:"favorite"`
	MostBlogs  *AuthorBlogs `json:"most_blogs"`
	MostLikes  *AuthorLikes `json:"most_likes"`
}

type AuthorBlogs struct {
	Author string `json:"author"`
	Blogs  int    `json:"blogs"`
}

type AuthorLikes struct {
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}
