package blogservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

func NewBlogService(db *sql.DB, cache *common.Cache, mb common.MessageProducer, logger *slog.Logger, policy OwnershipPolicy) *BlogService {
	return &BlogService{
		m:      newBlogModel(db),
		c:      cache,
		mb:     mb,
		logger: logger,
		policy: policy,
	}
}

type CreateBlogRequest struct {
	Title  string     `json:"title"`
	Author string     `json:"author"`
	URL    string     `json:"url"`
	Likes  *int       `json:"likes"`
	UserID *uuid.UUID `json:"-"`
}

// UpdateBlogRequest holds the fields to replace. Nil fields are kept.
type UpdateBlogRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	URL    *string `json:"url"`
	Likes  *int    `json:"likes"`
}

// CreateBlog stores a new blog, appends it to the owner's list and
// publishes blog.created.
func (s *BlogService) CreateBlog(ctx context.Context, req *CreateBlogRequest) (*Blog, error) {
	blog := Blog{
		ID:     uuid.New(),
		Title:  sanitizeText(req.Title),
		Author: sanitizeText(req.Author),
		URL:    req.URL,
		UserID: req.UserID,
	}
	if req.Likes != nil {
		blog.Likes = *req.Likes
	}

	v := common.NewValidator()
	validateBlog(v, &blog)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err := s.m.insert(ctx, &blog)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, common.BlogEvent{BlogID: blog.ID, UserID: blog.UserID}, common.BlogCreatedKey)

	return &blog, nil
}

// GetBlogByID returns a blog post by its ID.
func (s *BlogService) GetBlogByID(ctx context.Context, id uuid.UUID) (*Blog, error) {
	if cached, found := s.c.Get(common.CacheKeyBlog(id)); found {
		blog := cached.(Blog)
		return &blog, nil
	}

	gen := s.cacheGeneration()

	blog, err := s.m.getBlogById(ctx, id)
	if err != nil {
		return nil, err
	}

	s.fillCache(*blog, gen)

	return blog, nil
}

func (s *BlogService) cacheGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fillCache stores blog unless an invalidation ran since gen was read; the
// row loaded in between may already be stale.
func (s *BlogService) fillCache(blog Blog, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return
	}
	s.c.Set(common.CacheKeyBlog(blog.ID), blog)
}

func (s *BlogService) invalidateCache(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.Delete(common.CacheKeyBlog(id))
	s.gen++
}

// GetBlogs returns blogs oldest first. A nil or zero limit returns all of them.
func (s *BlogService) GetBlogs(ctx context.Context, limit *int, offset int) ([]Blog, error) {
	if limit != nil && *limit < 1 {
		limit = nil
	}

	if offset < 0 {
		offset = 0
	}

	return s.m.getBlogs(ctx, limit, offset)
}

// UpdateBlog applies req to blog. The caller loads blog and checks
// ownership first.
func (s *BlogService) UpdateBlog(ctx context.Context, blog *Blog, req *UpdateBlogRequest) (*Blog, error) {
	updated := *blog

	if req.Title != nil {
		updated.Title = sanitizeText(*req.Title)
	}
	if req.Author != nil {
		updated.Author = sanitizeText(*req.Author)
	}
	if req.URL != nil {
		updated.URL = *req.URL
	}
	if req.Likes != nil {
		updated.Likes = *req.Likes
	}

	v := common.NewValidator()
	validateBlog(v, &updated)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	err := s.m.updateBlog(ctx, &updated)
	if err != nil {
		// whatever was cached is out of date
		if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrEditConflict) {
			s.invalidateCache(updated.ID)
		}
		return nil, err
	}

	s.invalidateCache(updated.ID)

	return &updated, nil
}

// DeleteBlog removes the blog, detaches it from its owner and publishes
// blog.deleted.
func (s *BlogService) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	owner, err := s.m.deleteBlog(ctx, id)
	if err != nil {
		return err
	}

	s.invalidateCache(id)

	s.publish(ctx, common.BlogEvent{BlogID: id, UserID: owner}, common.BlogDeletedKey)

	return nil
}

func (s *BlogService) Stats(ctx context.Context) (*Stats, error) {
	blogs, err := s.m.getBlogs(ctx, nil, 0)
	if err != nil {
		return nil, err
	}

	return computeStats(blogs), nil
}

// Authorize applies the service's ownership policy.
func (s *BlogService) Authorize(identity *userservice.Identity, blog *Blog) error {
	return Authorize(identity, blog, s.policy)
}

func (s *BlogService) RebuildOwnedBlogs(ctx context.Context, userID uuid.UUID) error {
	return s.m.rebuildOwnedBlogs(ctx, userID)
}

func (s *BlogService) RebuildAllOwnedBlogs(ctx context.Context) (int64, error) {
	return s.m.rebuildAllOwnedBlogs(ctx)
}

func (s *BlogService) CheckOwnedBlogs(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.m.checkOwnedBlogs(ctx, userID)
}

func (s *BlogService) publish(ctx context.Context, event any, key common.BindingKey) {
	body, err := json.Marshal(event)
	if err == nil {
		err = s.mb.Publish(ctx, body, key, common.EventExchange)
	}
	if err != nil {
		s.logger.Error("could not publish event", slog.String("key", string(key)), slog.String("error", err.Error()))
	}
}
