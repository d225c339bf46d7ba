package blogservice

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/sushihentaime/bloglist/internal/common"
)

func TestFillCache(t *testing.T) {
	s := &BlogService{c: common.NewCache(0, 0)}
	blog := Blog{ID: uuid.New(), Title: "T", Author: "A", Version: 1}
	key := common.CacheKeyBlog(blog.ID)

	t.Run("no invalidation in between", func(t *testing.T) {
		s.fillCache(blog, s.cacheGeneration())

		cached, found := s.c.Get(key)
		assert.True(t, found)
		assert.Equal(t, blog, cached)
	})

	t.Run("invalidated while loading", func(t *testing.T) {
		s.invalidateCache(blog.ID)

		gen := s.cacheGeneration()
		// a writer commits and invalidates after the row was read
		s.invalidateCache(blog.ID)
		s.fillCache(blog, gen)

		_, found := s.c.Get(key)
		assert.False(t, found)
	})

	t.Run("other blog invalidated", func(t *testing.T) {
		gen := s.cacheGeneration()
		s.invalidateCache(uuid.New())
		s.fillCache(blog, gen)

		// skipped as well; the next read fills it
		_, found := s.c.Get(key)
		assert.False(t, found)

		s.fillCache(blog, s.cacheGeneration())
		_, found = s.c.Get(key)
		assert.True(t, found)
	})
}
