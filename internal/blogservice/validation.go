package blogservice

import (
	"net/url"

	"github.com/sushihentaime/bloglist/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(v.CheckStringLength(title, 0, 200), "title", "must not be more than 200 characters long")
}

func validateAuthor(v *common.Validator, author string) {
	v.Check(author != "", "author", "must be provided")
	v.Check(v.CheckStringLength(author, 0, 100), "author", "must not be more than 100 characters long")
}

func validateURL(v *common.Validator, u string) {
	if u == "" {
		return
	}
	v.Check(len(u) <= 2048, "url", "must not be more than 2048 bytes long")
	_, err := url.Parse(u)
	v.Check(err == nil, "url", "must be a valid url")
}

func validateLikes(v *common.Validator, likes int) {
	v.Check(likes >= 0, "likes", "must not be negative")
}

func validateBlog(v *common.Validator, blog *Blog) {
	validateTitle(v, blog.Title)
	validateAuthor(v, blog.Author)
	validateURL(v, blog.URL)
	validateLikes(v, blog.Likes)
}
