package blogservice

// TotalLikes sums the likes of all blogs.
func TotalLikes(blogs []Blog) int {
	total := 0
	for _, b := range blogs {
		total += b.Likes
	}
	return total
}

// FavoriteBlog returns the blog with the most likes, the earliest one on a
// tie, or nil for an empty list.
func FavoriteBlog(blogs []Blog) *Blog {
	if len(blogs) == 0 {
		return nil
	}

	fav := blogs[0]
	for _, b := range blogs[1:] {
		if b.Likes > fav.Likes {
			fav = b
		}
	}

	return &fav
}

// MostBlogs returns the author with the most entries. Ties go to the
// author that appears first.
func MostBlogs(blogs []Blog) *AuthorBlogs {
	if len(blogs) == 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, b := range blogs {
		if _, ok := counts[b.Author]; !ok {
			order = append(order, b.Author)
		}
		counts[b.Author]++
	}

	best := AuthorBlogs{Author: order[0], Blogs: counts[order[0]]}
	for _, a := range order[1:] {
		if counts[a] > best.Blogs {
			best = AuthorBlogs{Author: a, Blogs: counts[a]}
		}
	}

	return &best
}

// MostLikes returns the author with the highest like total. Ties go to the
// author that appears first.
func MostLikes(blogs []Blog) *AuthorLikes {
	if len(blogs) == 0 {
		return nil
	}

	likes := make(map[string]int)
	var order []string
	for _, b := range blogs {
		if _, ok := likes[b.Author]; !ok {
			order = append(order, b.Author)
		}
		likes[b.Author] += b.Likes
	}

	best := AuthorLikes{Author: order[0], Likes: likes[order[0]]}
	for _, a := range order[1:] {
		if likes[a] > best.Likes {
			best = AuthorLikes{Author: a, Likes: likes[a]}
		}
	}

	return &best
}

func computeStats(blogs []Blog) *Stats {
	return &Stats{
		TotalLikes: TotalLikes(blogs),
		Favorite:   FavoriteBlog(blogs),
		MostBlogs:  MostBlogs(blogs),
		MostLikes:  MostLikes(blogs),
	}
}
