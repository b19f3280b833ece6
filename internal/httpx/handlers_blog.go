package httpx

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/blog"
	"github.com/ariefcatur/go-storefront/internal/query"
)

const siteTitleSuffix = " • Futurefoodz"

type blogListData struct {
	Featured *api.Blog
	Posts    query.State[[]api.Blog]
}

// blogList fetches the featured post and the first page in parallel. The
// featured post is decoration: its failure is logged and otherwise ignored.
func (s *Server) blogList(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()

	var (
		d       blogListData
		current bool
		g       errgroup.Group
	)
	g.Go(func() error {
		b, err := v.API().FeaturedBlog(ctx)
		if err != nil {
			v.Log.WithError(err).Debug("featured blog")
			return nil
		}
		if b.Slug != "" {
			d.Featured = b
		}
		return nil
	})
	g.Go(func() error {
		d.Posts, current = fetch(r, "blogs:page:1", func(ctx context.Context) ([]api.Blog, error) {
			p, err := v.API().ListBlogs(ctx, api.BlogQuery{Page: 1, Limit: s.Config.BlogPageSize})
			if err != nil {
				return nil, err
			}
			return p.Items, nil
		}, query.WithMessage[[]api.Blog](func(err error) string {
			return api.MessageOf(err, "Failed to load blogs")
		}))
		return nil
	})
	_ = g.Wait()
	if !current {
		return
	}

	listing := d.Posts.Data
	if d.Featured != nil {
		listing = append([]api.Blog{*d.Featured}, listing...)
	}
	if len(listing) > 0 {
		v.Cache.SetBlogListing(ctx, listing)
	}
	s.render(w, r, http.StatusOK, "blog_list.html", page{Title: "Blog" + siteTitleSuffix, Data: d})
}

// openPost hands the chosen post to the detail view.
func (s *Server) openPost(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	slug := r.PostFormValue("slug")
	if slug == "" {
		http.Redirect(w, r, "/blog", http.StatusSeeOther)
		return
	}
	if items, ok := v.Cache.BlogListing(ctx); ok {
		for i := range items {
			if items[i].Slug == slug {
				v.Cache.SetPost(ctx, items[i])
				v.Cache.PushPost(ctx, items[i])
				break
			}
		}
	}
	http.Redirect(w, r, "/blog/"+url.PathEscape(slug), http.StatusSeeOther)
}

type postData struct {
	Post       *api.Blog
	Body       template.HTML
	TOC        []blog.Heading
	Minutes    int
	ErrTitle   string
	ErrMessage string
}

// blogPost resolves the post from navigation state, then the session cache,
// then the API. A failed fetch renders a fallback with a way back to the list.
func (s *Server) blogPost(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")
	if unescaped, err := url.PathUnescape(slug); err == nil {
		slug = unescaped
	}

	post, ok := v.Cache.TakePost(ctx)
	if ok && post.Slug != slug {
		post = nil
	}
	if post == nil {
		post, _ = v.Cache.Post(ctx, slug)
	}
	if post == nil {
		st, current := fetch(r, "blog:"+slug, func(ctx context.Context) (*api.Blog, error) {
			return v.API().BlogBySlug(ctx, slug)
		})
		if !current {
			return
		}
		if st.Status != query.Ready {
			s.postUnavailable(w, r, st)
			return
		}
		post = st.Data
		v.Cache.SetPost(ctx, *post)
	}

	body, err := s.Blog.Render(post.Content)
	if err != nil {
		v.Log.WithError(err).WithField("slug", slug).Error("render post")
		s.postUnavailable(w, r, query.State[*api.Blog]{Status: query.Failed, Err: err, Message: "This post could not be displayed."})
		return
	}

	ld, err := blog.Article{
		Headline:      post.Heading,
		Description:   post.Intro(),
		Image:         post.CoverImage,
		Author:        post.Author.Name,
		URL:           absoluteURL(r),
		DatePublished: post.PublishedAt,
		DateModified:  nonZero(post.UpdatedAt),
	}.JSONLD()
	if err != nil {
		v.Log.WithError(err).Warn("post structured data")
	}

	s.render(w, r, http.StatusOK, "blog_post.html", page{
		Title:  post.Heading + siteTitleSuffix,
		JSONLD: ld,
		Data: postData{
			Post:    post,
			Body:    body,
			TOC:     blog.Headings(post.Content),
			Minutes: blog.ReadMinutes(strings.Join(post.Description, " "), blog.Text(post.Content)),
		},
	})
}

func (s *Server) postUnavailable(w http.ResponseWriter, r *http.Request, st query.State[*api.Blog]) {
	status, d := http.StatusNotFound, postData{ErrTitle: "Post not found", ErrMessage: "Open this post from the blog list."}
	if st.Status == query.Failed && api.StatusOf(st.Err) != http.StatusNotFound {
		status, d = http.StatusBadGateway, postData{ErrTitle: "Couldn't load post", ErrMessage: st.Message}
	}
	s.render(w, r, status, "blog_post.html", page{Title: d.ErrTitle + siteTitleSuffix, Data: d})
}

func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.EscapedPath()
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
