package httpx

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/blog"
	"github.com/ariefcatur/go-storefront/internal/query"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile   = "layout.html"
	partialsFile = "partials.html"
)

// views holds one template set per page: the shared layout and partials
// cloned, plus the page's own "content".
type views struct {
	pages map[string]*template.Template
}

func newViews(funcs template.FuncMap) (*views, error) {
	base, err := template.New(layoutFile).Funcs(funcs).
		ParseFS(templateFS, "templates/"+layoutFile, "templates/"+partialsFile)
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	v := &views{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		name := path.Base(f)
		if name == layoutFile || name == partialsFile {
			continue
		}
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func (v *views) execute(w io.Writer, name string, data any) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// page is the data every template receives.
type page struct {
	Title  string
	Path   string
	User   *api.User
	Authed bool
	Flash  string
	Error  string // dismissible panel above the content
	JSONLD template.JS
	Data   any
}

// render writes a full page. One-shot notices are consumed here so they show
// on the first page actually rendered.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	ctx := r.Context()
	p.Path = r.URL.Path
	if v := visitFrom(r); v != nil {
		p.User = v.Auth.User()
		p.Authed = v.Auth.IsAuthenticated()
		if flash := v.Cache.TakeFlash(ctx); p.Flash == "" {
			p.Flash = flash
		}
		if msg := v.Cache.TakeFlashError(ctx); p.Error == "" {
			p.Error = msg
		}
	}

	var buf bytes.Buffer
	if err := s.views.execute(&buf, name, p); err != nil {
		s.Log.WithError(err).WithField("page", name).Error("render")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"money":       s.Money.Format,
		"date":        func(t *time.Time) string { return blog.FormatDate(t, s.loc) },
		"dmy":         s.dayMonthYear,
		"excerpt":     func(text string) string { return blog.Excerpt(text, 2, 90) },
		"orderNumber": shortOrderNumber,
		"badge":       statusBadge,
		"add":         func(a, b int) int { return a + b },
	}
}

func (s *Server) dayMonthYear(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.In(s.loc).Format("02-01-2006")
}

// shortOrderNumber is the number shown in order history.
func shortOrderNumber(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return "FFZ-" + strings.ToUpper(id)
}

// fullOrderNumber is the number shown right after checkout.
func fullOrderNumber(o *api.Order) string {
	if o == nil || o.ID == "" {
		return "FFZ-NEW"
	}
	return "FFZ-" + strings.ToUpper(o.ID)
}

func statusBadge(st api.OrderStatus) string {
	switch st {
	case api.OrderCreated:
		return "badge-created"
	case api.OrderPaid:
		return "badge-paid"
	case api.OrderShipped:
		return "badge-shipped"
	case api.OrderDelivered:
		return "badge-delivered"
	case api.OrderCancelled:
		return "badge-cancelled"
	}
	return "badge-unknown"
}

const genericFailure = "Something went wrong. Please try again."

// fetch runs one view fetch through a query so the result is triaged into
// error, empty or ready. ok is false when the request went away first; the
// caller must then write nothing.
func fetch[T any](r *http.Request, key string, fn func(context.Context) (T, error), opts ...query.Option[T]) (query.State[T], bool) {
	opts = append([]query.Option[T]{query.WithMessage[T](func(err error) string {
		return api.MessageOf(err, genericFailure)
	})}, opts...)
	q := query.New(opts...)
	defer q.Close()
	return q.Run(r.Context(), key, fn)
}
