// Package httpx is the storefront's navigation shell: the route table,
// per-visitor middleware and the server-rendered views.
package httpx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/activity"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/blog"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/forms"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/money"
	"github.com/ariefcatur/go-storefront/internal/storage"
)

// Deps are the long-lived collaborators shared by every request.
type Deps struct {
	Config    config.Config
	Log       *logrus.Entry
	API       *api.Client
	Durable   storage.KV // keyed by visitor id
	Ephemeral storage.KV // keyed by session id
	Locker    storage.Locker
	Activity  activity.Publisher
	Money     *money.Formatter
	Forms     *forms.Validator
	Blog      *blog.Renderer
}

type Server struct {
	Deps
	views   *views
	limiter *loginLimiter
	loc     *time.Location
}

func New(d Deps) (*Server, error) {
	if d.Activity == nil {
		d.Activity = activity.Noop{}
	}
	s := &Server{
		Deps:    d,
		limiter: newLoginLimiter(d.Config.LoginRatePerMin),
		loc:     d.Config.Location(),
	}
	v, err := newViews(s.funcs())
	if err != nil {
		return nil, fmt.Errorf("httpx: templates: %w", err)
	}
	s.views = v
	return s, nil
}

// NewRouter is the bare router with the middleware every route shares.
func NewRouter(log *logrus.Entry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

// Routes mounts every view. Cart, checkout, order confirmation and profile
// need a signed-in visitor.
func (s *Server) Routes() http.Handler {
	r := NewRouter(s.Log)

	r.Group(func(r chi.Router) {
		r.Use(s.visit)

		r.Get("/", s.home)
		r.Get("/shop", s.shop)
		r.Post("/shop/select", s.selectProduct)
		r.Get("/product-detail", s.productDetail)
		r.Post("/cart/items", s.addToCart)
		r.Get("/about-us", s.about)

		r.Get("/blog", s.blogList)
		r.Post("/blog/open", s.openPost)
		r.Get("/blog/{slug}", s.blogPost)

		r.Get("/login", s.loginPage)
		r.Post("/login", s.loginSubmit)
		r.Post("/register", s.registerSubmit)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/cart", s.viewCart)
			r.Post("/cart/items/{id}/quantity", s.changeQuantity)
			r.Post("/cart/items/{id}/remove", s.removeItem)
			r.Get("/checkout", s.checkoutForm)
			r.Post("/checkout", s.checkoutSubmit)
			r.Get("/order-confirmation", s.orderConfirmation)
			r.Get("/profile", s.profile)
		})

		r.NotFound(s.notFound)
	})

	return r
}

func (s *Server) newFlow(v *Visit) *cart.Flow {
	return cart.NewFlow(v.API(), cart.NewLockGuard(s.Locker, v.VisitorID), s.Forms, s.Config.ShippingFlatFee)
}
