package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/activity"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/blog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/forms"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/money"
	"github.com/ariefcatur/go-storefront/internal/storage"
)

const validToken = "tok-1"

var catalog = []api.Product{
	{ID: "p1", Slug: "millet-mix", Name: "Millet Mix", ImageURL: "/img/p1.jpg", Price: 999, Stock: 5, Active: true, Featured: true},
	{ID: "p2", Slug: "napa-kimchi", Name: "Napa Kimchi", ImageURL: "/img/p2.jpg", Price: 501, Stock: 3, Active: true},
}

// fakeAPI is an in-process stand-in for the commerce API.
type fakeAPI struct {
	mu           sync.Mutex
	calls        map[string]int
	revoked      bool
	cart         []api.CartItem
	orders       []api.Order
	blogFail     int // status returned by blog lookups when non-zero
	productsFail int // status returned by product listings when non-zero
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}}
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) seedCart(items ...api.CartItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cart = items
}

func (f *fakeAPI) revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
}

func reply(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func samplePost() api.Blog {
	pub := time.Date(2025, 3, 3, 20, 0, 0, 0, time.UTC)
	return api.Blog{
		ID:          "b1",
		Heading:     "Millets 101",
		Slug:        "millets-101",
		Description: []string{"Why the humble millet belongs in every pantry."},
		Content: blog.Blocks{
			blog.Section{Subheading: "Why millets", Body: []string{"They are hardy and nutritious."}},
			blog.Quote{Text: "Eat well.", Cite: "Chef"},
		},
		Tags:        []string{"millets"},
		Author:      api.BlogAuthor{Name: "Asha"},
		Status:      api.BlogPublished,
		PublishedAt: &pub,
		IsActive:    true,
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			ok := !f.revoked && r.Header.Get("Authorization") == "Bearer "+validToken
			f.mu.Unlock()
			if !ok {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
				return
			}
			next(w, r)
		}
	}
	cartBody := func() api.Cart {
		return api.Cart{ID: "c1", User: "u1", Items: append([]api.CartItem(nil), f.cart...)}
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret" {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		reply(w, http.StatusOK, map[string]any{
			"accessToken": validToken,
			"user":        map[string]string{"id": "u1", "name": "Asha Rao", "email": in["email"], "role": "user"},
		})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusCreated, map[string]string{"message": "Registered"})
	})
	mux.HandleFunc("GET /auth/me", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"id": "u1", "name": "Asha Rao", "email": "asha@example.in", "role": "user"})
	}))

	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fail := f.productsFail
		f.mu.Unlock()
		if fail != 0 {
			reply(w, fail, map[string]string{"message": "Catalog unavailable"})
			return
		}
		items := catalog
		if r.URL.Query().Get("featured") == "true" {
			items = catalog[:1]
		}
		reply(w, http.StatusOK, api.Page[api.Product]{Items: items, Total: len(items), Page: 1, Limit: 20})
	})
	mux.HandleFunc("GET /products/slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
		for _, p := range catalog {
			if p.Slug == r.PathValue("slug") {
				reply(w, http.StatusOK, p)
				return
			}
		}
		reply(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
	})

	mux.HandleFunc("GET /cart", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, http.StatusOK, cartBody())
	}))
	mux.HandleFunc("POST /cart/items", authed(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range catalog {
			if p.ID == in.ProductID {
				f.cart = append(f.cart, api.CartItem{
					ID:       "i-" + p.ID,
					Product:  api.CartProduct{ID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Price: p.Price},
					Quantity: in.Quantity,
				})
			}
		}
		reply(w, http.StatusOK, cartBody())
	}))
	mux.HandleFunc("PUT /cart/items/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Quantity int `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.cart {
			if f.cart[i].ID == r.PathValue("id") {
				f.cart[i].Quantity = in.Quantity
			}
		}
		reply(w, http.StatusOK, cartBody())
	}))
	mux.HandleFunc("DELETE /cart/items/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		kept := f.cart[:0]
		for _, it := range f.cart {
			if it.ID != r.PathValue("id") {
				kept = append(kept, it)
			}
		}
		f.cart = kept
		reply(w, http.StatusOK, cartBody())
	}))

	mux.HandleFunc("POST /orders", authed(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Address api.Address `json:"address"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		o := api.Order{ID: "ord123abc", User: "u1", Status: api.OrderCreated, Address: in.Address, CreatedAt: time.Now()}
		for _, it := range f.cart {
			o.Items = append(o.Items, api.OrderItem{Product: api.ProductRef{ID: it.Product.ID}, Quantity: it.Quantity, Price: it.Product.Price})
			o.Amount += it.LineTotal()
		}
		f.cart = nil
		f.orders = append(f.orders, o)
		reply(w, http.StatusCreated, o)
	}))
	mux.HandleFunc("GET /orders/myOrders", authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, http.StatusOK, f.orders)
	}))

	mux.HandleFunc("GET /blogs", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, api.Page[api.Blog]{Items: []api.Blog{samplePost()}, Total: 1, Page: 1, Limit: 9})
	})
	mux.HandleFunc("GET /blogs/featured", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusNotFound, map[string]string{"message": "No featured blog"})
	})
	mux.HandleFunc("GET /blogs/{slug}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fail := f.blogFail
		f.mu.Unlock()
		if fail != 0 {
			reply(w, fail, map[string]string{"message": "Blog service unavailable"})
			return
		}
		if p := samplePost(); p.Slug == r.PathValue("slug") {
			reply(w, http.StatusOK, p)
			return
		}
		reply(w, http.StatusNotFound, map[string]string{"message": "Blog not found"})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *recordedEvents) Publish(_ string, eventType string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, eventType)
}

func (e *recordedEvents) seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.types...)
}

type harness struct {
	t        *testing.T
	api      *fakeAPI
	upstream *httptest.Server
	site     *httptest.Server
	client   *http.Client
	events   *recordedEvents
}

func newHarness(t *testing.T, tweak ...func(*config.Config)) *harness {
	t.Helper()
	fake := newFakeAPI()
	upstream := httptest.NewServer(fake.handler())
	t.Cleanup(upstream.Close)

	cfg := config.Config{
		Locale:           "en-IN",
		Currency:         "INR",
		TimeZone:         "Asia/Kolkata",
		ShippingFlatFee:  15000,
		PostalCodeDigits: 6,
		ProductPageSize:  20,
		BlogPageSize:     9,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}
	mf, err := money.New(cfg.Locale, cfg.Currency)
	require.NoError(t, err)

	mem := storage.NewMemory(0)
	events := &recordedEvents{}
	srv, err := New(Deps{
		Config:    cfg,
		Log:       logx.Discard(),
		API:       api.New(upstream.URL, api.WithHTTPClient(upstream.Client())),
		Durable:   storage.NewMemory(0),
		Ephemeral: mem,
		Locker:    mem,
		Activity:  events,
		Money:     mf,
		Forms:     forms.New(cfg.PostalCodeDigits),
		Blog:      blog.NewRenderer(),
	})
	require.NoError(t, err)

	site := httptest.NewServer(srv.Routes())
	t.Cleanup(site.Close)
	return &harness{t: t, api: fake, upstream: upstream, site: site, client: newBrowser(t), events: events}
}

// newBrowser keeps cookies and does not follow redirects.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (h *harness) do(c *http.Client, req *http.Request) (*http.Response, string) {
	h.t.Helper()
	res, err := c.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return res, string(b)
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.site.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(h.client, req)
}

func (h *harness) post(path string, form url.Values) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.site.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(h.client, req)
}

func (h *harness) login() {
	h.t.Helper()
	res, _ := h.post("/login", url.Values{"email": {"asha@example.in"}, "password": {"secret"}})
	require.Equal(h.t, http.StatusSeeOther, res.StatusCode)
}

func validCheckout() url.Values {
	return url.Values{
		"firstName": {"Asha"},
		"lastName":  {"Rao"},
		"email":     {"asha@example.in"},
		"address":   {"12 MG Road"},
		"city":      {"Bengaluru"},
		"state":     {"Karnataka"},
		"pincode":   {"560001"},
		"phone":     {"+919876543210"},
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	res, body := h.get("/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/cart", "/checkout", "/order-confirmation", "/profile"} {
		res, _ := h.get(path)
		assert.Equal(t, http.StatusFound, res.StatusCode, path)
		assert.Equal(t, "/login?from="+url.QueryEscape(path), res.Header.Get("Location"), path)
	}
}

func TestLoginReturnsToRememberedPath(t *testing.T) {
	h := newHarness(t)

	res, body := h.get("/login?from=%2Fcart")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `name="from" value="/cart"`)

	res, _ = h.post("/login", url.Values{"email": {"asha@example.in"}, "password": {"secret"}, "from": {"/cart"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/cart", res.Header.Get("Location"))
	assert.Contains(t, h.events.seen(), activity.EventUserLoggedIn)

	res, body = h.get("/cart")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Your cart is empty.")
	assert.Contains(t, body, "Profile")
}

func TestLoginIgnoresOffsiteFrom(t *testing.T) {
	h := newHarness(t)
	res, _ := h.post("/login", url.Values{"email": {"asha@example.in"}, "password": {"secret"}, "from": {"//evil.example/x"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)

	res, body := h.post("/login", url.Values{"email": {""}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Email is required")
	assert.Contains(t, body, "Password is required")

	res, body = h.post("/login", url.Values{"email": {"asha@example.in"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, body, "Invalid credentials")
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.LoginRatePerMin = 1 })

	res, _ := h.post("/login", url.Values{"email": {"asha@example.in"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, body := h.post("/login", url.Values{"email": {"asha@example.in"}, "password": {"secret"}})
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Contains(t, body, "Too many login attempts.")
	assert.Equal(t, 1, h.api.count("POST /auth/login"))
}

func TestRegisterWithoutTokenAsksToLogIn(t *testing.T) {
	h := newHarness(t)

	res, body := h.post("/register", url.Values{"fullName": {"Asha"}, "email": {"nope"}, "password": {"short"}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Enter a valid email")
	assert.Contains(t, body, "Password must be at least 8 characters")
	assert.Contains(t, body, "You must accept the Terms")

	res, _ = h.post("/register", url.Values{
		"fullName":        {"Asha Rao"},
		"email":           {"asha@example.in"},
		"password":        {"longenough"},
		"confirmPassword": {"longenough"},
		"terms":           {"on"},
		"from":            {"/checkout"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login?from=%2Fcheckout", res.Header.Get("Location"))

	_, body = h.get("/login?from=%2Fcheckout")
	assert.Contains(t, body, "Account created. Please log in.")
	_, body = h.get("/login")
	assert.NotContains(t, body, "Account created.")
}

func TestProductSelectionUsesNavigationState(t *testing.T) {
	h := newHarness(t)

	_, body := h.get("/shop")
	require.Contains(t, body, "Millet Mix")

	res, _ := h.post("/shop/select", url.Values{"id": {"p1"}, "slug": {"millet-mix"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/product-detail?slug=millet-mix", res.Header.Get("Location"))
	assert.Zero(t, h.api.count("GET /products/slug/millet-mix"))

	_, body = h.get("/product-detail?slug=millet-mix")
	assert.Contains(t, body, "<h1>Millet Mix</h1>")

	// navigation state is gone, the session's last product still answers
	_, body = h.get("/product-detail?slug=millet-mix")
	assert.Contains(t, body, "<h1>Millet Mix</h1>")

	_, body = h.get("/product-detail?slug=napa-kimchi")
	assert.Contains(t, body, "No product data")
}

func TestProductDetailDeepLinkFallsBack(t *testing.T) {
	h := newHarness(t)
	res, body := h.get("/product-detail?slug=millet-mix")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Please open this page from the Shop, or select a product again.")
	assert.Contains(t, body, `href="/shop"`)
}

func TestAddToCartRequiresLogin(t *testing.T) {
	h := newHarness(t)
	res, _ := h.post("/cart/items", url.Values{"productId": {"p1"}, "slug": {"millet-mix"}, "quantity": {"1"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login?from="+url.QueryEscape("/product-detail?slug=millet-mix"), res.Header.Get("Location"))
	assert.Zero(t, h.api.count("POST /cart/items"))
}

func TestCartTotalsAndCheckout(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, _ := h.post("/cart/items", url.Values{"productId": {"p1"}, "slug": {"millet-mix"}, "quantity": {"2"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/cart", res.Header.Get("Location"))
	h.post("/cart/items", url.Values{"productId": {"p2"}, "slug": {"napa-kimchi"}, "quantity": {"1"}})
	assert.Contains(t, h.events.seen(), activity.EventCartUpdated)

	res, body := h.get("/cart")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "24.99")
	assert.Contains(t, body, "174.99")

	res, body = h.get("/checkout")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `name="firstName" value="Asha"`)
	assert.Contains(t, body, `name="lastName" value="Rao"`)
	assert.Contains(t, body, "b.disabled=true")
	assert.Contains(t, body, "Placing order…")

	cartReads := h.api.count("GET /cart")
	bad := validCheckout()
	bad.Set("firstName", " ")
	bad.Set("pincode", "123")
	res, body = h.post("/checkout", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "First name is required.")
	assert.Contains(t, body, "Pin code must be 6 digits.")
	assert.Contains(t, body, "Napa Kimchi")
	assert.Contains(t, body, "174.99")
	assert.Equal(t, cartReads, h.api.count("GET /cart"))
	assert.Zero(t, h.api.count("POST /orders"))

	res, _ = h.post("/checkout", validCheckout())
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/order-confirmation", res.Header.Get("Location"))
	assert.Equal(t, 1, h.api.count("POST /orders"))
	assert.Contains(t, h.events.seen(), activity.EventOrderPlaced)

	_, body = h.get("/order-confirmation")
	assert.Contains(t, body, "Thank You For Your Order!")
	assert.Contains(t, body, "FFZ-ORD123ABC")
	assert.Contains(t, body, "12 MG Road, Bengaluru, Karnataka")

	_, body = h.get("/order-confirmation")
	assert.Contains(t, body, "Order Placed")
	assert.Contains(t, body, "FFZ-NEW")
}

func TestCheckoutDoubleSubmitIsRejected(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.api.seedCart(api.CartItem{ID: "i1", Product: api.CartProduct{ID: "p1", Name: "Millet Mix", Price: 999}, Quantity: 1})

	res, _ := h.post("/checkout", validCheckout())
	require.Equal(t, http.StatusSeeOther, res.StatusCode)

	res, body := h.post("/checkout", validCheckout())
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Your cart is empty.")
	assert.Equal(t, 1, h.api.count("POST /orders"))
}

func TestProductListFailureShowsPanelWithoutRetry(t *testing.T) {
	h := newHarness(t)
	h.api.mu.Lock()
	h.api.productsFail = http.StatusServiceUnavailable
	h.api.mu.Unlock()

	res, body := h.get("/shop")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `role="alert"`)
	assert.Contains(t, body, "Catalog unavailable")
	assert.NotContains(t, body, `class="card skeleton"`)
	assert.Equal(t, 1, h.api.count("GET /products"))

	_, body = h.get("/")
	assert.Contains(t, body, "Catalog unavailable")
	assert.NotContains(t, body, `class="card skeleton"`)
	assert.Equal(t, 2, h.api.count("GET /products"))
}

func TestTransportErrorsAreNotShown(t *testing.T) {
	h := newHarness(t)
	h.upstream.Close()

	res, body := h.get("/shop")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `role="alert"`)
	assert.Contains(t, body, "Something went wrong. Please try again.")
	assert.NotContains(t, body, "127.0.0.1")
	assert.NotContains(t, body, "connection refused")

	_, body = h.get("/blog/millets-101")
	assert.Contains(t, body, "Couldn&#39;t load post")
	assert.NotContains(t, body, "127.0.0.1")
}

func TestCheckoutEmptyCart(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, body := h.post("/checkout", validCheckout())
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Your cart is empty.")
	assert.Zero(t, h.api.count("POST /orders"))
}

func TestQuantityBelowOneIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.api.seedCart(api.CartItem{ID: "i1", Product: api.CartProduct{ID: "p1", Name: "Millet Mix", Price: 999}, Quantity: 1})

	res, _ := h.post("/cart/items/i1/quantity", url.Values{"quantity": {"0"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/cart", res.Header.Get("Location"))
	assert.Zero(t, h.api.count("PUT /cart/items/i1"))

	h.post("/cart/items/i1/quantity", url.Values{"quantity": {"3"}})
	assert.Equal(t, 1, h.api.count("PUT /cart/items/i1"))

	h.post("/cart/items/i1/remove", nil)
	assert.Equal(t, 1, h.api.count("DELETE /cart/items/i1"))
	_, body := h.get("/cart")
	assert.Contains(t, body, "Your cart is empty.")
	assert.Contains(t, body, "<dt>Shipping</dt><dd>—</dd>")
}

func TestUnauthorizedResponseSignsOut(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.api.revoke()

	res, _ := h.get("/cart")
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/login?from=%2Fcart", res.Header.Get("Location"))

	// the stored session is gone, so the guard itself now redirects
	res, _ = h.get("/profile")
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Zero(t, h.api.count("GET /orders/myOrders"))
}

func TestProfileListsOrders(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.api.mu.Lock()
	h.api.orders = []api.Order{{
		ID:        "64f1c2a9e7b3d4c5a6b7c8d9",
		Status:    api.OrderShipped,
		Amount:    2499,
		Items:     []api.OrderItem{{Product: api.ProductRef{ID: "p1", Name: "Millet Mix"}, Quantity: 2, Price: 999}},
		Address:   api.Address{Line1: "12 MG Road", City: "Bengaluru", Pin: "560001"},
		CreatedAt: time.Date(2025, 3, 3, 20, 0, 0, 0, time.UTC),
	}}
	h.api.mu.Unlock()

	res, body := h.get("/profile")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "FFZ-B7C8D9")
	assert.Contains(t, body, "04-03-2025")
	assert.Contains(t, body, "badge-shipped")
	assert.Contains(t, body, "Millet Mix")
	assert.Contains(t, body, "asha@example.in")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	res, _ := h.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))

	res, _ = h.get("/cart")
	assert.Equal(t, http.StatusFound, res.StatusCode)
}

func TestBlogPostFromList(t *testing.T) {
	h := newHarness(t)

	res, body := h.get("/blog")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Millets 101")
	assert.Contains(t, body, "March 4, 2025")

	res, _ = h.post("/blog/open", url.Values{"slug": {"millets-101"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/blog/millets-101", res.Header.Get("Location"))

	res, body = h.get("/blog/millets-101")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Zero(t, h.api.count("GET /blogs/millets-101"))
	assert.Contains(t, body, "<title>Millets 101 • Futurefoodz</title>")
	assert.Contains(t, body, "1 min read")
	assert.Contains(t, body, `href="#sec-0"`)
	assert.Contains(t, body, `<section id="sec-0"`)
	assert.Contains(t, body, "<cite>Chef</cite>")
	assert.Contains(t, body, "#millets")
	assert.Contains(t, body, `<script type="application/ld+json">`)
	assert.Contains(t, body, `"@type":"Organization"`)
}

func TestBlogPostDeepLinkFetches(t *testing.T) {
	h := newHarness(t)
	res, body := h.get("/blog/millets-101")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, h.api.count("GET /blogs/millets-101"))
	assert.Contains(t, body, "Millets 101")

	// cached for the session now
	h.get("/blog/millets-101")
	assert.Equal(t, 1, h.api.count("GET /blogs/millets-101"))
}

func TestBlogPostFailures(t *testing.T) {
	h := newHarness(t)

	res, body := h.get("/blog/unknown")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Post not found")
	assert.Contains(t, body, `href="/blog"`)

	h.api.mu.Lock()
	h.api.blogFail = http.StatusInternalServerError
	h.api.mu.Unlock()
	res, body = h.get("/blog/other")
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Contains(t, body, "Couldn&#39;t load post")
	assert.Contains(t, body, "Blog service unavailable")
}

func TestNotFound(t *testing.T) {
	h := newHarness(t)
	res, body := h.get("/no-such-page")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Page not found")
}

func TestScrollResetOnEveryPage(t *testing.T) {
	h := newHarness(t)
	_, body := h.get("/about-us")
	assert.Contains(t, body, `history.scrollRestoration = "manual"`)
	assert.Contains(t, body, "A Passion for Real Fermentation")
}

func TestSafeFrom(t *testing.T) {
	cases := map[string]string{
		"":                   "/",
		"/cart":              "/cart",
		"/product-detail?x=1": "/product-detail?x=1",
		"//evil.example":     "/",
		`/\evil.example`:     "/",
		"https://evil.example": "/",
		"cart":               "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeFrom(in), in)
	}
}

func TestShortOrderNumber(t *testing.T) {
	assert.Equal(t, "FFZ-B7C8D9", shortOrderNumber("64f1c2a9e7b3d4c5a6b7c8d9"))
	assert.Equal(t, "FFZ-AB", shortOrderNumber("ab"))
	assert.Equal(t, "FFZ-NEW", fullOrderNumber(nil))
	assert.Equal(t, "FFZ-ORD1", fullOrderNumber(&api.Order{ID: "ord1"}))
}
