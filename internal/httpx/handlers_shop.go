package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ariefcatur/go-storefront/internal/activity"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/query"
)

const featuredLimit = 8

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	yes := true
	st, ok := fetch(r, "products:featured", func(ctx context.Context) ([]api.Product, error) {
		p, err := v.API().ListProducts(ctx, api.ProductQuery{Featured: &yes, IsActive: &yes, Limit: featuredLimit})
		if err != nil {
			return nil, err
		}
		return p.Items, nil
	})
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "home.html", page{Title: "Futurefoodz", Data: st})
}

type shopData struct {
	Products   query.State[[]api.Product]
	Page       int
	TotalPages int
	Prev, Next int // 0 when there is no such page
}

func (s *Server) shop(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	n := pageParam(r)
	d := shopData{Page: n}

	st, ok := fetch(r, "products:page:"+strconv.Itoa(n), func(ctx context.Context) ([]api.Product, error) {
		p, err := v.API().ListProducts(ctx, api.ProductQuery{Page: n, Limit: s.Config.ProductPageSize})
		if err != nil {
			return nil, err
		}
		d.TotalPages = totalPages(p, s.Config.ProductPageSize)
		return p.Items, nil
	})
	if !ok {
		return
	}
	if st.Status == query.Ready {
		v.Cache.SetShopListing(r.Context(), st.Data)
	}
	d.Products = st
	if n > 1 {
		d.Prev = n - 1
	}
	if n < d.TotalPages {
		d.Next = n + 1
	}
	s.render(w, r, http.StatusOK, "shop.html", page{Title: "Shop • Futurefoodz", Data: d})
}

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func totalPages[T any](p *api.Page[T], limit int) int {
	if p.TotalPages > 0 {
		return p.TotalPages
	}
	if p.Limit > 0 {
		limit = p.Limit
	}
	if limit <= 0 {
		return 1
	}
	return (p.Total + limit - 1) / limit
}

// selectProduct remembers the chosen product so the detail view can render
// without fetching it again.
func (s *Server) selectProduct(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	id, slug := r.PostFormValue("id"), r.PostFormValue("slug")

	var picked *api.Product
	if items, ok := v.Cache.ShopListing(ctx); ok {
		for i := range items {
			if items[i].ID == id || (id == "" && items[i].Slug == slug) {
				picked = &items[i]
				break
			}
		}
	}
	if picked == nil && slug != "" {
		p, err := v.API().ProductBySlug(ctx, slug)
		if err != nil {
			v.Log.WithError(err).WithField("slug", slug).Info("select product")
			v.Cache.FlashError(ctx, api.MessageOf(err, "Could not open that product."))
			http.Redirect(w, r, "/shop", http.StatusSeeOther)
			return
		}
		picked = p
	}
	if picked == nil {
		http.Redirect(w, r, "/shop", http.StatusSeeOther)
		return
	}

	v.Cache.SetLastProduct(ctx, *picked)
	v.Cache.PushProduct(ctx, *picked)
	http.Redirect(w, r, productPath(picked.Slug), http.StatusSeeOther)
}

func productPath(slug string) string {
	return "/product-detail?slug=" + url.QueryEscape(slug)
}

type productData struct {
	Product *api.Product
}

// productDetail shows the product handed over by selectProduct, else the
// last product viewed this session. A slug that matches neither shows the
// no-data fallback.
func (s *Server) productDetail(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	slug := r.URL.Query().Get("slug")

	matches := func(p *api.Product) bool { return p != nil && (slug == "" || p.Slug == slug) }

	p, _ := v.Cache.TakeProduct(ctx)
	if !matches(p) {
		p, _ = v.Cache.LastProduct(ctx)
	}
	if !matches(p) {
		p = nil
	}

	title := "Product • Futurefoodz"
	if p != nil {
		title = p.Name + " • Futurefoodz"
	}
	s.render(w, r, http.StatusOK, "product.html", page{Title: title, Data: productData{Product: p}})
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	productID, slug := r.PostFormValue("productId"), r.PostFormValue("slug")
	back := productPath(slug)

	if !v.Auth.IsAuthenticated() {
		redirectToLogin(w, r, back)
		return
	}
	qty, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil {
		qty = 1
	}

	flow := s.newFlow(v)
	err = flow.Add(ctx, productID, qty)
	switch {
	case err == nil:
	case api.IsUnauthorized(err):
		redirectToLogin(w, r, back)
		return
	case errors.Is(err, cart.ErrInvalidQuantity):
		v.Cache.FlashError(ctx, "Quantity must be at least 1.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	default:
		v.Log.WithError(err).Warn("add to cart")
		v.Cache.FlashError(ctx, api.MessageOf(err, "Could not add to cart."))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	v.Cache.SetCart(ctx, flow.Cart())
	s.publishCart(v, activity.CartAdd, productID, qty, flow.Cart())
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

func (s *Server) publishCart(v *Visit, action activity.CartAction, ref string, qty int, c *api.Cart) {
	p := activity.CartUpdatedPayload{
		UserID:   v.userID(),
		Action:   action,
		Ref:      ref,
		Quantity: qty,
	}
	if c != nil {
		p.Items = len(c.Items)
		p.SubtotalMinor = cart.ComputeTotals(c, 0).Subtotal
	}
	s.Activity.Publish(v.VisitorID, activity.EventCartUpdated, p)
}

func (s *Server) about(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about.html", page{Title: "About Us • Futurefoodz"})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found.html", page{Title: "Page not found • Futurefoodz"})
}
