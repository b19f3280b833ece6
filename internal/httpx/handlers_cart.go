package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-storefront/internal/activity"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/forms"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/query"
)

type cartData struct {
	State  query.State[*api.Cart]
	Totals cart.Totals
	Empty  bool
}

func (s *Server) viewCart(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	flow := s.newFlow(v)

	st, ok := fetch(r, "cart", func(ctx context.Context) (*api.Cart, error) {
		if err := flow.Load(ctx); err != nil {
			return nil, err
		}
		return flow.Cart(), nil
	}, query.WithEmpty(func(c *api.Cart) bool { return c.Empty() }))
	if !ok {
		return
	}
	if st.Status == query.Failed && api.IsUnauthorized(st.Err) {
		redirectToLogin(w, r, "/cart")
		return
	}
	if st.Status != query.Failed {
		v.Cache.SetCart(r.Context(), flow.Cart())
	}

	s.render(w, r, http.StatusOK, "cart.html", page{
		Title: "Cart • Futurefoodz",
		Data:  cartData{State: st, Totals: flow.Totals(), Empty: flow.Cart().Empty()},
	})
}

func (s *Server) changeQuantity(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	itemID := chi.URLParam(r, "id")
	qty, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}
	flow := s.newFlow(v)
	s.afterCartChange(w, r, v, flow, flow.ChangeQuantity(r.Context(), itemID, qty), activity.CartUpdate, itemID, qty)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	itemID := chi.URLParam(r, "id")
	flow := s.newFlow(v)
	s.afterCartChange(w, r, v, flow, flow.Remove(r.Context(), itemID), activity.CartRemove, itemID, 0)
}

// afterCartChange finishes a cart mutation. The cart view is always the next page.
func (s *Server) afterCartChange(w http.ResponseWriter, r *http.Request, v *Visit, flow *cart.Flow, err error, action activity.CartAction, ref string, qty int) {
	switch {
	case err == nil:
		v.Cache.SetCart(r.Context(), flow.Cart())
		s.publishCart(v, action, ref, qty, flow.Cart())
	case errors.Is(err, cart.ErrInvalidQuantity):
	case api.IsUnauthorized(err):
		redirectToLogin(w, r, "/cart")
		return
	default:
		v.Log.WithError(err).WithField("action", action).Warn("cart change")
		v.Cache.FlashError(r.Context(), api.MessageOf(err, "Could not update item."))
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

type checkoutData struct {
	Form         forms.Checkout
	Errors       *forms.Errors
	Cart         *api.Cart
	Totals       cart.Totals
	Empty        bool
	PostalDigits int
}

// checkoutForm loads the cart and the account in parallel. Either may fail
// without blocking the form, except that a 401 sends the visitor to login.
func (s *Server) checkoutForm(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	flow := s.newFlow(v)

	var (
		cartErr error
		me      *api.User
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		cartErr = flow.Load(gctx)
		if api.IsUnauthorized(cartErr) {
			return cartErr
		}
		return nil
	})
	g.Go(func() error {
		u, err := v.API().Me(gctx)
		if err != nil {
			if api.IsUnauthorized(err) {
				return err
			}
			v.Log.WithError(err).Debug("checkout: profile prefill")
			return nil
		}
		me = u
		return nil
	})
	if err := g.Wait(); api.IsUnauthorized(err) {
		redirectToLogin(w, r, "/checkout")
		return
	}
	if r.Context().Err() != nil {
		return
	}

	var f forms.Checkout
	f.Prefill(me)
	f.Prefill(v.Auth.User())

	p := s.checkoutPage(flow, f, nil)
	switch {
	case cartErr == nil:
		v.Cache.SetCart(r.Context(), flow.Cart())
	case !errors.Is(cartErr, context.Canceled):
		p.Error = api.MessageOf(cartErr, "Could not load your cart.")
	}
	s.render(w, r, http.StatusOK, "checkout.html", p)
}

func (s *Server) checkoutPage(flow *cart.Flow, f forms.Checkout, errs *forms.Errors) page {
	if errs == nil {
		errs = &forms.Errors{}
	}
	return page{
		Title: "Checkout • Futurefoodz",
		Data: checkoutData{
			Form:         f,
			Errors:       errs,
			Cart:         flow.Cart(),
			Totals:       flow.Totals(),
			Empty:        flow.Cart().Empty(),
			PostalDigits: s.Config.PostalCodeDigits,
		},
	}
}

func checkoutFromRequest(r *http.Request) forms.Checkout {
	return forms.Checkout{
		FirstName:  r.PostFormValue("firstName"),
		LastName:   r.PostFormValue("lastName"),
		Email:      r.PostFormValue("email"),
		Address:    r.PostFormValue("address"),
		City:       r.PostFormValue("city"),
		State:      r.PostFormValue("state"),
		PostalCode: r.PostFormValue("pincode"),
		Phone:      r.PostFormValue("phone"),
	}
}

// checkoutSubmit validates before anything else. An invalid form is shown
// again over the session's cart snapshot, so it costs no API call.
func (s *Server) checkoutSubmit(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	f := checkoutFromRequest(r)
	flow := s.newFlow(v)

	errs := forms.FieldErrors(s.Forms.Checkout(&f))
	if errs != nil {
		if c, ok := v.Cache.Cart(ctx); ok {
			flow.Seed(c)
			s.render(w, r, http.StatusUnprocessableEntity, "checkout.html", s.checkoutPage(flow, f, errs))
			return
		}
	}

	if err := flow.Load(ctx); err != nil {
		if api.IsUnauthorized(err) {
			redirectToLogin(w, r, "/checkout")
			return
		}
		p := s.checkoutPage(flow, f, nil)
		p.Error = api.MessageOf(err, "Could not load your cart.")
		s.render(w, r, http.StatusBadGateway, "checkout.html", p)
		return
	}
	if errs != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "checkout.html", s.checkoutPage(flow, f, errs))
		return
	}

	order, err := flow.Submit(ctx, &f)
	if err != nil {
		if api.IsUnauthorized(err) {
			redirectToLogin(w, r, "/checkout")
			return
		}
		status, p := http.StatusOK, s.checkoutPage(flow, f, forms.FieldErrors(err))
		switch {
		case forms.FieldErrors(err) != nil:
			status = http.StatusUnprocessableEntity
		case errors.Is(err, cart.ErrEmptyCart):
			status = http.StatusUnprocessableEntity
			p.Error = err.Error()
		case errors.Is(err, cart.ErrSubmitInFlight):
			status = http.StatusConflict
			p.Error = "Your order is already being placed."
		default:
			v.Log.WithError(err).Warn("checkout: create order")
			status = http.StatusBadGateway
			if code := api.StatusOf(err); code >= 400 && code < 500 {
				status = code
			}
			p.Error = api.MessageOf(err, "Could not create order. Please try again.")
		}
		s.render(w, r, status, "checkout.html", p)
		return
	}

	metrics.RecordOrderPlaced()
	v.Cache.ForgetCart(ctx)
	v.Cache.PushOrder(ctx, *order)
	s.Activity.Publish(v.VisitorID, activity.EventOrderPlaced, activity.OrderPlacedPayload{
		OrderID:     order.ID,
		UserID:      v.userID(),
		Items:       len(order.Items),
		AmountMinor: order.Amount,
	})
	http.Redirect(w, r, "/order-confirmation", http.StatusSeeOther)
}

type confirmationData struct {
	Order  *api.Order
	Number string
}

func (s *Server) orderConfirmation(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	o, _ := v.Cache.TakeOrder(r.Context())
	s.render(w, r, http.StatusOK, "confirmation.html", page{
		Title: "Order Confirmation • Futurefoodz",
		Data:  confirmationData{Order: o, Number: fullOrderNumber(o)},
	})
}

type profileData struct {
	User   *api.User
	Orders query.State[[]api.Order]
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	st, ok := fetch(r, "orders:mine", v.API().ListMyOrders)
	if !ok {
		return
	}
	if st.Status == query.Failed && api.IsUnauthorized(st.Err) {
		redirectToLogin(w, r, "/profile")
		return
	}
	s.render(w, r, http.StatusOK, "profile.html", page{
		Title: "My Account • Futurefoodz",
		Data:  profileData{User: v.Auth.User(), Orders: st},
	})
}
