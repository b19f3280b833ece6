// Package cart drives the cart and checkout screens: it keeps the visitor's
// server cart snapshot, derives totals and places the order.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/forms"
	"github.com/ariefcatur/go-storefront/internal/storage"
)

var (
	ErrEmptyCart         error = api.NewUserError("Your cart is empty.")
	ErrInvalidQuantity   = errors.New("cart: quantity must be at least 1")
	ErrSubmitInFlight    = errors.New("cart: order submission already in progress")
	ErrInvalidTransition = errors.New("cart: invalid state transition")
)

// Gateway is the part of the API client the flow needs.
type Gateway interface {
	GetCart(ctx context.Context) (*api.Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (*api.Cart, error)
	UpdateCartItem(ctx context.Context, itemID string, quantity int) (*api.Cart, error)
	RemoveCartItem(ctx context.Context, itemID string) (*api.Cart, error)
	CreateOrder(ctx context.Context, addr api.Address) (*api.Order, error)
}

// Guard serialises order submission across every request of one visitor.
type Guard interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

type Totals struct {
	Subtotal int64
	Shipping int64
	Total    int64
}

// ComputeTotals sums line totals and adds the flat shipping fee when the cart has items.
func ComputeTotals(c *api.Cart, flatShipping int64) Totals {
	var t Totals
	if c.Empty() {
		return t
	}
	for _, it := range c.Items {
		t.Subtotal += it.LineTotal()
	}
	t.Shipping = flatShipping
	t.Total = t.Subtotal + t.Shipping
	return t
}

type Flow struct {
	gw       Gateway
	guard    Guard
	validate *forms.Validator
	flat     int64

	mu    sync.Mutex
	state State
	cart  *api.Cart
	order *api.Order
}

func NewFlow(gw Gateway, guard Guard, v *forms.Validator, flatShipping int64) *Flow {
	return &Flow{gw: gw, guard: guard, validate: v, flat: flatShipping, state: StateEmpty}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Cart is the last server snapshot, nil before Load.
func (f *Flow) Cart() *api.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart
}

func (f *Flow) Totals() Totals {
	return ComputeTotals(f.Cart(), f.flat)
}

// Order is the order placed by Submit, nil until then.
func (f *Flow) Order() *api.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order
}

// Seed installs a snapshot loaded by an earlier request without calling the
// API. It is ignored once a submission has started.
func (f *Flow) Seed(c *api.Cart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting || f.state == StateConfirmed {
		return
	}
	f.cart, f.state = c, stateOf(c)
}

func (f *Flow) Load(ctx context.Context) error {
	return f.replace(ctx, f.gw.GetCart)
}

func (f *Flow) Add(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return f.replace(ctx, func(ctx context.Context) (*api.Cart, error) {
		return f.gw.AddCartItem(ctx, productID, qty)
	})
}

// ChangeQuantity sets an item's quantity. Values below 1 are rejected
// without calling the API; removal is a separate operation.
func (f *Flow) ChangeQuantity(ctx context.Context, itemID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return f.replace(ctx, func(ctx context.Context) (*api.Cart, error) {
		return f.gw.UpdateCartItem(ctx, itemID, qty)
	})
}

func (f *Flow) Remove(ctx context.Context, itemID string) error {
	return f.replace(ctx, func(ctx context.Context) (*api.Cart, error) {
		return f.gw.RemoveCartItem(ctx, itemID)
	})
}

// replace swaps in the snapshot returned by call. On error the local cart is untouched.
func (f *Flow) replace(ctx context.Context, call func(context.Context) (*api.Cart, error)) error {
	f.mu.Lock()
	if f.state == StateSubmitting || f.state == StateConfirmed {
		f.mu.Unlock()
		return fmt.Errorf("%w: cart change while %s", ErrInvalidTransition, f.state)
	}
	f.mu.Unlock()

	c, err := call(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	next := stateOf(c)
	if !CanTransition(f.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, next)
	}
	f.cart, f.state = c, next
	return nil
}

// Submit validates the shipping form and places the order for the current
// cart. Validation failures come back as *forms.Errors. Nothing is sent when
// the form is invalid, the cart is empty or another submission is running.
func (f *Flow) Submit(ctx context.Context, in *forms.Checkout) (*api.Order, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if err := f.validate.Checkout(in); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.cart.Empty() {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}
	if !CanTransition(f.state, StateSubmitting) {
		st := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st, StateSubmitting)
	}
	release, ok, err := f.guard.Acquire(ctx)
	if err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("checkout guard: %w", err)
	}
	if !ok {
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	f.state = StateSubmitting
	f.mu.Unlock()
	defer release()

	order, err := f.gw.CreateOrder(ctx, in.ShippingAddress())

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StatePopulated
		return nil, err
	}
	f.state, f.order = StateConfirmed, order
	return order, nil
}

const checkoutLockTTL = 30 * time.Second

// LockGuard is a Guard over a storage.Locker, keyed by visitor.
type LockGuard struct {
	locker storage.Locker
	name   string
	ttl    time.Duration
}

func NewLockGuard(l storage.Locker, visitorID string) *LockGuard {
	return &LockGuard{locker: l, name: "checkout:" + visitorID, ttl: checkoutLockTTL}
}

func (g *LockGuard) Acquire(ctx context.Context) (func(), bool, error) {
	return g.locker.TryLock(ctx, g.name, g.ttl)
}
