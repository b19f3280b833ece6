package session

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/storage"
)

// Session-scoped keys.
const (
	keyLastProduct  = "lastProduct"
	keyBlogPrefix   = "blog:"
	keyShopListing  = "shop:listing"
	keyBlogListing  = "blogs:listing"
	keyCart         = "cart"
	keyNavProduct   = "nav:product"
	keyNavPost      = "nav:post"
	keyNavOrder     = "nav:order"
	keyFlashMessage = "nav:flash"
	keyFlashError   = "nav:error"
)

// Cache is the typed view of a visitor's ephemeral storage. Values that fail
// to decode are treated as absent and removed. Storage errors are logged and
// reported as a miss; a cache never fails a page.
type Cache struct {
	store storage.Bucket
	log   *logrus.Entry
}

func NewCache(store storage.Bucket, log *logrus.Entry) *Cache {
	return &Cache{store: store, log: log}
}

func (c *Cache) LastProduct(ctx context.Context) (*api.Product, bool) {
	return load[api.Product](ctx, c, keyLastProduct, false)
}

func (c *Cache) SetLastProduct(ctx context.Context, p api.Product) {
	save(ctx, c, keyLastProduct, p)
}

func (c *Cache) Post(ctx context.Context, slug string) (*api.Blog, bool) {
	return load[api.Blog](ctx, c, keyBlogPrefix+slug, false)
}

func (c *Cache) SetPost(ctx context.Context, b api.Blog) {
	save(ctx, c, keyBlogPrefix+b.Slug, b)
}

// ShopListing is the last product page shown, used to resolve a selection by id.
func (c *Cache) ShopListing(ctx context.Context) ([]api.Product, bool) {
	p, ok := load[[]api.Product](ctx, c, keyShopListing, false)
	if !ok {
		return nil, false
	}
	return *p, true
}

func (c *Cache) SetShopListing(ctx context.Context, items []api.Product) {
	save(ctx, c, keyShopListing, items)
}

func (c *Cache) BlogListing(ctx context.Context) ([]api.Blog, bool) {
	p, ok := load[[]api.Blog](ctx, c, keyBlogListing, false)
	if !ok {
		return nil, false
	}
	return *p, true
}

func (c *Cache) SetBlogListing(ctx context.Context, items []api.Blog) {
	save(ctx, c, keyBlogListing, items)
}

// Cart is the last cart snapshot loaded this session. It lets checkout
// re-render its summary without calling the API again.
func (c *Cache) Cart(ctx context.Context) (*api.Cart, bool) {
	return load[api.Cart](ctx, c, keyCart, false)
}

func (c *Cache) SetCart(ctx context.Context, cart *api.Cart) {
	if cart == nil {
		c.ForgetCart(ctx)
		return
	}
	save(ctx, c, keyCart, cart)
}

func (c *Cache) ForgetCart(ctx context.Context) {
	if err := c.store.Delete(ctx, keyCart); err != nil {
		c.log.WithError(err).WithField("key", keyCart).Warn("cache: delete")
	}
}

// Navigation state is handed from one view to the next and read exactly once.

func (c *Cache) PushProduct(ctx context.Context, p api.Product) { save(ctx, c, keyNavProduct, p) }

func (c *Cache) TakeProduct(ctx context.Context) (*api.Product, bool) {
	return load[api.Product](ctx, c, keyNavProduct, true)
}

func (c *Cache) PushPost(ctx context.Context, b api.Blog) { save(ctx, c, keyNavPost, b) }

func (c *Cache) TakePost(ctx context.Context) (*api.Blog, bool) {
	return load[api.Blog](ctx, c, keyNavPost, true)
}

func (c *Cache) PushOrder(ctx context.Context, o api.Order) { save(ctx, c, keyNavOrder, o) }

func (c *Cache) TakeOrder(ctx context.Context) (*api.Order, bool) {
	return load[api.Order](ctx, c, keyNavOrder, true)
}

// Flash is a one-shot notice shown on the next page, e.g. after registering.
func (c *Cache) Flash(ctx context.Context, msg string) { save(ctx, c, keyFlashMessage, msg) }

func (c *Cache) TakeFlash(ctx context.Context) string {
	p, ok := load[string](ctx, c, keyFlashMessage, true)
	if !ok {
		return ""
	}
	return *p
}

// FlashError is a one-shot failure shown as a dismissible panel on the next page.
func (c *Cache) FlashError(ctx context.Context, msg string) { save(ctx, c, keyFlashError, msg) }

func (c *Cache) TakeFlashError(ctx context.Context) string {
	p, ok := load[string](ctx, c, keyFlashError, true)
	if !ok {
		return ""
	}
	return *p
}

func load[T any](ctx context.Context, c *Cache, key string, once bool) (*T, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache: read")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var v T
	decodeErr := json.Unmarshal([]byte(raw), &v)
	if decodeErr != nil || once {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("cache: delete")
		}
	}
	if decodeErr != nil {
		c.log.WithError(decodeErr).WithField("key", key).Info("cache: dropping corrupt value")
		return nil, false
	}
	return &v, true
}

func save(ctx context.Context, c *Cache, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache: encode")
		return
	}
	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache: write")
	}
}
