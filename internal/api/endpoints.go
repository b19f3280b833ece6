package api

import (
	"context"
	"net/http"
	"net/url"
)

// ---- Auth ----

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*RegisterResponse, error) {
	var out RegisterResponse
	err := c.do(ctx, "register", http.MethodPost, "/auth/register",
		map[string]string{"name": name, "email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, "me", http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- Products ----

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*Page[Product], error) {
	var out Page[Product]
	if err := c.do(ctx, "list_products", http.MethodGet, withQuery("/products", q.Values()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var out Product
	if err := c.do(ctx, "product_by_slug", http.MethodGet, "/products/slug/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- Cart ----

func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	return c.cart(ctx, "get_cart", http.MethodGet, "/cart", nil)
}

func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) (*Cart, error) {
	return c.cart(ctx, "add_cart_item", http.MethodPost, "/cart/items",
		map[string]any{"productId": productID, "quantity": quantity})
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	return c.cart(ctx, "update_cart_item", http.MethodPut, "/cart/items/"+url.PathEscape(itemID),
		map[string]any{"quantity": quantity})
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID string) (*Cart, error) {
	return c.cart(ctx, "remove_cart_item", http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil)
}

func (c *Client) ClearCart(ctx context.Context) (*Cart, error) {
	return c.cart(ctx, "clear_cart", http.MethodDelete, "/cart", nil)
}

func (c *Client) cart(ctx context.Context, op, method, path string, in any) (*Cart, error) {
	var out Cart
	if err := c.do(ctx, op, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- Orders ----

// CreateOrder turns the caller's server-held cart into an order. The server
// empties the cart as part of the call.
func (c *Client) CreateOrder(ctx context.Context, addr Address) (*Order, error) {
	var out Order
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", map[string]Address{"address": addr}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, "list_my_orders", http.MethodGet, "/orders/myOrders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Blogs ----

func (c *Client) ListBlogs(ctx context.Context, q BlogQuery) (*Page[Blog], error) {
	var out Page[Blog]
	if err := c.do(ctx, "list_blogs", http.MethodGet, withQuery("/blogs", q.Values()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FeaturedBlog(ctx context.Context) (*Blog, error) {
	var out Blog
	if err := c.do(ctx, "featured_blog", http.MethodGet, "/blogs/featured", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BlogBySlug(ctx context.Context, slug string) (*Blog, error) {
	var out Blog
	if err := c.do(ctx, "blog_by_slug", http.MethodGet, "/blogs/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
