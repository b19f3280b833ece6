package api

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront/internal/blog"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user"`
}

type RegisterResponse struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Product prices are minor currency units (paise).
type Product struct {
	ID          string `json:"_id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl"`
	Price       int64  `json:"pricePaise"`
	Stock       int    `json:"stock"`
	Active      bool   `json:"isActive"`
	Featured    bool   `json:"featured,omitempty"`
	Category    string `json:"category,omitempty"`
}

func (p Product) InStock() bool { return p.Stock > 0 }

type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages,omitempty"`
}

// ProductQuery maps to GET /products. Nil flags and zero values are omitted.
type ProductQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Featured *bool
	IsActive *bool
	Sort     string
}

func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Featured != nil {
		v.Set("featured", strconv.FormatBool(*q.Featured))
	}
	if q.IsActive != nil {
		v.Set("isActive", strconv.FormatBool(*q.IsActive))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

type CartProduct struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	Price    int64  `json:"pricePaise"`
}

type CartItem struct {
	ID       string      `json:"_id"`
	Product  CartProduct `json:"product"`
	Quantity int         `json:"quantity"`
}

func (it CartItem) LineTotal() int64 { return it.Product.Price * int64(it.Quantity) }

type Cart struct {
	ID    string     `json:"_id"`
	User  string     `json:"user"`
	Items []CartItem `json:"items"`
}

func (c *Cart) Empty() bool { return c == nil || len(c.Items) == 0 }

type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type Address struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state,omitempty"`
	Pin   string `json:"pin"`
	Phone string `json:"phone,omitempty"`
}

// ProductRef is an order line's product: either a bare id or a populated document.
type ProductRef struct {
	ID       string `json:"_id"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (r *ProductRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	type plain ProductRef
	return json.Unmarshal(b, (*plain)(r))
}

// Label is the product name when populated, else its id.
func (r ProductRef) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

type OrderItem struct {
	Product  ProductRef `json:"product"`
	Quantity int        `json:"quantity"`
	Price    int64      `json:"pricePaise"`
}

func (it OrderItem) LineTotal() int64 { return it.Price * int64(it.Quantity) }

type Order struct {
	ID        string      `json:"_id"`
	User      string      `json:"user"`
	Items     []OrderItem `json:"items"`
	Amount    int64       `json:"amountPaise"`
	Status    OrderStatus `json:"status"`
	Address   Address     `json:"address"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
)

type BlogAuthor struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type BlogSEO struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	OGImage     string `json:"ogImage,omitempty"`
}

type Blog struct {
	ID          string      `json:"_id"`
	Heading     string      `json:"heading"`
	Description []string    `json:"description"`
	Slug        string      `json:"slug"`
	CoverImage  string      `json:"coverImage,omitempty"`
	Content     blog.Blocks `json:"content"`
	Tags        []string    `json:"tags"`
	Category    string      `json:"category,omitempty"`
	Author      BlogAuthor  `json:"author"`
	Status      BlogStatus  `json:"status"`
	PublishedAt *time.Time  `json:"publishedAt,omitempty"`
	MainBlog    bool        `json:"mainBlog"`
	IsActive    bool        `json:"isActive"`
	SEO         *BlogSEO    `json:"seo,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Intro is the first description paragraph, used for teasers.
func (b Blog) Intro() string {
	if len(b.Description) == 0 {
		return ""
	}
	return b.Description[0]
}

type BlogQuery struct {
	Page     int
	Limit    int
	Tag      string
	Category string
	Q        string
}

func (q BlogQuery) Values() url.Values {
	v := url.Values{}
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 12
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	return v
}
