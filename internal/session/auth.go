// Package session holds everything the storefront remembers about one
// visitor between requests: the signed-in user and short-lived view caches.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/storage"
)

// Durable storage keys. Auth is their only writer.
const (
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUserData     = "userData"
)

var authKeys = []string{KeyAuthToken, KeyRefreshToken, KeyUserData}

var AllowedRoles = []api.Role{api.RoleAdmin, api.RoleUser}

var (
	ErrAccessDenied error = api.NewUserError("Access denied. Insufficient privileges.")
	ErrMissingToken error = api.NewUserError("No access token in response")
)

func roleAllowed(r api.Role) bool {
	for _, a := range AllowedRoles {
		if r == a {
			return true
		}
	}
	return false
}

// Auth is one visitor's authentication state. It is created per request and
// hydrated from durable storage; all mutations write through to that storage.
type Auth struct {
	client *api.Client
	store  storage.Bucket
	log    *logrus.Entry
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *api.User
}

// NewAuth hydrates auth state for the visitor owning store. It never fails:
// unreadable or corrupt state leaves the visitor signed out.
func NewAuth(ctx context.Context, client *api.Client, store storage.Bucket, log *logrus.Entry) *Auth {
	a := &Auth{client: client, store: store, log: log, now: time.Now}
	a.hydrate(ctx)
	return a
}

func (a *Auth) hydrate(ctx context.Context) {
	token, okTok, err := a.store.Get(ctx, KeyAuthToken)
	if err != nil {
		a.log.WithError(err).Warn("auth: read token")
		return
	}
	raw, okUser, err := a.store.Get(ctx, KeyUserData)
	if err != nil {
		a.log.WithError(err).Warn("auth: read user")
		return
	}
	if !okTok || !okUser || token == "" {
		return
	}

	var u api.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		a.log.WithError(err).Info("auth: discarding corrupt user data")
		a.clearStored(ctx)
		return
	}
	if a.expired(token) {
		a.log.Info("auth: discarding expired token")
		a.clearStored(ctx)
		return
	}
	a.token, a.user = token, &u
}

// expired reports whether token is a JWT whose exp has passed. Opaque tokens
// are never considered expired; the API will reject them with a 401 instead.
func (a *Auth) expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !a.now().Before(claims.ExpiresAt.Time)
}

// API returns a gateway client that authenticates as this visitor.
func (a *Auth) API() *api.Client { return a.client.As(a) }

// User returns a copy of the signed-in user, or nil.
func (a *Auth) User() *api.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *Auth) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user != nil && roleAllowed(a.user.Role)
}

func (a *Auth) Login(ctx context.Context, email, password string) error {
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if res.User == nil || !roleAllowed(res.User.Role) {
		return ErrAccessDenied
	}
	if res.AccessToken == "" {
		return ErrMissingToken
	}
	return a.persist(ctx, res.AccessToken, res.RefreshToken, res.User)
}

// Register creates an account. When the API answers with both a token and a
// user the visitor is signed in and loggedIn is true; otherwise they must log in.
func (a *Auth) Register(ctx context.Context, name, email, password string) (loggedIn bool, err error) {
	res, err := a.client.Register(ctx, name, email, password)
	if err != nil {
		return false, err
	}
	if res.AccessToken == "" || res.User == nil {
		return false, nil
	}
	if err := a.persist(ctx, res.AccessToken, res.RefreshToken, res.User); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Auth) persist(ctx context.Context, token, refresh string, u *api.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := a.write(ctx, token, refresh, string(raw)); err != nil {
		// a half-written session must not survive the failed login
		a.clearStored(ctx)
		return err
	}

	cp := *u
	a.mu.Lock()
	a.token, a.user = token, &cp
	a.mu.Unlock()
	return nil
}

func (a *Auth) write(ctx context.Context, token, refresh, user string) error {
	if err := a.store.Set(ctx, KeyAuthToken, token); err != nil {
		return err
	}
	if refresh != "" {
		if err := a.store.Set(ctx, KeyRefreshToken, refresh); err != nil {
			return err
		}
	}
	return a.store.Set(ctx, KeyUserData, user)
}

// Logout signs the visitor out. Storage failures are logged, not returned.
func (a *Auth) Logout(ctx context.Context) {
	a.clearStored(ctx)
	a.mu.Lock()
	a.token, a.user = "", nil
	a.mu.Unlock()
}

func (a *Auth) clearStored(ctx context.Context) {
	if err := a.store.Delete(ctx, authKeys...); err != nil {
		a.log.WithError(err).Warn("auth: clear stored credentials")
	}
}

// AccessToken implements api.Credentials.
func (a *Auth) AccessToken(context.Context) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Invalidate implements api.Credentials; the gateway calls it on a 401.
func (a *Auth) Invalidate(ctx context.Context) { a.Logout(ctx) }
