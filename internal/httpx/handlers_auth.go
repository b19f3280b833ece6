package httpx

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-storefront/internal/activity"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/forms"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/session"
)

const (
	msgTooManyAttempts = "Too many login attempts. Please wait a minute and try again."
	msgAccountCreated  = "Account created. Please log in."
)

type authData struct {
	Register bool
	From     string
	Email    string
	FullName string
	Errors   *forms.Errors
	Message  string
}

func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, status int, d authData) {
	if d.Errors == nil {
		d.Errors = &forms.Errors{}
	}
	title := "Sign in • Futurefoodz"
	if d.Register {
		title = "Create account • Futurefoodz"
	}
	s.render(w, r, status, "login.html", page{Title: title, Data: d})
}

// loginPage serves both auth screens; ?mode=register selects sign-up.
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	from := safeFrom(r.URL.Query().Get("from"))
	if v.Auth.IsAuthenticated() {
		http.Redirect(w, r, from, http.StatusFound)
		return
	}
	s.renderAuth(w, r, http.StatusOK, authData{
		Register: r.URL.Query().Get("mode") == "register",
		From:     from,
	})
}

func (s *Server) loginSubmit(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	in := forms.Login{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	d := authData{From: safeFrom(r.PostFormValue("from")), Email: in.Email}

	if !s.limiter.Allow(v.VisitorID) {
		metrics.RecordLogin(metrics.LoginLimited)
		d.Message = msgTooManyAttempts
		s.renderAuth(w, r, http.StatusTooManyRequests, d)
		return
	}
	if err := s.Forms.Login(&in); err != nil {
		metrics.RecordLogin(metrics.LoginInvalid)
		d.Email, d.Errors = in.Email, forms.FieldErrors(err)
		s.renderAuth(w, r, http.StatusUnprocessableEntity, d)
		return
	}

	if err := v.Auth.Login(ctx, in.Email, in.Password); err != nil {
		metrics.RecordLogin(metrics.LoginRejected)
		v.Log.WithError(err).Info("login rejected")
		d.Message = api.MessageOf(err, genericFailure)
		s.renderAuth(w, r, loginFailureStatus(err), d)
		return
	}

	metrics.RecordLogin(metrics.LoginOK)
	v.Cache.ForgetCart(ctx)
	s.publishLogin(v)
	http.Redirect(w, r, d.From, http.StatusSeeOther)
}

func loginFailureStatus(err error) int {
	if errors.Is(err, session.ErrAccessDenied) {
		return http.StatusForbidden
	}
	if code := api.StatusOf(err); code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadGateway
}

// registerSubmit creates the account. When the API signs the visitor in
// straight away they go to from; otherwise they are asked to log in.
func (s *Server) registerSubmit(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	ctx := r.Context()
	in := forms.Register{
		FullName:        r.PostFormValue("fullName"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		Terms:           r.PostFormValue("terms") == "on",
	}
	d := authData{Register: true, From: safeFrom(r.PostFormValue("from")), Email: in.Email, FullName: in.FullName}

	if err := s.Forms.Register(&in); err != nil {
		d.Email, d.FullName, d.Errors = in.Email, in.FullName, forms.FieldErrors(err)
		s.renderAuth(w, r, http.StatusUnprocessableEntity, d)
		return
	}

	loggedIn, err := v.Auth.Register(ctx, in.FullName, in.Email, in.Password)
	if err != nil {
		v.Log.WithError(err).Info("register rejected")
		d.Message = api.MessageOf(err, genericFailure)
		s.renderAuth(w, r, loginFailureStatus(err), d)
		return
	}
	if loggedIn {
		v.Cache.ForgetCart(ctx)
		s.publishLogin(v)
		http.Redirect(w, r, d.From, http.StatusSeeOther)
		return
	}
	v.Cache.Flash(ctx, msgAccountCreated)
	http.Redirect(w, r, "/login?from="+url.QueryEscape(d.From), http.StatusSeeOther)
}

func (s *Server) publishLogin(v *Visit) {
	u := v.Auth.User()
	if u == nil {
		return
	}
	s.Activity.Publish(v.VisitorID, activity.EventUserLoggedIn, activity.UserLoggedInPayload{
		UserID: u.ID,
		Role:   string(u.Role),
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	v := visitFrom(r)
	v.Auth.Logout(r.Context())
	v.Cache.ForgetCart(r.Context())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
