// Package forms validates the storefront's user-submitted forms.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ariefcatur/go-storefront/internal/api"
)

type Checkout struct {
	FirstName  string `form:"firstName" validate:"required"`
	LastName   string `form:"lastName" validate:"required"`
	Email      string `form:"email" validate:"required,checkout_email"`
	Address    string `form:"address" validate:"required"`
	City       string `form:"city" validate:"required"`
	State      string `form:"state" validate:"required"`
	PostalCode string `form:"pincode" validate:"required,postal_code"`
	Phone      string `form:"phone" validate:"omitempty,phone"`
}

// ShippingAddress is the order address built from the form.
func (c Checkout) ShippingAddress() api.Address {
	return api.Address{
		Line1: c.Address,
		City:  c.City,
		State: c.State,
		Pin:   c.PostalCode,
		Phone: c.Phone,
	}
}

// Prefill copies the user's name and email into empty fields. The first word
// of the name is the first name; the rest is the last name.
func (c *Checkout) Prefill(u *api.User) {
	if u == nil {
		return
	}
	if name := strings.TrimSpace(u.Name); name != "" && c.FirstName == "" && c.LastName == "" {
		first, last, _ := strings.Cut(name, " ")
		c.FirstName, c.LastName = first, strings.TrimSpace(last)
	}
	if c.Email == "" {
		c.Email = u.Email
	}
}

func (c *Checkout) trim() {
	for _, p := range []*string{&c.FirstName, &c.LastName, &c.Email, &c.Address, &c.City, &c.State, &c.PostalCode, &c.Phone} {
		*p = strings.TrimSpace(*p)
	}
}

type Login struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type Register struct {
	FullName        string `form:"fullName" validate:"required"`
	Email           string `form:"email" validate:"required,register_email"`
	Password        string `form:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password,required"`
	Terms           bool   `form:"terms" validate:"required"`
}

// Errors maps form field names to a message for each invalid field.
type Errors struct {
	Fields map[string]string
}

func (e *Errors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Get returns the message for field, or "".
func (e *Errors) Get(field string) string {
	if e == nil {
		return ""
	}
	return e.Fields[field]
}

// FieldErrors extracts per-field messages from err, or nil when err is not a form error.
func FieldErrors(err error) *Errors {
	var fe *Errors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

var (
	checkoutEmail = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w{2,}$`)
	registerEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneNumber   = regexp.MustCompile(`^\+?\d{10,15}$`)
)

var messages = map[string]string{
	"firstName.required":       "First name is required.",
	"lastName.required":        "Last name is required.",
	"email.required":           "Email is required.",
	"email.checkout_email":     "Invalid email format.",
	"address.required":         "Address is required.",
	"city.required":            "City is required.",
	"state.required":           "State is required.",
	"pincode.required":         "Pin code is required.",
	"phone.phone":              "Invalid phone number.",
	"password.required":        "Password is required",
	"fullName.required":        "Full name is required",
	"email.register_email":     "Enter a valid email",
	"password.min":             "Password must be at least 8 characters",
	"confirmPassword.required": "Confirm password is required",
	"confirmPassword.eqfield":  "Passwords do not match",
	"terms.required":           "You must accept the Terms",
	"login.email.required":     "Email is required",
	"register.email.required":  "Email is required",
}

// Validator checks forms. It is safe for concurrent use.
type Validator struct {
	v            *validator.Validate
	postalDigits int
}

// New returns a Validator whose postal codes must be exactly postalDigits digits.
func New(postalDigits int) *Validator {
	if postalDigits <= 0 {
		postalDigits = 6
	}
	postal := regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, postalDigits))

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	mustRegister(v, "checkout_email", checkoutEmail)
	mustRegister(v, "register_email", registerEmail)
	mustRegister(v, "phone", phoneNumber)
	mustRegister(v, "postal_code", postal)

	return &Validator{v: v, postalDigits: postalDigits}
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// Checkout trims every field in place and validates the result.
func (v *Validator) Checkout(c *Checkout) error {
	c.trim()
	return v.check("checkout", c)
}

func (v *Validator) Login(l *Login) error {
	l.Email = strings.TrimSpace(l.Email)
	return v.check("login", l)
}

// Register validates sign-up input. Only the name and email are trimmed.
func (v *Validator) Register(r *Register) error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	return v.check("register", r)
}

func (v *Validator) check(form string, s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &Errors{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		out.Fields[fe.Field()] = v.message(form, fe)
	}
	return out
}

func (v *Validator) message(form string, fe validator.FieldError) string {
	if fe.Tag() == "postal_code" {
		return fmt.Sprintf("Pin code must be %d digits.", v.postalDigits)
	}
	if m, ok := messages[form+"."+fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	if m, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	return fe.Field() + " is invalid"
}
