package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/render"
	"github.com/theemilyd/react-riftsurge/resolver"
)

const (
	DefaultContactRatePerMinute = 5

	contactSlug        = "contact"
	maxContactBodySize = 64 << 10
	limiterCacheSize   = 4096
	limiterIdleTTL     = 10 * time.Minute

	sentFlash      = "Message sent! I'll get back to you soon."
	throttledFlash = "You're sending messages too quickly. Please wait a minute and try again."
	failedFlash    = "Sorry, your message couldn't be sent. Please try again later."
)

// ContactSubmission is a validated message from the contact form.
type ContactSubmission struct {
	Name       string    `form:"name" validate:"required,max=200"`
	Email      string    `form:"email" validate:"required,email,max=320"`
	Subject    string    `form:"subject" validate:"required,max=200"`
	Message    string    `form:"message" validate:"required,max=5000"`
	RemoteAddr string    `form:"-"`
	ReceivedAt time.Time `form:"-"`
}

// ContactStore persists contact submissions.
type ContactStore interface {
	SaveContactSubmission(ctx context.Context, s ContactSubmission) error
}

type ContactOptions struct {
	Pages *PageOptions
	Store ContactStore
	// RatePerMinute bounds submissions per client address.
	RatePerMinute int
}

type contactHandler struct {
	pages    *PageOptions
	store    ContactStore
	validate *validator.Validate

	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewContactHandler renders the contact page on GET and accepts the form
// on POST.
func NewContactHandler(o ContactOptions) http.Handler {
	perMinute := o.RatePerMinute
	if perMinute <= 0 {
		perMinute = DefaultContactRatePerMinute
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &contactHandler{
		pages:    o.Pages,
		store:    o.Store,
		validate: validate,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
	}
}

func (h *contactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		flash := ""
		if r.URL.Query().Get("sent") == "1" {
			flash = sentFlash
		}
		h.render(w, r, flash, render.ContactForm{}, false)
	case http.MethodPost:
		h.submit(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *contactHandler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBodySize)
	if err := r.ParseForm(); err != nil {
		contactSubmissionCountMetric.With(prometheus.Labels{"outcome": "malformed"}).Inc()
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sub := ContactSubmission{
		Name:       strings.TrimSpace(r.PostForm.Get("name")),
		Email:      strings.TrimSpace(r.PostForm.Get("email")),
		Subject:    strings.TrimSpace(r.PostForm.Get("subject")),
		Message:    strings.TrimSpace(r.PostForm.Get("message")),
		RemoteAddr: clientAddr(r),
		ReceivedAt: time.Now().UTC(),
	}
	form := render.ContactForm{Values: map[string]string{
		"name":    sub.Name,
		"email":   sub.Email,
		"subject": sub.Subject,
		"message": sub.Message,
	}}

	if !h.limiter(sub.RemoteAddr).Allow() {
		contactSubmissionCountMetric.With(prometheus.Labels{"outcome": "throttled"}).Inc()
		form.Status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", "60")
		h.render(w, r, throttledFlash, form, true)
		return
	}

	if errs := h.check(sub); len(errs) > 0 {
		contactSubmissionCountMetric.With(prometheus.Labels{"outcome": "invalid"}).Inc()
		form.Errors = errs
		h.render(w, r, "", form, true)
		return
	}

	if err := h.store.SaveContactSubmission(r.Context(), sub); err != nil {
		contactSubmissionCountMetric.With(prometheus.Labels{"outcome": "failed"}).Inc()
		h.pages.Logger.Error().Err(err).Str("remote_addr", sub.RemoteAddr).Msg("failed to save contact submission")
		form.Status = http.StatusServiceUnavailable
		h.render(w, r, failedFlash, form, true)
		return
	}

	contactSubmissionCountMetric.With(prometheus.Labels{"outcome": "sent"}).Inc()
	h.pages.Logger.Info().Str("remote_addr", sub.RemoteAddr).Msg("contact submission received")
	http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
}

// check returns a message per invalid field, keyed by form name.
func (h *contactHandler) check(sub ContactSubmission) map[string]string {
	err := h.validate.Struct(sub)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.pages.Logger.Error().Err(err).Msg("contact form validation failed")
		return map[string]string{"message": "Your message could not be checked. Please try again."}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please enter your %s.", fe.Field())
	case "email":
		return "Please enter a valid email address."
	case "max":
		return fmt.Sprintf("Your %s must be at most %s characters.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Please check your %s.", fe.Field())
	}
}

func (h *contactHandler) limiter(addr string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.limiters.Get(addr); ok {
		return l
	}
	l := rate.NewLimiter(h.limit, h.burst)
	h.limiters.Add(addr, l)
	return l
}

func (h *contactHandler) render(w http.ResponseWriter, r *http.Request, flash string, form render.ContactForm, posted bool) {
	pc := h.pages.begin(r, contactSlug)
	defer pc.close()

	page := h.pages.Resolver.Page(pc.view, contactSlug).Wait(pc.ctx)
	// A re-rendered form must not turn into a skeleton that reloads and
	// drops what was typed.
	if posted && !page.Settled() {
		page = resolver.Outcome[*content.Node]{State: resolver.StaticFallback}
	}
	h.pages.Renderer.Contact(w, pc.layout(flash), page, form)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
