package event_api

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
)

type RouterOptions struct {
	// CSRFSecret enables CSRF protection of all forms when non-empty.
	CSRFSecret   string
	CookieSecure bool
	// Pinger backs /healthz; nil reports healthy.
	Pinger interface {
		Ping(ctx context.Context) error
	}
}

// NewRouter builds the complete HTTP surface around h.
func NewRouter(h *Handler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(opts.Pinger))

	r.Group(func(r chi.Router) {
		if opts.CSRFSecret != "" {
			r.Use(CSRFProtection(opts.CSRFSecret, opts.CookieSecure, h))
			h.Logger.Info("SECURITY", "CSRF protection applied to event forms")
		}
		h.RegisterRoutes(r)
	})

	return r
}

// RequestLogger logs method, path, status and duration of every request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", status), time.Since(start).String())
		})
	}
}

// CSRFProtection validates a double-submit token on every unsafe request.
// Without TLS the requests are marked plaintext so the referer check that
// only applies to HTTPS does not reject them.
func CSRFProtection(secret string, secure bool, h *Handler) func(http.Handler) http.Handler {
	authKey := sha256.Sum256([]byte("csrf:" + secret))
	protect := csrf.Protect(authKey[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.Logger.LogSecurity("CSRF", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, csrf.FailureReason(r)))
			h.renderError(w, r, http.StatusForbidden, "The form expired or was not submitted from this site. Please try again.")
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func healthz(pinger interface{ Ping(ctx context.Context) error }) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("database unavailable", err.Error()))
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	}
}
