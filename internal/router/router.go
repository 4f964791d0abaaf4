package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/idcard"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/onboarding"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/session"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/metrics"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

const prefix = "/accounts-api"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware assigns a request id (kept from X-Request-ID when the
// caller sends one), logs each request at debug level and records it in m
// (which may be nil).
func LoggingMiddleware(logger *zap.SugaredLogger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rid := r.Header.Get("X-Request-ID")
			if rid == "" || len(rid) > 64 {
				rid = utilities.NewKSUID()
			}
			w.Header().Set("X-Request-ID", rid)
			r = r.WithContext(utilities.WithRequestID(r.Context(), rid))

			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, status, start)
			logger.Debugw("http request",
				"request_id", rid,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// JSON API: nothing here should ever be rendered as a document
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			w.Header().Set("Cache-Control", "no-store")

			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the services the HTTP surface is built from.
type Deps struct {
	Identities  *identity.Service
	Preferences *preference.Service
	Sessions    *session.Service
	Extractor   idcard.Extractor
	// Metrics, when set, is exposed on GET /metrics.
	Metrics *metrics.Metrics
}

// RegisterRoutes mounts HTTP handlers on the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()

	mw := session.NewMiddleware(d.Sessions, d.Identities, d.Preferences, logger)
	sessionHandler := session.NewHandler(d.Identities, d.Sessions, mw, logger)
	identityHandler := identity.NewHandler(d.Identities, logger)
	prefHandler := preference.NewHandler(d.Preferences, logger)
	extractor := d.Extractor
	if extractor == nil {
		extractor = idcard.MockExtractor{}
	}
	idcardHandler := idcard.NewHandler(extractor, logger)

	mux.HandleFunc("GET "+prefix+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// guest screens: authenticated sessions are redirected
	mux.HandleFunc("POST "+prefix+"/login", mw.Gate(onboarding.Login, sessionHandler.Login))
	mux.HandleFunc("POST "+prefix+"/register", mw.Gate(onboarding.Register, identityHandler.Register))
	mux.HandleFunc("POST "+prefix+"/id-card/extract", idcardHandler.Extract)

	mux.HandleFunc("POST "+prefix+"/logout", session.Require(sessionHandler.Logout))
	mux.HandleFunc("GET "+prefix+"/preferences/options", prefHandler.Options)
	mux.HandleFunc("POST "+prefix+"/preferences/setup", mw.Gate(onboarding.PreferencesSetup, prefHandler.Setup))
	mux.HandleFunc("POST "+prefix+"/preferences/edit", mw.Gate(onboarding.PreferencesEdit, prefHandler.Edit))
	mux.HandleFunc("GET "+prefix+"/dashboard", mw.Gate(onboarding.Dashboard, prefHandler.Dashboard))

	// security headers, then session resolution, then logging outermost
	handler := LoggingMiddleware(logger, d.Metrics)(SecurityHeadersMiddleware()(mw.Attach(mux)))
	return handler
}
