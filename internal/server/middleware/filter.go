package middleware

import (
	"net/http"
	"strings"

	pkglog "HealthPulse/pkg/log"

	"github.com/go-chi/cors"
)

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Accept", "Content-Type", "Authorization", "X-Request-ID"}
)

// RequestID makes sure every request and response carries X-Request-ID.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(pkglog.RequestIDHeader)
			if id == "" {
				id = pkglog.GenerateRequestID()
				r.Header.Set(pkglog.RequestIDHeader, id)
			}
			w.Header().Set(pkglog.RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// CORS adds CORS headers for the allowed origins. Preflights are passed on to Preflight.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:     origins,
		AllowedMethods:     corsMethods,
		AllowedHeaders:     corsHeaders,
		ExposedHeaders:     []string{pkglog.RequestIDHeader, "Retry-After"},
		MaxAge:             300,
		OptionsPassthrough: true,
	})
}

// Preflight answers every OPTIONS request with 200 before routing, so preflights are
// never gated by the circuit breaker.
func Preflight() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			if h.Get("Access-Control-Allow-Origin") == "" {
				h.Set("Access-Control-Allow-Origin", "*")
				h.Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
				h.Set("Access-Control-Allow-Headers", strings.Join(corsHeaders, ", "))
			}
			w.WriteHeader(http.StatusOK)
		})
	}
}
