package middleware

import (
	"log"
	"net/http"

	"github.com/unrolled/secure"
)

// SecurityHeaders sets the standard hardening headers on every response.
// sslRedirect bounces plain HTTP requests to HTTPS, honouring X-Forwarded-Proto.
func SecurityHeaders(sslRedirect bool) func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:",
		SSLRedirect:           sslRedirect,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := secureMiddleware.Process(w, r); err != nil {
				log.Printf("[SECURITY] Blocked %s %s: %v", r.Method, r.URL.Path, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
