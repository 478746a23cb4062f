package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/ayo6706/swift-remit/internal/api/problem"
	"github.com/ayo6706/swift-remit/internal/models"
)

const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware checks the double-submit anti-forgery token on mutating requests:
// the X-CSRF-Token header must equal the token cookie issued by the session service.
func CSRFMiddleware(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := mutatingMethods[r.Method]; !ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(CSRFHeader)
			cookie, err := r.Cookie(cookieName)
			if header == "" || err != nil || cookie.Value == "" {
				writeCSRFProblem(w, r, "anti-forgery token is required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				writeCSRFProblem(w, r, "anti-forgery token mismatch")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeCSRFProblem(w http.ResponseWriter, r *http.Request, detail string) {
	problem.WriteDetails(w, r, problem.Details{
		Type:   problem.Type("csrf/invalid-token"),
		Status: http.StatusForbidden,
		Detail: detail,
		Kind:   models.KindAuthorization,
	})
}
