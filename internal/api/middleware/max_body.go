package middleware

import (
	"net/http"

	"github.com/brightforge/sitechat/internal/api"
)

// MaxBodyBytes caps the request body. Declared oversized bodies are
// rejected up front with 413; chunked uploads are capped while reading
// via MaxBytesReader. Chat questions are small, so the limit mostly
// guards the JSON decoder.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit && r.ContentLength != -1 {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
