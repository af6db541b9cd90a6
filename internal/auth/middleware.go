package auth

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-parts-shop/internal/apperr"
)

type ctxKey struct{}

type Verifier interface {
	Verify(bearer string) (Identity, error)
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// ErrorWriter renders an error response; httpx supplies it so this package
// stays free of the envelope format.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// RequireUser rejects requests without a valid bearer token.
func RequireUser(v Verifier, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Header.Get("Authorization"))
			if err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				fail(w, r, apperr.Unauthenticated())
				return
			}
			if !id.IsAdmin() {
				fail(w, r, apperr.Forbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
