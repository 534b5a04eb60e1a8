package i18n

import "net/http"

// Middleware attaches a request-scoped localizer negotiated from the
// Accept-Language header, with defaultLang as the fallback.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accept := r.Header.Get("Accept-Language")
			loc := NewLocalizer(accept, defaultLang)
			ctx := WithLocalizer(r.Context(), loc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
