package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalogimporter/pkg/logger"
)

// RequestLogger stores a per-request logger in the context, tagged with the
// correlation id, import id and trace ids known at this point. Handlers
// fetch it with logger.FromContext.
//
// Mount it after RequestLogging and Tracing so those ids are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.WithContext(ctx, base).With(slog.String("method", r.Method))
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, l)))
		})
	}
}

// ImportScope reads the import id from the named chi URL parameter and puts
// it on the context and on the request logger. Use it on routes that address
// a single import; chi resolves the parameter only after routing, so mount
// it with Group or With rather than on the root router.
func ImportScope(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, param)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := logger.WithImportID(r.Context(), id)
			if l := logger.FromContext(ctx); l != slog.Default() {
				ctx = logger.NewContext(ctx, l.With(slog.String("import_id", id)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
