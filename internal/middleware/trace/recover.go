package trace

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"fintrack/internal/log"
)

// Recovery turns a panicking handler into a 500 with a JSON error body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Panic recovered",
				log.FieldError, fmt.Sprint(rec),
				log.FieldErrorType, log.ErrorTypeInternal,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"stack", string(debug.Stack()))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error"}` + "\n"))
		}()

		next.ServeHTTP(w, r)
	})
}
