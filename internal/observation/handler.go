package observation

import (
	"context"
	"net/http"
	"strconv"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type serverError struct{ status int }

func (e *serverError) Error() string     { return http.StatusText(e.status) }
func (e *serverError) ErrorKind() string { return strconv.Itoa(e.status) }

// Handler observes every request served by next. Responses with a 5xx status
// count as failed observations.
func (a *Aspect) Handler(spec Spec, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		_ = a.Observe(r.Context(), spec, func(ctx context.Context) error {
			next.ServeHTTP(rec, r.WithContext(ctx))
			if rec.status >= http.StatusInternalServerError {
				return &serverError{status: rec.status}
			}
			return nil
		})
	})
}
