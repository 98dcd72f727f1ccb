package runs

import (
	"net/http"
	"time"

	"github.com/kilianp07/amrfleet/core/logger"
)

// NewRouter builds the HTTP handler for this package: CORS, then request
// logging, then the routes register attaches.
func NewRouter(register func(mux *http.ServeMux), log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	register(mux)
	return withCORS(withRequestLogging(mux, log))
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestLogging(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Infof("http: %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
