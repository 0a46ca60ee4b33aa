package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter creates the HTTP router with the health and status routes.
func NewRouter(engine Engine, db Pinger, logger *logrus.Entry) *mux.Router {
	r := mux.NewRouter()
	r.Use(logging(logger))

	r.HandleFunc("/healthz", HealthCheck(engine, db)).Methods("GET")
	r.HandleFunc("/status", Status(engine)).Methods("GET")

	return r
}

// NewServer wraps the router in a server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func logging(logger *logrus.Entry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}
