package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tradia/signals/internal/api/handlers"
	"github.com/tradia/signals/pkg/logger"
)

// NewRouter wires all endpoints. Literal signal routes are registered
// before the dynamic {id} route.
func NewRouter(signalHandler *handlers.SignalHandler, statsHandler *handlers.StatsHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/signals", signalHandler.Latest).Methods("GET")
	api.HandleFunc("/signals/latest", signalHandler.Latest).Methods("GET")
	api.HandleFunc("/signals/top5", signalHandler.TopPicks).Methods("GET")
	api.HandleFunc("/signals/day", signalHandler.ByDay).Methods("GET")
	api.HandleFunc("/signals/search", signalHandler.Search).Methods("GET")
	api.HandleFunc("/signals/{id}", signalHandler.GetByID).Methods("GET")
	api.HandleFunc("/signals/{id}/checks", signalHandler.PriceChecks).Methods("GET")

	api.HandleFunc("/outcomes/open", signalHandler.OpenOutcomes).Methods("GET")

	api.HandleFunc("/stats/summary", statsHandler.Summary).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "tradia-signals-api",
	})
}

// loggingMiddleware logs every request at debug level.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware turns handler panics into 500 responses.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
