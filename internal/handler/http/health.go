package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Pinger checks that a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns a liveness check (always OK)
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}

// ReadyHandler returns a readiness check (checks dependencies).
// db may be nil when the node runs without persistence.
func ReadyHandler(db Pinger, kafkaProducer sarama.SyncProducer, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{
			"database": "disabled",
			"kafka":    "disabled",
		}

		// Check database
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				logger.Error().Err(err).Msg("database health check failed")
				checks["database"] = "failed"
				checks["error"] = err.Error()
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status": "unavailable",
					"checks": checks,
				})
				return
			}
			checks["database"] = "ok"
		}

		// Check Kafka (simple check - a configured producer is enough)
		if kafkaProducer != nil {
			checks["kafka"] = "ok"
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ready",
			"checks": checks,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
