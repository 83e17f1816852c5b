package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/modboard/modboard/pkg/kv"
)

// HealthHandler reports liveness plus storage connectivity.
func HealthHandler(store kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		storageStatus := "ok"
		if err := store.Ping(ctx); err != nil {
			status = "degraded"
			storageStatus = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"storage": storageStatus,
		})
	}
}
