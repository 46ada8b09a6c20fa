package metrics

import (
	"encoding/json"
	"net/http"
)

// Handler serves the JSON snapshot. breakers, when not nil, supplies the
// circuit breaker states keyed by operation.
func (c *Collector) Handler(driver string, breakers func() map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot(driver)
		if breakers != nil {
			snap.Breakers = breakers()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
