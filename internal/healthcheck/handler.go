package healthcheck

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the latest status: 200 when healthy, 503 otherwise.
func Handler(status *Status, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(status.Report())
		if err != nil {
			logger.Error("Failed to encode health report", slog.Any("err", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if _, err := w.Write(append(body, '\n')); err != nil {
			logger.Warn("Failed to write health report",
				slog.String("remote_addr", r.RemoteAddr),
				slog.Any("err", err))
		}
	}
}
