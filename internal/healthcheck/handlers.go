package healthcheck

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	statusOK      = "ok"
	statusStale   = "stale"
	statusWaiting = "waiting"
)

// report is the body of both endpoints. Snapshot fields are inlined.
type report struct {
	Status              string  `json:"status"`
	PollIntervalSeconds float64 `json:"poll_interval_seconds,omitempty"`
	Snapshot
}

// HealthHandler serves /healthz. It answers 200 while the last successful
// cycle is within two poll intervals.
func HealthHandler(tracker *Tracker, pollInterval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r) {
			return
		}
		body := report{
			Status:              statusOK,
			PollIntervalSeconds: pollInterval.Seconds(),
			Snapshot:            tracker.Snapshot(),
		}
		code := http.StatusOK
		switch {
		case !tracker.Ready():
			body.Status, code = statusWaiting, http.StatusServiceUnavailable
		case !tracker.Healthy(time.Now().UTC(), pollInterval):
			body.Status, code = statusStale, http.StatusServiceUnavailable
		}
		writeJSON(w, code, body)
	}
}

// ReadyHandler serves /readyz. It answers 200 once any cycle has succeeded.
func ReadyHandler(tracker *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r) {
			return
		}
		body := report{Status: statusOK, Snapshot: tracker.Snapshot()}
		code := http.StatusOK
		if !tracker.Ready() {
			body.Status, code = statusWaiting, http.StatusServiceUnavailable
		}
		writeJSON(w, code, body)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, code int, body report) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
