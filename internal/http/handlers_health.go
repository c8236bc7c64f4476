package httpx

import (
	"io"
	"net/http"
)

const (
	healthResponse          = `{"status":"ok"}`
	rootResponse            = `{"message":"Server is running"}`
	apiServerHealthResponse = `{"status":"healthy"}`
)

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeStaticJSON(w, r, healthResponse)
}

// rootHandler answers GET / with the upstream-compatible liveness message.
func rootHandler(w http.ResponseWriter, r *http.Request) {
	writeStaticJSON(w, r, rootResponse)
}

// apiServerHealthHandler answers GET /apiServerHealth, kept for callers of
// the legacy health path.
func apiServerHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeStaticJSON(w, r, apiServerHealthResponse)
}

func writeStaticJSON(w http.ResponseWriter, r *http.Request, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, body); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
