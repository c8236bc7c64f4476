package httpx

import (
	"net/http"

	"github.com/roadsideiq/verify-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         *service.AuthService
	Verification *service.VerificationService
	Jobs         *service.JobService
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	registerHealthRoutes(mux)
	registerAuthRoutes(mux, &AuthHandlers{Svc: services.Auth})

	requireAuth := RequireAuth(services.Auth)
	registerVerifyRoutes(mux, &VerifyHandlers{Svc: services.Verification}, requireAuth)
	registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs}, requireAuth)

	return mux
}

func registerHealthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", rootHandler)
	mux.HandleFunc("GET /apiServerHealth", apiServerHealthHandler)
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /token", h.Token)
}

func registerVerifyRoutes(mux *http.ServeMux, h *VerifyHandlers, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /verifyCustomerInfo", auth(http.HandlerFunc(h.Submit)))
	mux.Handle("POST /verifyCustomerInfo2_simulation", auth(http.HandlerFunc(h.Simulate)))
	mux.Handle("GET /verifications/{id}", auth(http.HandlerFunc(h.GetStatus)))
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /jobs/stats/{type}", auth(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /jobs/recent/{type}", auth(http.HandlerFunc(h.ListRecent)))
	mux.Handle("GET /jobs/{id}", auth(http.HandlerFunc(h.GetStatus)))
}
