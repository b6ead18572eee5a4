package httpapi

import (
	"context"
	"net/http"
	"time"

	"hal9001.dev/internal/access"
	"hal9001.dev/internal/auth"
	"hal9001.dev/internal/config"
	"hal9001.dev/internal/obs"
)

// Pinger is anything that can confirm the storage backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe gates /readyz on backend health. A nil Pinger always passes.
type ReadyProbe struct {
	Pinger Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Pinger == nil {
		return nil
	}
	return rp.Pinger.Ping(ctx)
}

// API is the HTTP layer. It maps the error taxonomy of the inner packages
// onto fixed status codes and never reports partial success.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	gate       *auth.Gate
	store      access.Store

	// Tunables applied by Handler; set before the first call.
	RateBurst   int
	RatePerSec  int
	MaxBodySize int64
	CORSOrigins []string
}

func New(rp ReadyProbe, version string, gate *auth.Gate, store access.Store) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		gate:       gate,
		store:      store,

		RateBurst:   config.DefaultRateBurst,
		RatePerSec:  config.DefaultRatePerSec,
		MaxBodySize: config.DefaultMaxBodySize,
		CORSOrigins: []string{"*"},
	}

	a.mux.HandleFunc("/api/health", a.Health)
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/v1/auth/token", a.handleAuthToken)

	a.mux.Handle("/api/v1/admin/users", a.withAuth(a.handleUsers))
	a.mux.Handle("/api/v1/admin/tables", a.withAuth(a.handleTables))
	a.mux.Handle("/api/v1/admin/permissions", a.withAuth(a.handleReplacePermissions))
	a.mux.Handle("/api/v1/admin/permissions/", a.withAuth(a.handleGetPermissions))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = RateLimit(h, a.RateBurst, a.RatePerSec)
	h = MaxBodyBytes(h, a.MaxBodySize)
	h = CORS(h, a.CORSOrigins)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- system handlers ---

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "HAL9001 API is online.",
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "hal9001-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
