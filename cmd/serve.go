package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/property-advisor/internal/cache"
	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/internal/pipeline"
	"github.com/sells-group/property-advisor/internal/resilience"
	"github.com/sells-group/property-advisor/internal/session"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

var servePort int

// recommender runs one pipeline request.
type recommender interface {
	Run(ctx context.Context, req pipeline.Request) (*model.PipelineState, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv("serve")
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler: buildMux(serverDeps{
				rec:          env.Pipeline,
				data:         env.Data,
				sessions:     env.Sessions,
				cache:        env.Cache,
				breakers:     env.Breakers,
				registry:     env.Registry,
				historyLimit: cfg.Session.HistoryLimit,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// serverDeps are the collaborators behind the HTTP API. Only rec is
// required; the listing search route is mounted when data is set.
type serverDeps struct {
	rec          recommender
	data         realestate.Client
	sessions     *session.Store
	cache        *cache.Memory
	breakers     *resilience.Breakers
	registry     *prometheus.Registry
	historyLimit int
}

// buildMux wires the HTTP routes. A nil registry serves the default
// Prometheus gatherer; nil sessions get a private store.
func buildMux(d serverDeps) http.Handler {
	if d.sessions == nil {
		d.sessions = session.NewStore(0, 0)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{serverDeps: d}
	r.Get("/health", h.health)

	if d.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommend", h.recommend)
		if d.data != nil {
			r.Get("/listings", h.searchListings)
		}
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Delete("/", h.forgetUser)
			r.Get("/history", h.history)
			r.Get("/preferences", h.preferences)
			r.Get("/viewed", h.viewed)
			r.Post("/viewed", h.trackViewed)
		})
	})
	return r
}

type handlers struct {
	serverDeps
}

type healthReport struct {
	Status       string            `json:"status"`
	Sessions     int               `json:"sessions"`
	CacheEntries int               `json:"cache_entries"`
	Circuits     map[string]string `json:"circuits,omitempty"`
}

// health reports "degraded" while any upstream circuit is open.
func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	report := healthReport{Status: "ok", Sessions: h.sessions.Users()}
	if h.cache != nil {
		report.CacheEntries = h.cache.Len()
	}
	if h.breakers != nil {
		report.Circuits = make(map[string]string)
		for name, state := range h.breakers.States() {
			report.Circuits[name] = state.String()
			if state == resilience.CircuitOpen {
				report.Status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, report)
}

type recommendRequest struct {
	Query   string       `json:"query"`
	UserID  string       `json:"user_id"`
	Income  float64      `json:"income"`
	History []model.Turn `json:"history"`
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Income < 0 {
		writeError(w, http.StatusBadRequest, "income must be positive")
		return
	}

	log := zap.L().With(zap.String("request_id", middleware.GetReqID(r.Context())))

	history := req.History
	userID := strings.TrimSpace(req.UserID)
	if userID != "" {
		stored, err := h.sessions.History(userID, h.historyLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(history) == 0 {
			history = stored
		}
		if err := h.sessions.AddTurn(userID, "user", req.Query); err != nil {
			log.Warn("session: add user turn", zap.Error(err))
		}
	}

	state, err := h.rec.Run(r.Context(), pipeline.Request{Query: req.Query, History: history, Income: req.Income})
	if err != nil {
		log.Error("recommend failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	if userID != "" {
		if state.FinalResponse != "" {
			if err := h.sessions.AddTurn(userID, "assistant", state.FinalResponse); err != nil {
				log.Warn("session: add assistant turn", zap.Error(err))
			}
		}
		if state.Criteria != nil && !state.NeedsClarification {
			if err := h.sessions.SetPreferences(userID, *state.Criteria, nil); err != nil {
				log.Warn("session: store preferences", zap.Error(err))
			}
		}
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	turns, err := h.sessions.History(chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": turns})
}

func (h *handlers) preferences(w http.ResponseWriter, r *http.Request) {
	prefs, ok, err := h.sessions.Preferences(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no preferences stored")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *handlers) viewed(w http.ResponseWriter, r *http.Request) {
	views, err := h.sessions.Viewed(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"viewed": views})
}

func (h *handlers) trackViewed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListingID string `json:"listing_id"`
		Action    string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.sessions.TrackViewed(chi.URLParam(r, "userID"), req.ListingID, req.Action); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// searchListings exposes the adapter's listing search.
func (h *handlers) searchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := realestate.SearchParams{
		Location:     q.Get("location"),
		PropertyType: q.Get("type"),
	}
	for name, dst := range map[string]*int{"min_price": &p.MinPrice, "max_price": &p.MaxPrice, "bedrooms": &p.Bedrooms} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, name+" must be an integer")
				return
			}
			*dst = n
		}
	}
	if v := q.Get("bathrooms"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bathrooms must be a number")
			return
		}
		p.Bathrooms = f
	}

	listings, err := h.data.SearchListings(r.Context(), p)
	if err != nil {
		writeError(w, adapterStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// adapterStatus maps adapter errors onto HTTP statuses.
func adapterStatus(err error) int {
	var ue *realestate.UpstreamError
	switch {
	case realestate.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &ue):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) forgetUser(w http.ResponseWriter, r *http.Request) {
	h.sessions.Forget(chi.URLParam(r, "userID"))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
