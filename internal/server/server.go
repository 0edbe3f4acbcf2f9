package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/potluck/internal/config"
	"github.com/dukerupert/potluck/internal/handler"
	"github.com/dukerupert/potluck/internal/metrics"
	"github.com/dukerupert/potluck/internal/middleware"
	"github.com/dukerupert/potluck/internal/notify"
	"github.com/dukerupert/potluck/internal/store"
	ws "github.com/dukerupert/potluck/internal/websocket"
)

type Server struct {
	cfg            *config.Config
	hub            *ws.Hub
	registry       *prometheus.Registry
	metrics        *metrics.Metrics
	ingredientH    *handler.IngredientHandler
	submissionH    *handler.SubmissionHandler
	groceryH       *handler.GroceryHandler
	resourceH      *handler.KitchenResourceHandler
	notificationH  *handler.NotificationHandler
	sessionH       *handler.SessionHandler
	organizerStore *store.OrganizerStore
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	hub := ws.NewHub(logger.With("component", "websocket"), m)

	ingredientStore := store.NewIngredientStore(db)
	submissionStore := store.NewSubmissionStore(db, cfg.PhoneUnique)
	groceryStore := store.NewGroceryStore(db)
	resourceStore := store.NewKitchenResourceStore(db)
	notificationStore := store.NewNotificationStore(db)
	organizerStore := store.NewOrganizerStore(db)

	notifier := notify.New(notificationStore, hub, m, logger.With("component", "notify"))

	return &Server{
		cfg:            cfg,
		hub:            hub,
		registry:       registry,
		metrics:        m,
		ingredientH:    handler.NewIngredientHandler(ingredientStore, cfg.SearchLimits(), cfg.DefaultSearchMode(), cfg.CatalogMaxAge, logger.With("component", "ingredient")),
		submissionH:    handler.NewSubmissionHandler(submissionStore, notifier, logger.With("component", "submission")),
		groceryH:       handler.NewGroceryHandler(groceryStore, ingredientStore, notifier, logger.With("component", "grocery")),
		resourceH:      handler.NewKitchenResourceHandler(resourceStore, logger.With("component", "kitchen_resource")),
		notificationH:  handler.NewNotificationHandler(notificationStore, cfg.NotificationLimit, logger.With("component", "notification")),
		sessionH:       handler.NewSessionHandler(organizerStore, logger.With("component", "session")),
		organizerStore: organizerStore,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// Hub returns the websocket hub for live subscribers.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /up", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /cable", ws.HandleWebSocket(s.hub, s.cfg.CORSOrigins))

	s.registerAPIRoutes(mux)

	var h http.Handler = middleware.Metrics(s.metrics)(mux)
	h = middleware.CORS(s.cfg.CORSOrigins)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.RequestID(h)
	return middleware.Recoverer(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) organizer(h http.HandlerFunc) http.Handler {
	return middleware.RequireOrganizer(s.organizerStore, s.logger.With("component", "auth"))(h)
}

func (s *Server) optionalOrganizer(h http.HandlerFunc) http.Handler {
	return middleware.OptionalOrganizer(s.organizerStore, s.logger.With("component", "auth"))(h)
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.cfg.LoginRateLimit, time.Minute)(h)
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	const api = "/api/v1"

	// Catalog
	mux.HandleFunc("GET "+api+"/ingredients", s.ingredientH.Search)
	mux.HandleFunc("GET "+api+"/ingredients/all", s.ingredientH.All)
	mux.HandleFunc("GET "+api+"/ingredients/{id}", s.ingredientH.Get)

	// Submissions
	mux.HandleFunc("POST "+api+"/submissions", s.submissionH.Create)
	mux.HandleFunc("GET "+api+"/submissions/lookup", s.submissionH.Lookup)
	mux.Handle("PATCH "+api+"/submissions/{id}", s.optionalOrganizer(s.submissionH.Update))
	mux.Handle("GET "+api+"/submissions", s.organizer(s.submissionH.List))
	mux.Handle("GET "+api+"/submissions/{id}", s.organizer(s.submissionH.Get))
	mux.Handle("DELETE "+api+"/submissions/{id}", s.organizer(s.submissionH.Delete))
	mux.Handle("POST "+api+"/submissions/{id}/ingredients", s.organizer(s.submissionH.AddIngredient))
	mux.Handle("PATCH "+api+"/submissions/{id}/ingredients/{ingredient_id}", s.organizer(s.submissionH.SetIngredientQuantity))

	// Grocery list
	mux.Handle("GET "+api+"/grocery_list", s.organizer(s.groceryH.Show))
	mux.Handle("POST "+api+"/grocery_list/items", s.organizer(s.groceryH.AddItem))
	mux.Handle("PATCH "+api+"/grocery_list/{ingredient_id}", s.organizer(s.groceryH.Update))
	mux.Handle("DELETE "+api+"/grocery_list/{ingredient_id}/override", s.organizer(s.groceryH.ClearOverride))

	// Kitchen resources
	mux.HandleFunc("GET "+api+"/kitchen_resources", s.resourceH.List)
	mux.Handle("POST "+api+"/kitchen_resources", s.organizer(s.resourceH.Create))
	mux.Handle("PATCH "+api+"/kitchen_resources/{id}", s.organizer(s.resourceH.Update))
	mux.Handle("DELETE "+api+"/kitchen_resources/{id}", s.organizer(s.resourceH.Delete))

	// Notifications
	mux.Handle("GET "+api+"/notifications", s.organizer(s.notificationH.List))
	mux.Handle("PATCH "+api+"/notifications/mark_all_read", s.organizer(s.notificationH.MarkAllRead))

	// Organizer session
	mux.Handle("POST "+api+"/organizer_session", s.rateLimited(s.sessionH.Login))
	mux.HandleFunc("DELETE "+api+"/organizer_session", s.sessionH.Logout)
}
