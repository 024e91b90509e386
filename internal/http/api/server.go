package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/internal/http/middleware"
	"github.com/nastyazhadan/limit-order-executor/internal/services/order"
)

type Orders interface {
	PlaceOrder(ctx context.Context, params order.PlaceOrderParams) (models.Order, error)
	CancelOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, sender string) []models.Order
	GetOrder(ctx context.Context, id string) (models.Order, error)
}

type Endpoints interface {
	Current() models.Endpoint
	Endpoints() []models.Endpoint
	SwitchEndpoint(url string) models.Endpoint
}

type Projections interface {
	SetProjection(poolID uint64, token string, delta decimal.Decimal)
	ClearProjections()
	Apply(poolID uint64, token string, base decimal.Decimal) decimal.Decimal
	Projections() []models.Projection
	ApplyPool(pool models.PoolInfo) models.PoolInfo
	ProjectAdd(pool models.PoolInfo, amountA, amountB decimal.Decimal) decimal.Decimal
	ProjectRemove(pool models.PoolInfo, shares decimal.Decimal)
}

type Warnings interface {
	List() []models.Warning
}

type Deps struct {
	Orders      Orders
	Endpoints   Endpoints
	Projections Projections
	Warnings    Warnings
	Hub         *Hub
	Gatherer    prometheus.Gatherer
	// Ready reports readiness for /health/ready; nil means always ready.
	Ready func() bool
}

type Options struct {
	AllowedOrigins []string
	JWTSecret      string
}

type Server struct {
	deps    Deps
	router  *mux.Router
	handler http.Handler
}

func NewServer(deps Deps, options Options) *Server {
	if deps.Ready == nil {
		deps.Ready = func() bool { return true }
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		deps:   deps,
		router: mux.NewRouter(),
	}
	s.setupRoutes(options)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler(s.router)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setupRoutes(options Options) {
	s.router.Use(middleware.RequestID, middleware.Logger, middleware.Recovery)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(options.JWTSecret))

	api.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods(http.MethodDelete)

	api.HandleFunc("/endpoints", s.handleListEndpoints).Methods(http.MethodGet)
	api.HandleFunc("/endpoints/current", s.handleSwitchEndpoint).Methods(http.MethodPut)

	api.HandleFunc("/projections", s.handleListProjections).Methods(http.MethodGet)
	api.HandleFunc("/projections", s.handleSetProjection).Methods(http.MethodPut)
	api.HandleFunc("/projections", s.handleClearProjections).Methods(http.MethodDelete)
	api.HandleFunc("/projections/add", s.handleProjectAdd).Methods(http.MethodPost)
	api.HandleFunc("/projections/remove", s.handleProjectRemove).Methods(http.MethodPost)
	api.HandleFunc("/projections/{poolId:[0-9]+}/{token}", s.handleApplyProjection).Methods(http.MethodGet)

	api.HandleFunc("/warnings", s.handleListWarnings).Methods(http.MethodGet)

	if s.deps.Hub != nil {
		s.router.Handle("/ws", s.deps.Hub)
	}

	s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/health/live", s.handleLive).Methods(http.MethodGet)
	s.router.HandleFunc("/health/ready", s.handleReady).Methods(http.MethodGet)
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.deps.Ready() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
