package api

import (
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/nexfreight/broker/internal/agents"
	"github.com/nexfreight/broker/internal/audit"
	"github.com/nexfreight/broker/internal/control"
	"github.com/nexfreight/broker/internal/eventbus"
	"github.com/nexfreight/broker/internal/failover"
	"github.com/nexfreight/broker/internal/hub"
	"github.com/nexfreight/broker/internal/persuasion"
	"github.com/nexfreight/broker/internal/profile"
	"github.com/nexfreight/broker/internal/provisioning"
	"github.com/nexfreight/broker/internal/ratelimit"
	"github.com/nexfreight/broker/internal/resilience"
	"github.com/nexfreight/broker/internal/revenue"
	"github.com/nexfreight/broker/internal/sentiment"
	"github.com/nexfreight/broker/internal/store"
)

// API bundles every dependency the public facade's handlers need.
// Grounded on the teacher's httpapi.handler bundling shape (internal/app,
// internal/app/auth, internal/platform/database held as fields), widened
// to the broker's full component set.
type API struct {
	store         *store.Store
	sessions      *SessionManager
	users         UserStore
	limiter       *ratelimit.Limiter
	audit         *audit.Log
	breakers      *resilience.Registry
	sentiment     *sentiment.Cascade
	profiles      *profile.Store
	persuasion    *persuasion.Engine
	agents        *agents.Registry
	revenue       *revenue.Monitor
	provisioning  *provisioning.Orchestrator
	failover      *failover.Agent
	bus           *eventbus.Bus
	hub           *hub.Hub
	emergencyStop *control.EmergencyStop
	promotionMode atomic.Bool
	log           logrus.FieldLogger
}

// Deps is the constructor argument bundle; every field is required except
// where noted.
type Deps struct {
	Store         *store.Store
	Sessions      *SessionManager
	Users         UserStore
	Limiter       *ratelimit.Limiter
	Audit         *audit.Log
	Breakers      *resilience.Registry
	Sentiment     *sentiment.Cascade
	Profiles      *profile.Store
	Persuasion    *persuasion.Engine
	Agents        *agents.Registry
	Revenue       *revenue.Monitor
	Provisioning  *provisioning.Orchestrator
	Failover      *failover.Agent
	Bus           *eventbus.Bus
	Hub           *hub.Hub
	EmergencyStop *control.EmergencyStop // may be nil; a fresh one is created
	Log           logrus.FieldLogger
}

// New constructs the API and its chi router.
func New(deps Deps) (*API, chi.Router) {
	if deps.EmergencyStop == nil {
		deps.EmergencyStop = &control.EmergencyStop{}
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	a := &API{
		store: deps.Store, sessions: deps.Sessions, users: deps.Users,
		limiter: deps.Limiter, audit: deps.Audit, breakers: deps.Breakers,
		sentiment: deps.Sentiment, profiles: deps.Profiles, persuasion: deps.Persuasion, agents: deps.Agents,
		revenue: deps.Revenue, provisioning: deps.Provisioning, failover: deps.Failover, bus: deps.Bus,
		hub: deps.Hub, emergencyStop: deps.EmergencyStop, log: deps.Log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public, unauthenticated surface.
	r.Post("/auth/login", a.handleLogin)
	r.Post("/auth/refresh", a.handleRefresh)
	r.Get("/tracking/{code}", a.handleTrackShipment)

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Use(a.rateLimitMiddleware)

		r.Get("/me", a.handleMe)

		r.With(a.requirePermission(PermShipmentRead)).Get("/shipments/{id}", a.handleGetShipment)
		r.With(a.requirePermission(PermShipmentWrite), a.auditMiddleware("create_shipment")).Post("/shipments", a.handleCreateShipment)

		r.With(a.requirePermission(PermCommandCenterRead)).Get("/command-center/agents", a.handleListAgents)
		r.With(a.requirePermission(PermCommandCenterRead)).Get("/command-center/agents/{id}/logs", a.handleAgentLogs)
		r.With(a.requirePermission(PermCommandCenterRead)).Get("/command-center/stream", a.handleCommandCenterStream)

		r.With(a.requirePermission(PermCommandCenterWrite), a.auditMiddleware("change_carrier")).Post("/command/change_carrier", a.handleChangeCarrier)
		r.With(a.requirePermission(PermCommandCenterWrite), a.requireRole(RoleAdmin), a.auditMiddleware("emergency_stop")).Post("/command/emergency_stop", a.handleEmergencyStop)
		r.With(a.requirePermission(PermCommandCenterWrite), a.auditMiddleware("resume")).Post("/command/resume", a.handleResume)
		r.With(a.requirePermission(PermCommandCenterWrite), a.auditMiddleware("veto_agent")).Post("/command/veto_agent", a.handleVetoAgent)
		r.With(a.requirePermission(PermCommandCenterWrite), a.requireRole(RoleAdmin), a.auditMiddleware("force_level")).Post("/command/force_level", a.handleForceLevel)
		r.With(a.requirePermission(PermCommandCenterWrite), a.auditMiddleware("toggle_promotion_mode")).Post("/command/toggle_promotion_mode", a.handleTogglePromotionMode)

		r.With(a.requirePermission(PermSentimentAnalyze)).Post("/sentiment/analyze", a.handleAnalyzeSentiment)

		r.With(a.requirePermission(PermPersuasionSelect)).Post("/persuasion/select", a.handleSelectScript)

		r.With(a.requirePermission(PermDisputeRead)).Get("/disputes/{shipment_id}", a.handleGetDisputeResolution)
		r.With(a.requirePermission(PermDisputeResolve)).Post("/disputes", a.handleOpenDispute)
		r.With(a.requirePermission(PermDisputeResolve), a.auditMiddleware("resolve_dispute")).Post("/disputes/{shipment_id}/resolve", a.handleResolveDispute)

		r.With(a.requirePermission(PermProfileRead)).Get("/leads/{id}/profile", a.handleGetProfile)
		r.With(a.requirePermission(PermProfileRead)).Get("/leads/{id}/profile/similar", a.handleSimilarProfiles)

		r.With(a.requirePermission(PermAdminBreakerReset)).Get("/admin/breakers", a.handleBreakerSnapshot)
		r.With(a.requirePermission(PermAdminBreakerReset), a.auditMiddleware("reset_breaker")).Post("/admin/breakers/{dep}/reset", a.handleResetBreaker)
		r.With(a.requirePermission(PermAdminBreakerReset)).Get("/admin/audit", a.handleRecentAudit)
	})

	return a, r
}
