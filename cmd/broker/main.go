package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/nexfreight/broker/internal/agents"
	"github.com/nexfreight/broker/internal/api"
	"github.com/nexfreight/broker/internal/audit"
	"github.com/nexfreight/broker/internal/control"
	"github.com/nexfreight/broker/internal/dispute"
	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
	"github.com/nexfreight/broker/internal/failover"
	"github.com/nexfreight/broker/internal/hub"
	"github.com/nexfreight/broker/internal/ledger"
	"github.com/nexfreight/broker/internal/persuasion"
	"github.com/nexfreight/broker/internal/profile"
	"github.com/nexfreight/broker/internal/provisioning"
	"github.com/nexfreight/broker/internal/quota"
	"github.com/nexfreight/broker/internal/ratelimit"
	"github.com/nexfreight/broker/internal/resilience"
	"github.com/nexfreight/broker/internal/resourcemonitor"
	"github.com/nexfreight/broker/internal/revenue"
	"github.com/nexfreight/broker/internal/saga"
	"github.com/nexfreight/broker/internal/sentiment"
	"github.com/nexfreight/broker/internal/store"
	"github.com/nexfreight/broker/pkg/config"
	"github.com/nexfreight/broker/pkg/logger"
	"github.com/nexfreight/broker/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logger.New(cfg.Logging)

	st, db, closeDB := openStore(cfg, log)
	if closeDB != nil {
		defer closeDB()
	}

	bus := eventbus.New()
	_ = eventbus.NewSwarmOrchestrator(bus)
	breakers := resilience.NewRegistry(resilience.DefaultConfig(), metrics.Registry)
	for dep, bc := range cfg.Resilience.Breakers {
		breakers.GetWithConfig(dep, resilience.Config{
			FailureThreshold: bc.FailureThreshold,
			RecoveryTimeout:  time.Duration(bc.RecoveryTimeoutSec) * time.Second,
			HalfOpenProbes:   bc.HalfOpenProbes,
		})
	}

	quotaLedger := quota.New(newQuotaProvider(cfg, log), cfg.Cascade.FallbackThresholdPercent)
	cascade := sentiment.New(sentiment.Config{
		Breakers:      breakers,
		Quota:         quotaLedger,
		Store:         st.Sentiments,
		Bus:           bus,
		Log:           log,
		RemoteTimeout: time.Duration(cfg.Cascade.RemoteTimeoutMillis) * time.Millisecond,
		LocalTimeout:  time.Duration(cfg.Cascade.LocalTimeoutMillis) * time.Millisecond,
	})

	profileStore := profile.New(st.Profiles)
	persuasionEngine := persuasion.New(persuasion.NewStaticStore())

	sampler := resourcemonitor.New()
	catalog := provisioning.NewStaticCatalog(provisioning.DefaultLevels(cfg.Revenue.DebounceMonths, cfg.Revenue.SafetyRatioMax))
	activator := provisioning.NewLogActivator(log)
	orchestrator := provisioning.New(catalog, activator, sampler, bus, cfg.Revenue.SafetyRatioMax)

	payments := revenue.NewMemoryPaymentSource()
	revenueMonitor := revenue.New(payments, catalog, orchestrator, bus)

	ledgerClient := ledger.NewHTTPClient(cfg.Ledger.BaseURL, cfg.Ledger.APIKey, time.Duration(cfg.Ledger.TimeoutSec)*time.Second)

	var journal saga.Journal = saga.NewMemoryJournal()
	sagaCoordinator := saga.New(journal, log)

	emergencyStop := &control.EmergencyStop{}

	failoverAgent := failover.New(failover.Config{
		CheckInterval:     time.Duration(cfg.Failover.CheckIntervalSec) * time.Second,
		KPIMinPercent:     cfg.Failover.KPIMinPercent,
		ReplacementMinPct: cfg.Failover.ReplacementMinPercent,
		AutoLimitAmount:   cfg.Failover.AutoLimitAmount,
		GracePeriod:       time.Duration(cfg.Failover.GracePeriodHours) * time.Hour,
	}, st, ledgerClient, sagaCoordinator, bus, log.WithField("component", "failover"), emergencyStop)

	disputeAgent := dispute.New(dispute.Config{
		AutoResolveConfidence: cfg.Dispute.AutoResolveConfidence,
		AutoResolveLimit:      cfg.Dispute.AutoResolveLimitAmnt,
		WeightSignature:       cfg.Dispute.WeightSignature,
		WeightDelivery:        cfg.Dispute.WeightDelivery,
		WeightDamage:          cfg.Dispute.WeightDamage,
		FraudReviewSuspension: dispute.DefaultConfig().FraudReviewSuspension,
	}, st, dispute.NewNullEvidenceGatherer(), ledgerClient, sagaCoordinator, bus, log.WithField("component", "dispute"), emergencyStop)

	bus.Subscribe("dispute.opened", func(ctx context.Context, evt eventbus.Event) {
		shipmentID, ok := evt.Payload.(string)
		if !ok {
			return
		}
		if err := disputeAgent.Handle(ctx, shipmentID); err != nil {
			log.WithError(err).WithField("shipment_id", shipmentID).Error("dispute handling failed")
		}
	})

	agentRegistry := agents.New(bus)
	registerAgents(agentRegistry, disputeAgent)

	hubCfg := hub.Config{
		BufferSize:     cfg.Hub.BufferSize,
		ReplayCount:    cfg.Hub.ReplayLastN,
		HeartbeatEvery: time.Duration(cfg.Hub.HeartbeatSec) * time.Second,
		HeartbeatGrace: 2 * time.Duration(cfg.Hub.HeartbeatSec) * time.Second,
	}
	commandHub := hub.New(hubCfg, bus, log.WithField("component", "hub"))

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MaxKeys:           10000,
		CleanupInterval:   5 * time.Minute,
	})
	defer limiter.Stop()

	var auditSink audit.Sink
	if db != nil {
		auditSink = audit.NewPostgresSink(db)
	}
	auditLog := audit.New(1000, auditSink, nil)

	sessions := api.NewSessionManager(
		[]byte(cfg.Auth.JWTSecret), "nexfreight-broker",
		time.Duration(cfg.Auth.SessionTTLMinutes)*time.Minute, 7*24*time.Hour,
	)
	users := api.NewMemoryUserStore(bootstrapUsers()...)

	_, router := api.New(api.Deps{
		Store: st, Sessions: sessions, Users: users, Limiter: limiter,
		Audit: auditLog, Breakers: breakers, Sentiment: cascade, Profiles: profileStore,
		Persuasion: persuasionEngine,
		Agents: agentRegistry, Revenue: revenueMonitor, Provisioning: orchestrator, Failover: failoverAgent,
		Bus: bus, Hub: commandHub, EmergencyStop: emergencyStop, Log: log.Logger,
	})

	if err := failoverAgent.Start(); err != nil {
		log.WithError(err).Fatal("start failover agent")
	}
	defer failoverAgent.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", router)

	addr := serverAddr(cfg)
	srv := &http.Server{Addr: addr, Handler: metrics.Instrument(mux)}

	go func() {
		log.WithField("addr", addr).Info("broker listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
}

// openStore connects to Postgres when a DSN is configured, running
// migrations and backing Shipments with the durable repository; every other
// aggregate currently has only an in-memory implementation (§9), so it is
// always served from the in-memory store regardless of DSN.
func openStore(cfg *config.Config, log *logger.Logger) (*store.Store, *sqlx.DB, func()) {
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		log.Info("no database DSN configured; running with in-memory storage")
		return store.NewMemoryStore(), nil, nil
	}

	db, err := sqlx.Connect(cfg.Database.Driver, dsn)
	if err != nil {
		log.WithError(err).Fatal("connect to postgres")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifeSecs) * time.Second)

	if cfg.Database.MigrateOnStart {
		if err := store.Migrate(db); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}
	}

	memStore := store.NewMemoryStore()
	st := &store.Store{
		Shipments:  store.NewPostgresShipments(db),
		Carriers:   memStore.Carriers,
		Escrows:    memStore.Escrows,
		Disputes:   memStore.Disputes,
		Leads:      memStore.Leads,
		Sentiments: memStore.Sentiments,
		Profiles:   memStore.Profiles,
	}
	return st, db, func() { _ = db.Close() }
}

// newQuotaProvider backs the QuotaLedger with a Redis-shared usage provider
// when REDIS_ADDR is configured, so multiple broker instances see the same
// dependency-consumption counters; with no address configured the ledger
// falls back to its conservative no-provider behavior.
func newQuotaProvider(cfg *config.Config, log *logger.Logger) quota.Provider {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Info("no redis address configured; quota ledger runs without a shared provider")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.Redis.DB})
	return quota.NewRedisUsageProvider(client)
}

func serverAddr(cfg *config.Config) string {
	host := strings.TrimSpace(cfg.Server.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	return host + ":" + itoa(port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// registerAgents populates the AgentRegistry with the fixed eight agent
// kinds. FailoverAgent and DisputeAgent delegate to the real
// workers; the remaining funnel stages are not backed by dedicated
// automation in this deployment and are registered as standby stubs whose
// activity feed still satisfies the uniform contract.
func registerAgents(reg *agents.Registry, disputeAgent *dispute.Agent) {
	reg.Register(agents.NewFunnelAgent("agent-acquisition", domain.AgentAcquisition, "Acquisition", nil))
	reg.Register(agents.NewFunnelAgent("agent-qualification", domain.AgentQualification, "Qualification", nil))
	reg.Register(agents.NewFunnelAgent("agent-sourcing", domain.AgentSourcing, "Sourcing", nil))
	reg.Register(agents.NewFunnelAgent("agent-closing", domain.AgentClosing, "Closing", nil))
	reg.Register(agents.NewFunnelAgent("agent-operations", domain.AgentOperations, "Operations", nil))
	reg.Register(agents.NewDelegateAgent("agent-failover", domain.AgentFailover, "Failover (PAOLO)", nil))
	reg.Register(agents.NewDelegateAgent("agent-dispute-resolution", domain.AgentDisputeResolution, "Dispute Resolution (GIULIA)", func(ctx context.Context, payload any) error {
		shipmentID, _ := payload.(string)
		return disputeAgent.Handle(ctx, shipmentID)
	}))
	reg.Register(agents.NewFunnelAgent("agent-retention", domain.AgentRetention, "Retention", nil))
}

// bootstrapUsers seeds the operator accounts used until a real user
// management surface exists. Passwords must be rotated before production
// use; this mirrors the teacher's own "API tokens via flag/env" bootstrap
// shape, adapted from static tokens to hashed operator accounts.
func bootstrapUsers() []api.User {
	adminHash, _ := api.HashPassword(envOr("BROKER_ADMIN_PASSWORD", "change-me-admin"))
	opHash, _ := api.HashPassword(envOr("BROKER_OPERATOR_PASSWORD", "change-me-operator"))
	viewerHash, _ := api.HashPassword(envOr("BROKER_VIEWER_PASSWORD", "change-me-viewer"))
	return []api.User{
		{ID: "u-admin", Email: "admin@nexfreight.local", PasswordHash: adminHash, Role: api.RoleAdmin},
		{ID: "u-operator", Email: "operator@nexfreight.local", PasswordHash: opHash, Role: api.RoleOperator},
		{ID: "u-viewer", Email: "viewer@nexfreight.local", PasswordHash: viewerHash, Role: api.RoleViewer},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
