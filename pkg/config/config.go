// Package config loads the broker's configuration record. Recognized keys
// are enumerated here; anything else is rejected at load time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nexfreight/broker/pkg/logger"
)

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `json:"host" env:"SERVER_HOST"`
	Port int    `json:"port" env:"SERVER_PORT"`
}

// DatabaseConfig controls the relational store.
type DatabaseConfig struct {
	Driver          string `json:"driver" env:"DATABASE_DRIVER"`
	DSN             string `json:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `json:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifeSecs int    `json:"conn_max_lifetime_s" env:"DATABASE_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool   `json:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START"`
}

// RedisConfig controls the quota-cache and breaker-state-mirror backend.
type RedisConfig struct {
	Addr string `json:"addr" env:"REDIS_ADDR"`
	DB   int    `json:"db" env:"REDIS_DB"`
}

// AuthConfig controls the public API facade's session and 2FA handling.
type AuthConfig struct {
	JWTSecret          string `json:"jwt_secret" env:"AUTH_JWT_SECRET"`
	SessionTTLMinutes  int    `json:"session_ttl_minutes" env:"AUTH_SESSION_TTL_MINUTES"`
	TwoFactorRequired  bool   `json:"two_factor_required" env:"AUTH_2FA_REQUIRED"`
	TwoFactorStepSecs  int    `json:"two_factor_step_seconds" env:"AUTH_2FA_STEP_SECONDS"`
	SecretEncryptionKy string `json:"secret_encryption_key" env:"SECRET_ENCRYPTION_KEY"`
}

// LedgerConfig addresses the external ledger collaborator (§6).
type LedgerConfig struct {
	BaseURL    string `json:"base_url" env:"LEDGER_BASE_URL"`
	APIKey     string `json:"api_key" env:"LEDGER_API_KEY"`
	TimeoutSec int    `json:"timeout_s" env:"LEDGER_TIMEOUT_SECONDS"`
}

// BreakerConfig is the per-dependency tuning applied by the resilience
// registry (breaker.<dep>.failure_threshold / recovery_timeout_s).
type BreakerConfig struct {
	FailureThreshold   int `json:"failure_threshold"`
	RecoveryTimeoutSec int `json:"recovery_timeout_s"`
	HalfOpenProbes     int `json:"half_open_probe_count"`
}

// ResilienceConfig maps dependency name -> breaker tuning.
type ResilienceConfig struct {
	Breakers map[string]BreakerConfig `json:"breakers"`
}

// CascadeConfig controls the sentiment cascade's quota/fallback behavior.
type CascadeConfig struct {
	RemoteProsodyQuotaLimit  int     `json:"remote_prosody_quota_limit" env:"REMOTE_PROSODY_QUOTA_LIMIT"`
	FallbackThresholdPercent float64 `json:"remote_prosody_fallback_threshold_pct" env:"REMOTE_PROSODY_FALLBACK_THRESHOLD_PCT"`
	RemoteTimeoutMillis      int     `json:"remote_timeout_ms" env:"CASCADE_REMOTE_TIMEOUT_MS"`
	LocalTimeoutMillis       int     `json:"local_timeout_ms" env:"CASCADE_LOCAL_TIMEOUT_MS"`
}

// FailoverConfig controls FailoverAgent ("PAOLO").
type FailoverConfig struct {
	CheckIntervalSec    int     `json:"check_interval_s" env:"FAILOVER_CHECK_INTERVAL_S"`
	KPIMinPercent        float64 `json:"kpi_min_pct" env:"FAILOVER_KPI_MIN_PCT"`
	ReplacementMinPercent float64 `json:"replacement_min_pct" env:"FAILOVER_REPLACEMENT_MIN_PCT"`
	AutoLimitAmount      float64 `json:"auto_limit_amount" env:"FAILOVER_AUTO_LIMIT_AMOUNT"`
	GracePeriodHours     int     `json:"grace_period_hours" env:"FAILOVER_GRACE_PERIOD_HOURS"`
}

// DisputeConfig controls DisputeAgent ("GIULIA").
type DisputeConfig struct {
	AutoResolveConfidence float64 `json:"auto_resolve_confidence" env:"DISPUTE_AUTO_RESOLVE_CONFIDENCE"`
	AutoResolveLimitAmnt  float64 `json:"auto_resolve_limit_amount" env:"DISPUTE_AUTO_RESOLVE_LIMIT_AMOUNT"`
	WeightSignature       float64 `json:"weight_signature" env:"DISPUTE_WEIGHT_SIGNATURE"`
	WeightDelivery        float64 `json:"weight_delivery" env:"DISPUTE_WEIGHT_DELIVERY"`
	WeightDamage          float64 `json:"weight_damage" env:"DISPUTE_WEIGHT_DAMAGE"`
}

// RevenueConfig controls RevenueMonitor / ProvisioningOrchestrator.
type RevenueConfig struct {
	DebounceMonths  map[string]int `json:"debounce_months"`
	SafetyRatioMax  float64        `json:"safety_ratio_max" env:"LEVEL_SAFETY_RATIO_MAX"`
	TickIntervalSec int            `json:"tick_interval_s" env:"REVENUE_TICK_INTERVAL_S"`
}

// HubConfig controls the CommandCenterHub.
type HubConfig struct {
	BufferSize    int `json:"buffer_size" env:"HUB_BUFFER_SIZE"`
	HeartbeatSec  int `json:"heartbeat_s" env:"HUB_HEARTBEAT_S"`
	ReplayLastN   int `json:"replay_last_n" env:"HUB_REPLAY_LAST_N"`
}

// RateLimitConfig is the default token-bucket shape; per-endpoint overrides
// live in code (§6 table) since they are fixed by the API contract.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int     `json:"burst" env:"RATE_LIMIT_BURST"`
}

// Config is the top-level, explicit configuration record (§9: "global
// settings become an explicit config record").
type Config struct {
	Server     ServerConfig         `json:"server"`
	Database   DatabaseConfig       `json:"database"`
	Redis      RedisConfig          `json:"redis"`
	Logging    logger.LoggingConfig `json:"logging"`
	Auth       AuthConfig           `json:"auth"`
	Ledger     LedgerConfig         `json:"ledger"`
	Resilience ResilienceConfig     `json:"resilience"`
	Cascade    CascadeConfig        `json:"cascade"`
	Failover   FailoverConfig       `json:"failover"`
	Dispute    DisputeConfig        `json:"dispute"`
	Revenue    RevenueConfig        `json:"revenue"`
	Hub        HubConfig            `json:"hub"`
	RateLimit  RateLimitConfig      `json:"rate_limit"`
}

// New returns a configuration populated with the spec's documented defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifeSecs: 300,
			MigrateOnStart:  true,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Logging: logger.LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "broker",
		},
		Auth: AuthConfig{
			SessionTTLMinutes: 60,
			TwoFactorRequired: true,
			TwoFactorStepSecs: 30,
		},
		Ledger: LedgerConfig{TimeoutSec: 10},
		Resilience: ResilienceConfig{
			Breakers: map[string]BreakerConfig{
				"remote_prosody": {FailureThreshold: 3, RecoveryTimeoutSec: 60, HalfOpenProbes: 2},
				"local_llm":      {FailureThreshold: 3, RecoveryTimeoutSec: 30, HalfOpenProbes: 2},
				"ledger":         {FailureThreshold: 3, RecoveryTimeoutSec: 30, HalfOpenProbes: 2},
			},
		},
		Cascade: CascadeConfig{
			RemoteProsodyQuotaLimit:  10000,
			FallbackThresholdPercent: 90,
			RemoteTimeoutMillis:      5000,
			LocalTimeoutMillis:       3000,
		},
		Failover: FailoverConfig{
			CheckIntervalSec:      300,
			KPIMinPercent:         90,
			ReplacementMinPercent: 95,
			AutoLimitAmount:       10000,
			GracePeriodHours:      24,
		},
		Dispute: DisputeConfig{
			AutoResolveConfidence: 85,
			AutoResolveLimitAmnt:  5000,
			WeightSignature:       0.4,
			WeightDelivery:        0.4,
			WeightDamage:          0.2,
		},
		Revenue: RevenueConfig{
			DebounceMonths:  map[string]int{"L1": 1, "L2": 2, "L3": 2, "L4": 3},
			SafetyRatioMax:  0.90,
			TickIntervalSec: 3600,
		},
		Hub: HubConfig{BufferSize: 256, HeartbeatSec: 30, ReplayLastN: 50},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200},
	}
}

// Load loads configuration from an optional YAML file then overlays
// environment variables (§9: env + file, env wins).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "configs/broker.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// Strict decoding: unknown keys fail the load (§9).
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}
