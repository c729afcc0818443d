package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	DemoMode       bool                 `yaml:"demo_mode"` // run entirely on mock capabilities, no live network calls
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Chain          ChainConfig          `yaml:"chain"`
	Quote          QuoteConfig          `yaml:"quote"`
	Settlement     SettlementConfig     `yaml:"settlement"`
	Queue          QueueConfig          `yaml:"queue"`
	NetQuality     NetQualityConfig     `yaml:"net_quality"`
	Storage        StorageConfig        `yaml:"storage"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	APIKey         APIKeyConfig         `yaml:"api_key"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout         Duration `yaml:"read_timeout"`
	WriteTimeout        Duration `yaml:"write_timeout"`
	IdleTimeout         Duration `yaml:"idle_timeout"`
	CORSAllowedOrigins  []string `yaml:"cors_allowed_origins"`
	RoutePrefix         string   `yaml:"route_prefix"`          // optional prefix for all routes (e.g., "/api", "/bridge")
	AdminMetricsAPIKey  string   `yaml:"admin_metrics_api_key"` // optional API key to protect /metrics endpoint (leave empty to disable protection)
}

// ChainConfig holds the BSC/EVM settlement chain configuration.
type ChainConfig struct {
	ChainID            int64  `yaml:"chain_id"`            // 56 for BSC mainnet
	VerifyingContract  string `yaml:"verifying_contract"`  // EIP-712 domain verifying contract, defaults to zero address
	RPCURL             string `yaml:"rpc_url"`              // BSC JSON-RPC endpoint used by the blockchain capability
	CollectionAddress  string `yaml:"collection_address"`   // address that receives settled transfers
	Confirmations      uint64 `yaml:"confirmations"`        // confirmations required before a transfer is considered final (default: 3)
	ConfirmationTimeout Duration `yaml:"confirmation_timeout"` // max wait for confirmations (default: 60s)
}

// QuoteConfig holds the quote engine's rate-source and limit configuration.
type QuoteConfig struct {
	DefaultToken     string   `yaml:"default_token"`      // USDT, USDC, or ETH
	MaxAmountTHB     float64  `yaml:"max_amount_thb"`      // per-quote ceiling in THB (default: 10000)
	RateSource       string   `yaml:"rate_source"`         // "mock", "thailocal", or "global"
	ExchangeAPIURL   string   `yaml:"exchange_api_url"`    // upstream rate provider, required for thailocal/global
	QuoteTTL         Duration `yaml:"quote_ttl"`           // how long a quote remains confirmable (default: 180s)
}

// SettlementConfig holds the settlement gateway configuration.
type SettlementConfig struct {
	SettlementAPIURL string `yaml:"settlement_api_url"` // upstream settlement gateway, empty uses the mock
}

// QueueConfig holds the offline payment queue's persistence and retry policy.
type QueueConfig struct {
	Enabled         bool     `yaml:"enabled"`           // offlineQueueEnabled
	Backend         string   `yaml:"backend"`           // "memory", "file", "postgres", or "mongodb"
	FilePath        string   `yaml:"file_path"`         // path to JSON file for file backend
	PostgresURL     string   `yaml:"postgres_url"`
	MongoDBURL      string   `yaml:"mongodb_url"`
	MongoDBDatabase string   `yaml:"mongodb_database"`
	TickInterval    Duration `yaml:"tick_interval"`     // processor poll interval (default: 10s)
	MaxRetries      int      `yaml:"max_retries"`       // retries before an item is marked FAILED (default: 5)
	BaseBackoff     Duration `yaml:"base_backoff"`      // backoff base (default: 5s)
	MaxBackoff      Duration `yaml:"max_backoff"`       // backoff ceiling (default: 5m)
}

// NetQualityConfig holds the network-quality detector's probing configuration.
type NetQualityConfig struct {
	Endpoints    []string `yaml:"endpoints"`     // probe targets, default three well-known endpoints
	Interval     Duration `yaml:"interval"`       // probe cadence (default: 10s)
	ProbeTimeout Duration `yaml:"probe_timeout"`  // per-probe timeout (default: 5s)
}

// PostgresPoolConfig holds PostgreSQL connection pool settings.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`    // maximum number of open connections (default: 25)
	MaxIdleConns    int      `yaml:"max_idle_conns"`    // maximum number of idle connections (default: 5)
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"` // maximum lifetime of connections (default: 5m)
}

// StorageConfig holds the order/queue storage backend configuration.
type StorageConfig struct {
	Backend         string              `yaml:"backend"`          // "memory", "postgres", "mongodb", or "file"
	PostgresURL     string              `yaml:"postgres_url"`
	MongoDBURL      string              `yaml:"mongodb_url"`
	MongoDBDatabase string              `yaml:"mongodb_database"`
	FilePath        string              `yaml:"file_path"`
	PostgresPool    PostgresPoolConfig  `yaml:"postgres_pool"`
	CleanupAfter    Duration            `yaml:"cleanup_after"` // CleanupOldOrders default threshold (default: 720h / 30 days)
	SchemaMapping   SchemaMappingConfig `yaml:"schema_mapping"`
}

// SchemaMappingConfig holds table/collection name mappings for custom schemas.
type SchemaMappingConfig struct {
	Orders TableMappingConfig `yaml:"orders"` // payment orders table/collection
	Queue  TableMappingConfig `yaml:"queue"`  // offline queue table/collection
}

// TableMappingConfig defines a single table/collection mapping.
type TableMappingConfig struct {
	TableName string `yaml:"table_name"` // custom table/collection name
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error (default: info)
	Format      string `yaml:"format"`      // json, console (default: json)
	Environment string `yaml:"environment"` // production, staging, development
}

// RateLimitConfig holds rate limiting configuration.
// Provides multi-tier rate limiting to prevent spam while allowing legitimate use.
type RateLimitConfig struct {
	// Global rate limiting (across all users)
	GlobalEnabled bool     `yaml:"global_enabled"` // enable global rate limiting
	GlobalLimit   int      `yaml:"global_limit"`   // requests allowed per global window
	GlobalWindow  Duration `yaml:"global_window"`  // time window for global limit

	// Per-wallet rate limiting (identified by X-Wallet header)
	PerWalletEnabled bool     `yaml:"per_wallet_enabled"`
	PerWalletLimit   int      `yaml:"per_wallet_limit"`
	PerWalletWindow  Duration `yaml:"per_wallet_window"`

	// Per-IP rate limiting (fallback when wallet not identified)
	PerIPEnabled bool     `yaml:"per_ip_enabled"`
	PerIPLimit   int      `yaml:"per_ip_limit"`
	PerIPWindow  Duration `yaml:"per_ip_window"`
}

// APIKeyConfig holds API key authentication and tier configuration.
// Allows trusted partners to bypass rate limits via X-API-Key header.
type APIKeyConfig struct {
	Enabled bool              `yaml:"enabled"` // enable API key authentication (default: false)
	Keys    map[string]string `yaml:"keys"`    // map of API key -> tier (free, pro, enterprise, partner)
}

// CircuitBreakerConfig holds circuit breaker configuration for external services.
// Prevents cascading failures by failing fast when external services are degraded.
type CircuitBreakerConfig struct {
	Enabled    bool                 `yaml:"enabled"`    // enable circuit breakers (default: true)
	Blockchain BreakerServiceConfig `yaml:"blockchain"` // broadcast/confirmation/balance circuit breaker
	Exchange   BreakerServiceConfig `yaml:"exchange"`   // rate-source circuit breaker
	Settlement BreakerServiceConfig `yaml:"settlement"` // settlement gateway circuit breaker
}

// BreakerServiceConfig configures a circuit breaker for a specific external service.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`         // max requests in half-open state (default: 3)
	Interval            Duration `yaml:"interval"`             // stats reset interval in closed state (default: 60s)
	Timeout             Duration `yaml:"timeout"`              // open state timeout before half-open (default: 30s)
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"` // consecutive failures to trip (default: 5)
	FailureRatio        float64  `yaml:"failure_ratio"`        // failure ratio to trip 0.0-1.0 (default: 0.5)
	MinRequests         uint32   `yaml:"min_requests"`         // minimum requests before checking ratio (default: 10)
}
