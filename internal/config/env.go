package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
// All env vars use BOONLINK_ prefix for namespace isolation.
func (c *Config) applyEnvOverrides() {
	setBoolIfEnv(&c.DemoMode, "BOONLINK_DEMO_MODE")

	// Server config
	setIfEnv(&c.Server.Address, "BOONLINK_SERVER_ADDRESS")
	setIfEnv(&c.Server.RoutePrefix, "BOONLINK_ROUTE_PREFIX")
	setIfEnv(&c.Server.AdminMetricsAPIKey, "BOONLINK_ADMIN_METRICS_API_KEY")

	// Normalize route prefix: ensure it starts with / and doesn't end with /
	if c.Server.RoutePrefix != "" {
		c.Server.RoutePrefix = normalizeRoutePrefix(c.Server.RoutePrefix)
	}

	// Chain config
	setInt64IfEnv(&c.Chain.ChainID, "BOONLINK_CHAIN_ID")
	setIfEnv(&c.Chain.VerifyingContract, "BOONLINK_VERIFYING_CONTRACT")
	setIfEnv(&c.Chain.RPCURL, "BOONLINK_RPC_URL")
	setIfEnv(&c.Chain.CollectionAddress, "BOONLINK_COLLECTION_ADDRESS")

	// Quote config
	setIfEnv(&c.Quote.DefaultToken, "BOONLINK_DEFAULT_TOKEN")
	setFloatIfEnv(&c.Quote.MaxAmountTHB, "BOONLINK_MAX_AMOUNT_THB")
	setIfEnv(&c.Quote.RateSource, "BOONLINK_RATE_SOURCE")
	setIfEnv(&c.Quote.ExchangeAPIURL, "BOONLINK_EXCHANGE_API_URL")
	setDurationIfEnv(&c.Quote.QuoteTTL, "BOONLINK_QUOTE_TTL")

	// Settlement config
	setIfEnv(&c.Settlement.SettlementAPIURL, "BOONLINK_SETTLEMENT_API_URL")

	// Queue config
	setBoolIfEnv(&c.Queue.Enabled, "BOONLINK_OFFLINE_QUEUE_ENABLED")
	setIfEnv(&c.Queue.Backend, "BOONLINK_QUEUE_BACKEND")
	setIfEnv(&c.Queue.FilePath, "BOONLINK_QUEUE_FILE_PATH")
	setIfEnv(&c.Queue.PostgresURL, "BOONLINK_QUEUE_POSTGRES_URL")
	setIfEnv(&c.Queue.MongoDBURL, "BOONLINK_QUEUE_MONGODB_URL")
	setIfEnv(&c.Queue.MongoDBDatabase, "BOONLINK_QUEUE_MONGODB_DATABASE")
	setDurationIfEnv(&c.Queue.TickInterval, "BOONLINK_QUEUE_TICK_INTERVAL")

	// Storage config
	setIfEnv(&c.Storage.Backend, "BOONLINK_STORAGE_BACKEND")
	setIfEnv(&c.Storage.PostgresURL, "BOONLINK_STORAGE_POSTGRES_URL")
	setIfEnv(&c.Storage.MongoDBURL, "BOONLINK_STORAGE_MONGODB_URL")
	setIfEnv(&c.Storage.MongoDBDatabase, "BOONLINK_STORAGE_MONGODB_DATABASE")
	setIfEnv(&c.Storage.FilePath, "BOONLINK_STORAGE_FILE_PATH")

	// API Key config
	setBoolIfEnv(&c.APIKey.Enabled, "BOONLINK_API_KEY_ENABLED")
	// Load API keys (BOONLINK_API_KEY_*)
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "BOONLINK_API_KEY_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimPrefix(parts[0], "BOONLINK_API_KEY_")
		if name == "" || name == "ENABLED" {
			continue
		}
		if c.APIKey.Keys == nil {
			c.APIKey.Keys = make(map[string]string)
		}
		// BOONLINK_API_KEY_PARTNER_ABC123=partner -> key: "partner_abc123", tier: "partner"
		key := strings.ToLower(name)
		tier := strings.TrimSpace(parts[1])
		c.APIKey.Keys[key] = tier
	}
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
// Uses time.ParseDuration to parse values like "5m", "120s", "1h30m".
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

// setInt64IfEnv sets an int64 pointer from an environment variable.
func setInt64IfEnv(target *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = parsed
		}
	}
}

// setFloatIfEnv sets a float64 pointer from an environment variable.
func setFloatIfEnv(target *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*target = parsed
		}
	}
}

// normalizeRoutePrefix ensures the prefix starts with / and doesn't end with /.
// Examples: "api" -> "/api", "/api/" -> "/api", "boonlink-bridge" -> "/boonlink-bridge"
func normalizeRoutePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return prefix
}
