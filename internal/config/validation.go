package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boonlink/bridge/internal/money"
)

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Chain.ChainID == 0 {
		c.Chain.ChainID = 56
	}
	if c.Chain.Confirmations == 0 {
		c.Chain.Confirmations = 3
	}
	if c.Chain.ConfirmationTimeout.Duration == 0 {
		c.Chain.ConfirmationTimeout = Duration{Duration: 60 * time.Second}
	}

	if c.Quote.DefaultToken == "" {
		c.Quote.DefaultToken = "USDT"
	}
	if c.Quote.MaxAmountTHB <= 0 {
		c.Quote.MaxAmountTHB = 10000
	}
	if c.Quote.RateSource == "" {
		c.Quote.RateSource = "mock"
	}
	if c.Quote.QuoteTTL.Duration == 0 {
		c.Quote.QuoteTTL = Duration{Duration: 180 * time.Second}
	}

	if c.Queue.Backend == "" {
		c.Queue.Backend = "memory"
	}
	if c.Queue.TickInterval.Duration == 0 {
		c.Queue.TickInterval = Duration{Duration: 10 * time.Second}
	}
	if c.Queue.MaxRetries == 0 {
		c.Queue.MaxRetries = 5
	}
	if c.Queue.BaseBackoff.Duration == 0 {
		c.Queue.BaseBackoff = Duration{Duration: 5 * time.Second}
	}
	if c.Queue.MaxBackoff.Duration == 0 {
		c.Queue.MaxBackoff = Duration{Duration: 5 * time.Minute}
	}

	if len(c.NetQuality.Endpoints) == 0 {
		c.NetQuality.Endpoints = []string{
			"https://bsc-dataseed.binance.org",
			"https://api.binance.com/api/v3/ping",
			"https://www.google.com/generate_204",
		}
	}
	if c.NetQuality.Interval.Duration == 0 {
		c.NetQuality.Interval = Duration{Duration: 10 * time.Second}
	}
	if c.NetQuality.ProbeTimeout.Duration == 0 {
		c.NetQuality.ProbeTimeout = Duration{Duration: 5 * time.Second}
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.CleanupAfter.Duration == 0 {
		c.Storage.CleanupAfter = Duration{Duration: 720 * time.Hour}
	}

	// Auto-copy database connection URLs from storage config to queue config,
	// so a shared backend only needs to be configured once.
	if c.Queue.Backend == "postgres" && c.Queue.PostgresURL == "" {
		c.Queue.PostgresURL = c.Storage.PostgresURL
	}
	if c.Queue.Backend == "mongodb" {
		if c.Queue.MongoDBURL == "" {
			c.Queue.MongoDBURL = c.Storage.MongoDBURL
		}
		if c.Queue.MongoDBDatabase == "" {
			c.Queue.MongoDBDatabase = c.Storage.MongoDBDatabase
		}
	}

	return c.validate()
}

// validate checks that required configuration fields are set correctly.
func (c *Config) validate() error {
	var errs []string

	if !c.DemoMode {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain.rpc_url is required unless demo_mode is enabled")
		}
		if c.Chain.CollectionAddress == "" {
			errs = append(errs, "chain.collection_address is required unless demo_mode is enabled")
		}
	}

	switch strings.ToUpper(c.Quote.DefaultToken) {
	case "USDT", "USDC", "ETH":
	default:
		errs = append(errs, fmt.Sprintf("quote.default_token %q is not one of USDT, USDC, ETH", c.Quote.DefaultToken))
	}

	switch c.Quote.RateSource {
	case "mock", "thailocal", "global":
	default:
		errs = append(errs, fmt.Sprintf("quote.rate_source %q must be one of mock, thailocal, global", c.Quote.RateSource))
	}
	if c.Quote.RateSource != "mock" && c.Quote.ExchangeAPIURL == "" {
		errs = append(errs, fmt.Sprintf("quote.exchange_api_url is required when quote.rate_source is %q", c.Quote.RateSource))
	}

	switch c.Queue.Backend {
	case "memory", "file", "postgres", "mongodb":
	default:
		errs = append(errs, fmt.Sprintf("queue.backend %q must be one of memory, file, postgres, mongodb", c.Queue.Backend))
	}

	switch c.Storage.Backend {
	case "memory", "file", "postgres", "mongodb":
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q must be one of memory, file, postgres, mongodb", c.Storage.Backend))
	}

	if c.Chain.CollectionAddress != "" {
		if err := validateCollectionAddress(c.Chain.CollectionAddress); err != nil {
			errs = append(errs, fmt.Sprintf("chain.collection_address validation failed: %v", err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ApplyPostgresPoolSettings applies connection pool settings to a database connection.
// If pool config is not specified, applies sensible defaults.
func ApplyPostgresPoolSettings(db *sql.DB, pool PostgresPoolConfig) {
	maxOpen := pool.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}

	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}

	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	maxLifetime := pool.ConnMaxLifetime.Duration
	if maxLifetime <= 0 {
		maxLifetime = 5 * time.Minute
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}

// validateCollectionAddress validates that the configured collection address
// is a well-formed EVM address, and if it names a known BEP-20 contract
// instead of a wallet, warns via the returned error (callers may choose to
// treat this as fatal).
func validateCollectionAddress(addr string) error {
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return fmt.Errorf("%q is not a well-formed 20-byte hex address", addr)
	}
	if money.IsKnownTokenContract(addr) {
		return fmt.Errorf("%q is a known token contract address, not a wallet — payments would settle into the token contract itself", addr)
	}
	return nil
}
