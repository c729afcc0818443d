package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		DemoMode: false,
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  Duration{Duration: 15 * time.Second},
			WriteTimeout: Duration{Duration: 15 * time.Second},
			IdleTimeout:  Duration{Duration: 60 * time.Second},
		},
		Chain: ChainConfig{
			ChainID:             56,
			Confirmations:       3,
			ConfirmationTimeout: Duration{Duration: 60 * time.Second},
		},
		Quote: QuoteConfig{
			DefaultToken: "USDT",
			MaxAmountTHB: 10000,
			RateSource:   "mock",
			QuoteTTL:     Duration{Duration: 180 * time.Second},
		},
		Queue: QueueConfig{
			Enabled:      true,
			Backend:      "memory",
			TickInterval: Duration{Duration: 10 * time.Second},
			MaxRetries:   5,
			BaseBackoff:  Duration{Duration: 5 * time.Second},
			MaxBackoff:   Duration{Duration: 5 * time.Minute},
		},
		NetQuality: NetQualityConfig{
			Endpoints: []string{
				"https://bsc-dataseed.binance.org",
				"https://api.binance.com/api/v3/ping",
				"https://www.google.com/generate_204",
			},
			Interval:     Duration{Duration: 10 * time.Second},
			ProbeTimeout: Duration{Duration: 5 * time.Second},
		},
		RateLimit: RateLimitConfig{
			// Generous limits - designed to prevent spam, not restrict legitimate use
			GlobalEnabled:    true,
			GlobalLimit:      1000,
			GlobalWindow:     Duration{Duration: 1 * time.Minute},
			PerWalletEnabled: true,
			PerWalletLimit:   60,
			PerWalletWindow:  Duration{Duration: 1 * time.Minute},
			PerIPEnabled:     true,
			PerIPLimit:       120,
			PerIPWindow:      Duration{Duration: 1 * time.Minute},
		},
		APIKey: APIKeyConfig{
			Enabled: false,
			Keys:    make(map[string]string),
		},
		Storage: StorageConfig{
			CleanupAfter: Duration{Duration: 720 * time.Hour},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled: true,
			Blockchain: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.5,
				MinRequests:         10,
			},
			Exchange: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.5,
				MinRequests:         10,
			},
			Settlement: BreakerServiceConfig{
				MaxRequests:         5,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 60 * time.Second}, // settlement gateways see higher latency
				ConsecutiveFailures: 10,
				FailureRatio:        0.7,
				MinRequests:         20,
			},
		},
	}
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}
