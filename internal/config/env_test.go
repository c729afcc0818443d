package config

import (
	"os"
	"testing"
	"time"
)

func TestEnvOverrides_ServerConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "BOONLINK_SERVER_ADDRESS overrides default",
			envVars: map[string]string{
				"BOONLINK_SERVER_ADDRESS": ":3000",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != ":3000" {
					t.Errorf("Expected :3000, got %s", cfg.Server.Address)
				}
			},
		},
		{
			name: "BOONLINK_ROUTE_PREFIX override",
			envVars: map[string]string{
				"BOONLINK_ROUTE_PREFIX": "/api",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Server.RoutePrefix != "/api" {
					t.Errorf("Expected /api, got %s", cfg.Server.RoutePrefix)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_ChainConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "BOONLINK_RPC_URL override",
			envVars: map[string]string{
				"BOONLINK_RPC_URL": "https://custom-rpc.bsc.io",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Chain.RPCURL != "https://custom-rpc.bsc.io" {
					t.Errorf("Expected custom RPC URL, got %s", cfg.Chain.RPCURL)
				}
			},
		},
		{
			name: "BOONLINK_COLLECTION_ADDRESS override",
			envVars: map[string]string{
				"BOONLINK_COLLECTION_ADDRESS": "0x1111111111111111111111111111111111111111",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Chain.CollectionAddress != "0x1111111111111111111111111111111111111111" {
					t.Errorf("Expected collection address override, got %s", cfg.Chain.CollectionAddress)
				}
			},
		},
		{
			name: "BOONLINK_CHAIN_ID override",
			envVars: map[string]string{
				"BOONLINK_CHAIN_ID": "97", // BSC testnet
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Chain.ChainID != 97 {
					t.Errorf("Expected chain id 97, got %d", cfg.Chain.ChainID)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_QuoteConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "BOONLINK_QUOTE_TTL duration override (120s)",
			envVars: map[string]string{
				"BOONLINK_QUOTE_TTL": "120s",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				expected := 120 * time.Second
				if cfg.Quote.QuoteTTL.Duration != expected {
					t.Errorf("Expected %v, got %v", expected, cfg.Quote.QuoteTTL.Duration)
				}
			},
		},
		{
			name: "BOONLINK_MAX_AMOUNT_THB override",
			envVars: map[string]string{
				"BOONLINK_MAX_AMOUNT_THB": "25000",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Quote.MaxAmountTHB != 25000 {
					t.Errorf("Expected 25000, got %v", cfg.Quote.MaxAmountTHB)
				}
			},
		},
		{
			name: "BOONLINK_RATE_SOURCE override",
			envVars: map[string]string{
				"BOONLINK_RATE_SOURCE": "global",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Quote.RateSource != "global" {
					t.Errorf("Expected global, got %s", cfg.Quote.RateSource)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_QueueConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "BOONLINK_OFFLINE_QUEUE_ENABLED boolean (false)",
			envVars: map[string]string{
				"BOONLINK_OFFLINE_QUEUE_ENABLED": "false",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Queue.Enabled {
					t.Error("Expected Queue.Enabled to be false")
				}
			},
		},
		{
			name: "BOONLINK_QUEUE_BACKEND override",
			envVars: map[string]string{
				"BOONLINK_QUEUE_BACKEND": "postgres",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.Queue.Backend != "postgres" {
					t.Errorf("Expected postgres, got %s", cfg.Queue.Backend)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_APIKeyConfig(t *testing.T) {
	defer os.Clearenv()

	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
	}{
		{
			name: "BOONLINK_API_KEY_ENABLED boolean (true)",
			envVars: map[string]string{
				"BOONLINK_API_KEY_ENABLED": "true",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.APIKey.Enabled {
					t.Error("Expected APIKey.Enabled to be true")
				}
			},
		},
		{
			name: "BOONLINK_API_KEY_ENABLED boolean (false)",
			envVars: map[string]string{
				"BOONLINK_API_KEY_ENABLED": "false",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.APIKey.Enabled {
					t.Error("Expected APIKey.Enabled to be false")
				}
			},
		},
		{
			name: "BOONLINK_API_KEY_* env vars create key-tier mappings",
			envVars: map[string]string{
				"BOONLINK_API_KEY_ENABLED":        "true",
				"BOONLINK_API_KEY_PARTNER_ABC123": "partner",
				"BOONLINK_API_KEY_ENTERPRISE_XYZ": "enterprise",
				"BOONLINK_API_KEY_PRO_TEST":       "pro",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.APIKey.Enabled {
					t.Error("Expected APIKey.Enabled to be true")
				}
				if len(cfg.APIKey.Keys) != 3 {
					t.Errorf("Expected 3 API keys, got %d", len(cfg.APIKey.Keys))
				}
				if cfg.APIKey.Keys["partner_abc123"] != "partner" {
					t.Errorf("Expected partner_abc123=partner, got %s", cfg.APIKey.Keys["partner_abc123"])
				}
				if cfg.APIKey.Keys["enterprise_xyz"] != "enterprise" {
					t.Errorf("Expected enterprise_xyz=enterprise, got %s", cfg.APIKey.Keys["enterprise_xyz"])
				}
				if cfg.APIKey.Keys["pro_test"] != "pro" {
					t.Errorf("Expected pro_test=pro, got %s", cfg.APIKey.Keys["pro_test"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := defaultConfig()
			cfg.applyEnvOverrides()
			tt.checkFunc(t, cfg)
		})
	}
}

func TestEnvOverrides_DemoMode(t *testing.T) {
	defer os.Clearenv()
	os.Clearenv()
	os.Setenv("BOONLINK_DEMO_MODE", "1")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()
	if !cfg.DemoMode {
		t.Error("Expected DemoMode to be true for '1'")
	}
}
