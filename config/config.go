package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"skillstreak/address"
	"skillstreak/database"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// TaskDedupPolicy controls how repeated recordTask calls are counted
type TaskDedupPolicy string

const (
	// TaskDedupEveryCall counts every call as a completion
	TaskDedupEveryCall TaskDedupPolicy = "every_call"
	// TaskDedupDaily counts at most one completion per UTC calendar day
	TaskDedupDaily TaskDedupPolicy = "daily"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `toml:"database_url"`
	DatabaseName string `toml:"database_name"`

	// HTTP API
	HTTPAddr string `toml:"http_addr"`

	// Engine policy
	ProgramID               address.Address   `toml:"program_id"`
	TaskDedupPolicy         TaskDedupPolicy   `toml:"task_dedup_policy"`
	EarlyWithdrawPenaltyBps uint16            `toml:"early_withdraw_penalty_bps"`
	MaxFeeBasisPoints       uint16            `toml:"max_fee_basis_points"`
	MarketAuthorities       []address.Address `toml:"market_authorities"` // may force-close any market
	FaucetEnabled           bool              `toml:"faucet_enabled"`

	// Periodic vault conservation audit; zero disables it
	AuditInterval time.Duration `toml:"-"`

	// NATS configuration; empty disables event forwarding
	NATSServers string `toml:"nats_servers"`

	// Redis account cache; empty address disables it
	RedisAddr       string        `toml:"redis_addr"`
	RedisPassword   string        `toml:"redis_password"`
	RedisDB         int           `toml:"redis_db"`
	AccountCacheTTL time.Duration `toml:"-"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `toml:"otel_enabled"`
	OTelServiceName          string `toml:"otel_service_name"`
	OTelExporterType         string `toml:"otel_exporter_type"` // "console", "otlp" or "none"
	OTelOTLPEndpoint         string `toml:"otel_otlp_endpoint"`
	OTelExportIntervalMillis int    `toml:"otel_export_interval_millis"`

	LogLevel    string `toml:"log_level"`
	Environment string `toml:"environment"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL returns the complete database URL
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAuthority reports whether signer may force-close any market
func (c *Config) IsAuthority(signer address.Address) bool {
	for _, a := range c.MarketAuthorities {
		if a == signer {
			return true
		}
	}
	return false
}

// defaults returns the configuration used when nothing is set
func defaults() *Config {
	return &Config{
		HTTPAddr:                 ":8080",
		ProgramID:                address.DefaultProgramID,
		TaskDedupPolicy:          TaskDedupEveryCall,
		EarlyWithdrawPenaltyBps:  1000,
		MaxFeeBasisPoints:        1000,
		AccountCacheTTL:          30 * time.Second,
		AuditInterval:            5 * time.Minute,
		OTelServiceName:          "skillstreak",
		OTelExporterType:         "none",
		OTelOTLPEndpoint:         "localhost:4317",
		OTelExportIntervalMillis: 10000,
		LogLevel:                 "info",
	}
}

// load loads configuration from an optional TOML file, .env and the environment
func load() (*Config, error) {
	// Load .env file if present (silently ignore if missing)
	_ = godotenv.Load()

	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides overwrites fields whose environment variable is set
func applyEnvOverrides(config *Config) error {
	setStr(&config.DatabaseURL, "DATABASE_URL")
	setStr(&config.DatabaseName, "DATABASE_NAME")
	setStr(&config.HTTPAddr, "HTTP_ADDR")
	setStr(&config.NATSServers, "NATS_SERVERS")
	setStr(&config.RedisAddr, "REDIS_ADDR")
	setStr(&config.RedisPassword, "REDIS_PASSWORD")
	setStr(&config.OTelServiceName, "OTEL_SERVICE_NAME")
	setStr(&config.OTelExporterType, "OTEL_EXPORTER_TYPE")
	setStr(&config.OTelOTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setStr(&config.LogLevel, "LOG_LEVEL")
	setStr(&config.Environment, "ENVIRONMENT")
	setInt(&config.RedisDB, "REDIS_DB")
	setInt(&config.OTelExportIntervalMillis, "OTEL_EXPORT_INTERVAL_MILLIS")
	setBool(&config.OTelEnabled, "OTEL_ENABLED")
	setBool(&config.FaucetEnabled, "FAUCET_ENABLED")

	if v := os.Getenv("TASK_DEDUP_POLICY"); v != "" {
		config.TaskDedupPolicy = TaskDedupPolicy(v)
	}
	if err := setBps(&config.EarlyWithdrawPenaltyBps, "EARLY_WITHDRAW_PENALTY_BPS"); err != nil {
		return err
	}
	if err := setBps(&config.MaxFeeBasisPoints, "MAX_FEE_BASIS_POINTS"); err != nil {
		return err
	}
	if err := setDuration(&config.AccountCacheTTL, "ACCOUNT_CACHE_TTL"); err != nil {
		return err
	}
	if err := setDuration(&config.AuditInterval, "AUDIT_INTERVAL"); err != nil {
		return err
	}
	if v := os.Getenv("PROGRAM_ID"); v != "" {
		id, err := address.Parse(v)
		if err != nil {
			return fmt.Errorf("invalid PROGRAM_ID: %w", err)
		}
		config.ProgramID = id
	}

	// Parse market authorities
	if v := os.Getenv("MARKET_AUTHORITIES"); v != "" {
		config.MarketAuthorities = nil
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			a, err := address.Parse(s)
			if err != nil {
				return fmt.Errorf("invalid MARKET_AUTHORITIES entry: %w", err)
			}
			config.MarketAuthorities = append(config.MarketAuthorities, a)
		}
	}
	return nil
}

// Validate checks required fields and policy ranges
func (c *Config) Validate() error {
	switch c.TaskDedupPolicy {
	case TaskDedupEveryCall, TaskDedupDaily:
	default:
		return fmt.Errorf("unknown TASK_DEDUP_POLICY %q", c.TaskDedupPolicy)
	}
	if c.EarlyWithdrawPenaltyBps > 10000 {
		return fmt.Errorf("EARLY_WITHDRAW_PENALTY_BPS must be <= 10000")
	}
	if c.MaxFeeBasisPoints > 10000 {
		return fmt.Errorf("MAX_FEE_BASIS_POINTS must be <= 10000")
	}
	if c.Environment != "test" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setBps(dst *uint16, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = uint16(n)
	return nil
}

// SetTestConfig sets a test configuration (for testing only)
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the config singleton (for testing only)
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a config suitable for tests
func NewTestConfig() *Config {
	c := defaults()
	c.Environment = "test"
	c.FaucetEnabled = true
	return c
}
