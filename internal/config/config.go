package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/paraswap/paraswap-subgraph/internal/feeshare"
)

type Config struct {
	Chain     ChainConfig     `mapstructure:"chain"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Modules   ModulesConfig   `mapstructure:"modules"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ChainConfig struct {
	Name    string `mapstructure:"name"`
	ChainID int64  `mapstructure:"chain_id"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int32  `mapstructure:"max_connections"`
}

type ProcessorConfig struct {
	// BatchSize is the number of blocks handed to a module per tick
	BatchSize    int           `mapstructure:"batch_size"`
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type ModulesConfig struct {
	ManifestsDir string `mapstructure:"manifests_dir"`
}

// FeesConfig overrides the fee-share policy constants, all in bps
type FeesConfig struct {
	PartnerSharePercent       int64 `mapstructure:"partner_share_percent"`
	MaxFeePercent             int64 `mapstructure:"max_fee_percent"`
	ParaswapSlippageShare     int64 `mapstructure:"paraswap_slippage_share"`
	ParaswapReferralShare     int64 `mapstructure:"paraswap_referral_share"`
	FixedFeeSlippageThreshold int64 `mapstructure:"fixed_fee_slippage_threshold"`
}

type RealtimeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIURL  string `mapstructure:"api_url"`
	APIKey  string `mapstructure:"api_key"`
}

// MetricsConfig controls the Prometheus endpoint; an empty Addr disables it
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	policy := feeshare.DefaultPolicy()

	v.SetDefault("chain.name", "ethereum")
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("processor.batch_size", 1000)
	v.SetDefault("processor.workers", 4)
	v.SetDefault("processor.poll_interval", "5s")
	v.SetDefault("modules.manifests_dir", "manifests")
	v.SetDefault("fees.partner_share_percent", policy.PartnerSharePercent)
	v.SetDefault("fees.max_fee_percent", policy.MaxFeePercent)
	v.SetDefault("fees.paraswap_slippage_share", policy.ParaswapSlippageShare)
	v.SetDefault("fees.paraswap_referral_share", policy.ParaswapReferralShare)
	v.SetDefault("fees.fixed_fee_slippage_threshold", policy.FixedFeeSlippageThreshold)
	v.SetDefault("realtime.enabled", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks the values the indexer cannot run without
func (c *Config) Validate() error {
	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}
	if c.Processor.BatchSize <= 0 {
		return fmt.Errorf("processor.batch_size must be positive, got %d", c.Processor.BatchSize)
	}
	if c.Processor.Workers <= 0 {
		return fmt.Errorf("processor.workers must be positive, got %d", c.Processor.Workers)
	}
	if c.Processor.PollInterval <= 0 {
		return fmt.Errorf("processor.poll_interval must be positive, got %s", c.Processor.PollInterval)
	}
	if c.Realtime.Enabled && c.Realtime.APIURL == "" {
		return errors.New("realtime.api_url is required when realtime is enabled")
	}

	shares := map[string]int64{
		"fees.partner_share_percent":   c.Fees.PartnerSharePercent,
		"fees.max_fee_percent":         c.Fees.MaxFeePercent,
		"fees.paraswap_slippage_share": c.Fees.ParaswapSlippageShare,
		"fees.paraswap_referral_share": c.Fees.ParaswapReferralShare,
	}
	for key, bps := range shares {
		if bps < 0 || bps > 10000 {
			return fmt.Errorf("%s must be within [0, 10000] bps, got %d", key, bps)
		}
	}
	return nil
}

// FeePolicy builds the fee-share policy from the fees section
func (c *Config) FeePolicy() feeshare.Policy {
	policy := feeshare.DefaultPolicy()
	policy.PartnerSharePercent = c.Fees.PartnerSharePercent
	policy.MaxFeePercent = c.Fees.MaxFeePercent
	policy.ParaswapSlippageShare = c.Fees.ParaswapSlippageShare
	policy.ParaswapReferralShare = c.Fees.ParaswapReferralShare
	policy.FixedFeeSlippageThreshold = c.Fees.FixedFeeSlippageThreshold
	return policy
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}
