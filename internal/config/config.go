package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/xueqianLu/dscgateway/internal/validator"
)

// Default contract deployments.
const (
	DefaultDSCAddress    = "0x2c3B2411D8BEeA449f3dfbdAA80bE8C290a159C3"
	DefaultEngineAddress = "0x38febeed266b885a6d84f129463330f81f02df86"
	DefaultWETHAddress   = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	DefaultWBTCAddress   = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Contracts  ContractsConfig  `mapstructure:"contracts"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	KeyManager KeyManagerConfig `mapstructure:"key_manager"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type ChainConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
}

// ContractsConfig holds the deployed contract addresses.
type ContractsConfig struct {
	DSC    string `mapstructure:"dsc"`
	Engine string `mapstructure:"engine"`
	WETH   string `mapstructure:"weth"`
	WBTC   string `mapstructure:"wbtc"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds the HMAC credentials. An empty APIKey disables auth.
type AuthConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// KeyManagerConfig holds the configuration for the key manager.
type KeyManagerConfig struct {
	Type  string      `mapstructure:"type"` // "none", "local" or "vault"
	Local LocalConfig `mapstructure:"local"`
	Vault VaultConfig `mapstructure:"vault"`
}

// LocalConfig holds the configuration for the local key manager.
type LocalConfig struct {
	KeyDir   string `mapstructure:"key_dir"`
	Password string `mapstructure:"password"`
}

// VaultConfig holds the Vault configuration.
type VaultConfig struct {
	Address     string `mapstructure:"address"`
	Token       string `mapstructure:"token"`
	TransitPath string `mapstructure:"transit_path"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig selects the metadata cache. An empty Addr keeps it in process.
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// LoadConfig reads config.yaml from path (when present) and the
// environment. Environment keys use "_" for nesting, e.g. CHAIN_RPC_URL.
func LoadConfig(path string) (Config, error) {
	var config Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Names the deployment scripts already export.
	if err := v.BindEnv("chain.rpc_url", "CHAIN_RPC_URL", "BLOCKCHAIN_RPC_URL"); err != nil {
		return config, err
	}
	if err := v.BindEnv("contracts.dsc", "CONTRACTS_DSC", "DSC_ADDRESS"); err != nil {
		return config, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("chain.rpc_url", "http://localhost:8545")
	v.SetDefault("contracts.dsc", DefaultDSCAddress)
	v.SetDefault("contracts.engine", DefaultEngineAddress)
	v.SetDefault("contracts.weth", DefaultWETHAddress)
	v.SetDefault("contracts.wbtc", DefaultWBTCAddress)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.api_secret", "")
	v.SetDefault("key_manager.type", "none")
	v.SetDefault("key_manager.local.key_dir", "./keys")
	v.SetDefault("key_manager.local.password", "")
	v.SetDefault("key_manager.vault.address", "http://127.0.0.1:8200")
	v.SetDefault("key_manager.vault.token", "")
	v.SetDefault("key_manager.vault.transit_path", "transit")
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", time.Hour)
	v.SetDefault("telemetry.otlp_endpoint", "")
}

// Validate checks the settings that would otherwise fail at first use.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		return errors.New("chain.rpc_url is required")
	}
	addrs := map[string]string{
		"contracts.dsc":    c.Contracts.DSC,
		"contracts.engine": c.Contracts.Engine,
		"contracts.weth":   c.Contracts.WETH,
		"contracts.wbtc":   c.Contracts.WBTC,
	}
	for key, a := range addrs {
		if !validator.ValidateAddress(a) {
			return fmt.Errorf("%s: invalid address %q", key, a)
		}
	}
	switch c.KeyManager.Type {
	case "", "none":
	case "local", "vault":
		if c.Auth.APIKey == "" {
			return fmt.Errorf("key_manager.type %q requires auth.api_key", c.KeyManager.Type)
		}
	default:
		return fmt.Errorf("unknown key_manager.type %q", c.KeyManager.Type)
	}
	return nil
}
