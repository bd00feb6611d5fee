package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Evolution EvolutionConfig `mapstructure:"evolution"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Cron      CronConfig      `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr     string   `mapstructure:"http_addr"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type OracleConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EvolutionConfig struct {
	Markets          []string      `mapstructure:"markets"`
	Period           string        `mapstructure:"period"`
	SurvivalRate     float64       `mapstructure:"survival_rate"`
	OffspringCount   int           `mapstructure:"offspring_count"`
	OracleTimeout    time.Duration `mapstructure:"oracle_timeout"`
	MinSharpe        float64       `mapstructure:"min_sharpe"`
	MaxDrawdownFloor float64       `mapstructure:"max_drawdown_floor"`
	MinWinRate       float64       `mapstructure:"min_win_rate"`
}

type RegistryConfig struct {
	ClaimTimeoutDiscovery    time.Duration `mapstructure:"claim_timeout_discovery"`
	ClaimTimeoutOptimization time.Duration `mapstructure:"claim_timeout_optimization"`
	ClaimTimeoutVerification time.Duration `mapstructure:"claim_timeout_verification"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Evolution   string `mapstructure:"evolution"`
	ExpirySweep string `mapstructure:"expiry_sweep"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.allow_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("oracle.base_url", "http://localhost:9090")
	v.SetDefault("oracle.timeout", "30s")
	v.SetDefault("evolution.markets", []string{"BTC-USD", "ETH-USD", "SOL-USD"})
	v.SetDefault("evolution.period", "90d")
	v.SetDefault("evolution.survival_rate", 0.7)
	v.SetDefault("evolution.offspring_count", 5)
	v.SetDefault("evolution.oracle_timeout", "30s")
	v.SetDefault("evolution.min_sharpe", 1.0)
	v.SetDefault("evolution.max_drawdown_floor", -0.20)
	v.SetDefault("evolution.min_win_rate", 0.50)
	v.SetDefault("registry.claim_timeout_discovery", "30m")
	v.SetDefault("registry.claim_timeout_optimization", "60m")
	v.SetDefault("registry.claim_timeout_verification", "15m")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.evolution", "@every 1h")
	v.SetDefault("cron.expiry_sweep", "@every 1m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
