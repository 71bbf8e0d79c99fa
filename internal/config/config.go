package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Lock      LockConfig      `mapstructure:"lock"`
	Game      GameConfig      `mapstructure:"game"`
	AutoPhase AutoPhaseConfig `mapstructure:"autophase"`
	Auth      AuthConfig      `mapstructure:"auth"`
	AI        AIConfig        `mapstructure:"ai"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readtimeout"`
	WriteTimeout    time.Duration `mapstructure:"writetimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
	RateLimit       float64       `mapstructure:"ratelimit"` // requests per second per client IP
	RateLimitBurst  int           `mapstructure:"ratelimitburst"`
	MaxRequestSize  int64         `mapstructure:"maxrequestsize"`
	TrustProxy      bool          `mapstructure:"trustproxy"` // key rate limits on X-Forwarded-For
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // "mongo" or "memory"
}

type LockConfig struct {
	Backend string        `mapstructure:"backend"` // "memory" or "redis"
	TTL     time.Duration `mapstructure:"ttl"`
}

type GameConfig struct {
	MinPlayers       int           `mapstructure:"minplayers"`
	MaxPlayers       int           `mapstructure:"maxplayers"`
	PhaseDuration    time.Duration `mapstructure:"phaseduration"`
	StateCacheTTL    time.Duration `mapstructure:"statecachettl"`
	NarrativeTimeout time.Duration `mapstructure:"narrativetimeout"` // bounds narration and missions after an advance
}

type AutoPhaseConfig struct {
	Interval    time.Duration `mapstructure:"interval"` // 0 disables the in-process scheduler
	Concurrency int           `mapstructure:"concurrency"`
	CronSecret  string        `mapstructure:"cronsecret"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtsecret"`
	TokenTTL  time.Duration `mapstructure:"tokenttl"`
}

// DefaultJWTSecret is only meant for local runs
const DefaultJWTSecret = "super-secret-key-change-in-production"

// Load reads configuration.
// Priority order: Environment variables > Config file > Defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("traitors")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Redis.Addr = strings.TrimPrefix(cfg.Redis.Addr, "redis://")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.readtimeout", "15s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.shutdowntimeout", "30s")
	v.SetDefault("http.ratelimit", 10.0)
	v.SetDefault("http.ratelimitburst", 20)
	v.SetDefault("http.maxrequestsize", 1<<20)
	v.SetDefault("http.trustproxy", false)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "traitors")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "mongo")
	v.SetDefault("lock.backend", "memory")
	v.SetDefault("lock.ttl", "30s")

	v.SetDefault("game.minplayers", 4)
	v.SetDefault("game.maxplayers", 12)
	v.SetDefault("game.phaseduration", "12h")
	v.SetDefault("game.statecachettl", "5s")
	v.SetDefault("game.narrativetimeout", "2m")

	v.SetDefault("autophase.interval", "1m")
	v.SetDefault("autophase.concurrency", 8)
	v.SetDefault("autophase.cronsecret", "")

	v.SetDefault("auth.jwtsecret", DefaultJWTSecret)
	v.SetDefault("auth.tokenttl", "72h")

	ai := DefaultAIConfig()
	v.SetDefault("ai.apikey", "")
	v.SetDefault("ai.baseurl", ai.BaseURL)
	v.SetDefault("ai.timeoutms", ai.TimeoutMS)
	v.SetDefault("ai.models.narration", ai.Models.Narration)
	v.SetDefault("ai.models.mission", ai.Models.Mission)
	v.SetDefault("ai.models.chaos", ai.Models.Chaos)
	v.SetDefault("ai.models.roomlog", ai.Models.RoomLog)
}

// bindEnv maps the short environment names used in deployments
func bindEnv(v *viper.Viper) {
	v.BindEnv("http.port", "PORT")
	v.BindEnv("http.ratelimit", "RATE_LIMIT")
	v.BindEnv("http.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("http.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("http.trustproxy", "TRUST_PROXY")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DB")
	v.BindEnv("redis.addr", "REDIS_URI")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("lock.backend", "LOCK_BACKEND")
	v.BindEnv("game.minplayers", "MIN_PLAYERS")
	v.BindEnv("game.maxplayers", "MAX_PLAYERS")
	v.BindEnv("game.phaseduration", "PHASE_DURATION")
	v.BindEnv("autophase.interval", "AUTO_PHASE_INTERVAL")
	v.BindEnv("autophase.concurrency", "AUTO_PHASE_CONCURRENCY")
	v.BindEnv("autophase.cronsecret", "CRON_SECRET")
	v.BindEnv("auth.jwtsecret", "JWT_SECRET")
	v.BindEnv("ai.apikey", "GEMINI_API_KEY")
	v.BindEnv("ai.models.narration", "GEMINI_MODEL_NARRATION")
	v.BindEnv("ai.models.mission", "GEMINI_MODEL_MISSION")
	v.BindEnv("ai.models.chaos", "GEMINI_MODEL_CHAOS")
	v.BindEnv("ai.models.roomlog", "GEMINI_MODEL_ROOMLOG")
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.HTTP.Port == "" {
		return fmt.Errorf("http port must be set")
	}
	if c.Game.MinPlayers < 3 {
		return fmt.Errorf("min players must be at least 3, got %d", c.Game.MinPlayers)
	}
	if c.Game.MaxPlayers < c.Game.MinPlayers {
		return fmt.Errorf("max players (%d) must not be below min players (%d)", c.Game.MaxPlayers, c.Game.MinPlayers)
	}
	if c.Game.PhaseDuration <= 0 {
		return fmt.Errorf("phase duration must be positive")
	}
	switch c.Storage.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Lock.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown lock backend %q", c.Lock.Backend)
	}
	if c.AutoPhase.Concurrency < 1 {
		return fmt.Errorf("auto-phase concurrency must be at least 1")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be set")
	}
	return nil
}

// UsesDefaultJWTSecret reports whether tokens are signed with DefaultJWTSecret
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.Auth.JWTSecret == DefaultJWTSecret
}
