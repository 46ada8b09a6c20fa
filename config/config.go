package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/blog/internal/handler"
	"github.com/angeloszaimis/blog/internal/httpserver"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`

	// TrustedProxies are IPs or CIDR ranges allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type SiteConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	BaseURL     string `mapstructure:"base_url"`
	Author      string `mapstructure:"author"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BreakerConfig struct {
	Threshold    int    `mapstructure:"threshold"`
	ResetTimeout string `mapstructure:"reset_timeout"`
}

type RepositoryConfig struct {
	Driver   string        `mapstructure:"driver"`
	SQLite   SQLiteConfig  `mapstructure:"sqlite"`
	Redis    RedisConfig   `mapstructure:"redis"`
	CacheTTL string        `mapstructure:"cache_ttl"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type CommentsConfig struct {
	RatePerMinute float64 `mapstructure:"rate_per_minute"`
	Burst         int     `mapstructure:"burst"`
}

type PublisherConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Site        SiteConfig        `mapstructure:"site"`
	Repository  RepositoryConfig  `mapstructure:"repository"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Comments    CommentsConfig    `mapstructure:"comments"`
	Publisher   PublisherConfig   `mapstructure:"publisher"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("site.title", "Blog")
	v.SetDefault("site.description", "")
	v.SetDefault("site.base_url", "http://localhost:8080")
	v.SetDefault("site.author", "")
	v.SetDefault("repository.driver", DriverMemory)
	v.SetDefault("repository.sqlite.path", "data/blog.db")
	v.SetDefault("repository.redis.address", "localhost:6379")
	v.SetDefault("repository.redis.password", "")
	v.SetDefault("repository.redis.db", 0)
	v.SetDefault("repository.cache_ttl", "30s")
	v.SetDefault("repository.breaker.threshold", 5)
	v.SetDefault("repository.breaker.reset_timeout", "30s")
	v.SetDefault("health_check.interval", "10s")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("comments.rate_per_minute", 6)
	v.SetDefault("comments.burst", 3)
	v.SetDefault("publisher.schedule", "@every 1m")
}

// Load reads config.yaml from ./config or the working directory, then
// applies environment overrides (server.address -> SERVER_ADDRESS). A
// .env file in the working directory is loaded into the environment
// first; variables already set win.
func Load() (*Config, error) {
	return load("./config", ".")
}

func load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", slog.String("error", err.Error()))
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Logging),
		validation.Field(&c.Site),
		validation.Field(&c.Repository),
		validation.Field(&c.HealthCheck),
		validation.Field(&c.Admin),
		validation.Field(&c.Comments),
		validation.Field(&c.Publisher),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&s.Address,
			validation.Required,
			validation.By(httpserver.ValidateAddress),
		),
		validation.Field(&s.ReadTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&s.WriteTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&s.IdleTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&s.TrustedProxies, validation.Each(validation.By(validateProxy))),
	)
}

// Timeouts converts the validated timeout strings.
func (s ServerConfig) Timeouts() httpserver.Timeouts {
	return httpserver.Timeouts{
		Read:  parseDuration(s.ReadTimeout),
		Write: parseDuration(s.WriteTimeout),
		Idle:  parseDuration(s.IdleTimeout),
	}
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func (s SiteConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.BaseURL, validation.Required, is.URL),
	)
}

func (r RepositoryConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Driver,
			validation.Required,
			validation.In(DriverMemory, DriverSQLite, DriverRedis),
		),
		validation.Field(&r.SQLite, validation.Skip.When(r.Driver != DriverSQLite)),
		validation.Field(&r.Redis, validation.Skip.When(r.Driver != DriverRedis)),
		validation.Field(&r.CacheTTL, validation.By(validateOptionalDuration)),
		validation.Field(&r.Breaker),
	)
}

func (s SQLiteConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Path, validation.Required),
	)
}

func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.Required, validation.By(httpserver.ValidateAddress)),
		validation.Field(&r.DB, validation.Min(0), validation.Max(15)),
	)
}

func (b BreakerConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Threshold, validation.Required, validation.Min(1)),
		validation.Field(&b.ResetTimeout, validation.Required, validation.By(validateDuration)),
	)
}

func (h HealthCheckConfig) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Interval, validation.Required, validation.By(validateDuration)),
	)
}

func (a AdminConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Username, validation.Required),
		validation.Field(&a.PasswordHash, validation.By(validateBcryptHash)),
	)
}

func (c CommentsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RatePerMinute, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&c.Burst, validation.Required, validation.Min(1)),
	)
}

func (p PublisherConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Schedule, validation.Required, validation.By(validateSchedule)),
	)
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

// validateOptionalDuration accepts "" or "0" to switch a feature off.
func validateOptionalDuration(value interface{}) error {
	if s, ok := value.(string); ok && (s == "" || s == "0") {
		return nil
	}
	return validateDuration(value)
}

func validateBcryptHash(value interface{}) error {
	hash, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if hash == "" {
		return nil
	}
	if !strings.HasPrefix(hash, "$2") || len(hash) != 60 {
		return validation.NewError("validation_invalid_hash", "must be a bcrypt hash")
	}
	return nil
}

func validateSchedule(value interface{}) error {
	spec, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return validation.NewError("validation_invalid_schedule", "must be a cron expression or descriptor like @every 1m")
	}
	return nil
}

func validateProxy(value interface{}) error {
	entry, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, err := handler.ParseTrustedProxies([]string{entry}); err != nil {
		return validation.NewError("validation_invalid_proxy", "must be an IP address or CIDR range")
	}
	return nil
}

// Duration parses a validated duration string; "" and "0" give zero.
func Duration(s string) time.Duration {
	if s == "" || s == "0" {
		return 0
	}
	return parseDuration(s)
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
