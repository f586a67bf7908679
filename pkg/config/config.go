package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/impulse-dash/backend/internal/dashboard"
	"github.com/impulse-dash/backend/internal/survey"
)

const DefaultSourceURL = "https://raw.githubusercontent.com/nurinn-bot/SV-TT/main/exported_dataframe.csv"

type Config struct {
	Server     ServerConfig
	Source     SourceConfig
	Redis      RedisConfig
	Schema     SchemaConfig
	Constructs []survey.ConstructDefinition
	Orders     map[string][]string
	Pages      []dashboard.Page
	Render     RenderConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins string
	Development    bool
	// RendersPerMinute caps requests that fetch the dataset.
	RendersPerMinute int
}

type SourceConfig struct {
	URL               string
	Path              string
	TimeoutSec        int
	MaxBytes          int64
	MaxAttempts       int
	InitialDelayMs    int
	MaxDelayMs        int
	BreakerFailures   uint32
	BreakerTimeoutSec int
}

func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSec) * time.Second
}

type SchemaConfig struct {
	Aliases     map[string]string
	Categorical []string
	Missing     []string
}

type RenderConfig struct {
	WidthIn  float64
	HeightIn float64
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads config.yaml from the standard search paths. A missing file is
// not an error; defaults and IMPULSE_DASH_* variables apply.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/impulse-dash")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("IMPULSE_DASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(config.Constructs) == 0 {
		config.Constructs = survey.DefaultConstructs()
	}
	if len(config.Pages) == 0 {
		config.Pages = dashboard.DefaultPages()
	}
	if config.Orders == nil {
		config.Orders = dashboard.DefaultOrders()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Source.URL == "" && c.Source.Path == "" {
		return errors.New("source.url or source.path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if err := survey.ValidateDefinitions(c.Constructs); err != nil {
		return fmt.Errorf("invalid constructs: %w", err)
	}
	for _, p := range c.Pages {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid pages: %w", err)
		}
	}
	return nil
}

// Definitions returns the construct table consumed by the score builder.
func (c *Config) Definitions() []survey.ConstructDefinition {
	return append([]survey.ConstructDefinition(nil), c.Constructs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("server.development", false)
	v.SetDefault("server.rendersPerMinute", 120)

	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.path", "")
	v.SetDefault("source.timeoutSec", 15)
	v.SetDefault("source.maxBytes", 32<<20)
	v.SetDefault("source.maxAttempts", 3)
	v.SetDefault("source.initialDelayMs", 200)
	v.SetDefault("source.maxDelayMs", 2000)
	v.SetDefault("source.breakerFailures", 5)
	v.SetDefault("source.breakerTimeoutSec", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 300)

	v.SetDefault("schema.aliases", map[string]string{
		"monthly income": "monthly_income",
		"income":         "monthly_income",
		"age group":      "age",
	})
	v.SetDefault("schema.categorical", []string{"gender", "age", "monthly_income"})

	v.SetDefault("render.widthIn", 8.0)
	v.SetDefault("render.heightIn", 5.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
