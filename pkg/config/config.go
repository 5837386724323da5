package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Name string `mapstructure:"name"`
		Port string `mapstructure:"port"`
	} `mapstructure:"app"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Postgres struct {
		Host           string `mapstructure:"host"`
		Port           string `mapstructure:"port"`
		DBName         string `mapstructure:"dbname"`
		User           string `mapstructure:"user"`
		Password       string `mapstructure:"password"`
		SSLMode        string `mapstructure:"sslmode"`
		MigrationsPath string `mapstructure:"migrations_path"`
	} `mapstructure:"postgres"`

	Provider struct {
		// Order lists provider names in the order they are tried.
		Order   []string      `mapstructure:"order"`
		Timeout time.Duration `mapstructure:"timeout"`

		ExchangeRate struct {
			BaseURL string `mapstructure:"base_url"`
			APIKey  string `mapstructure:"api_key"`
		} `mapstructure:"exchangerate"`

		CBR struct {
			BaseURL string `mapstructure:"base_url"`
		} `mapstructure:"cbr"`
	} `mapstructure:"provider"`

	Converter struct {
		HistoryLimit    int           `mapstructure:"history_limit"`
		MaxHistoryLimit int           `mapstructure:"max_history_limit"`
		ConvertTimeout  time.Duration `mapstructure:"convert_timeout"`
		JobTTL          time.Duration `mapstructure:"job_ttl"`
	} `mapstructure:"converter"`

	Snapshots struct {
		Enabled  bool     `mapstructure:"enabled"`
		Schedule string   `mapstructure:"schedule"`
		Pairs    []string `mapstructure:"pairs"`
	} `mapstructure:"snapshots"`

	HTTP struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
		RateLimit    string   `mapstructure:"rate_limit"`
	} `mapstructure:"http"`
}

const (
	ProviderExchangeRate = "exchangerate"
	ProviderCBR          = "cbr"
)

var defaultSearchPaths = []string{".", "./config", "../config", "../../config"}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(defaultSearchPaths...)
}

// LoadConfigFrom reads config.yaml from the first matching path. A missing
// file is not an error: defaults and environment variables still apply.
func LoadConfigFrom(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Variable names used by older deployments of the dashboard.
	_ = v.BindEnv("provider.exchangerate.api_key", "PROVIDER_EXCHANGERATE_API_KEY", "EXCHANGERATE_API_KEY")
	_ = v.BindEnv("postgres.host", "POSTGRES_HOST", "DB_HOST")
	_ = v.BindEnv("postgres.user", "POSTGRES_USER", "DB_USER")
	_ = v.BindEnv("postgres.password", "POSTGRES_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("postgres.dbname", "POSTGRES_DBNAME", "DB_NAME")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "converter-service")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.dbname", "segundo_cerebro")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.migrations_path", "file://migrations")

	v.SetDefault("provider.order", []string{ProviderExchangeRate, ProviderCBR})
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.exchangerate.base_url", "https://v6.exchangerate-api.com")
	v.SetDefault("provider.exchangerate.api_key", "")
	v.SetDefault("provider.cbr.base_url", "https://www.cbr.ru/scripts")

	v.SetDefault("converter.history_limit", 10)
	v.SetDefault("converter.max_history_limit", 100)
	v.SetDefault("converter.convert_timeout", 15*time.Second)
	v.SetDefault("converter.job_ttl", 10*time.Minute)

	v.SetDefault("snapshots.enabled", true)
	v.SetDefault("snapshots.schedule", "0 13 * * *")
	v.SetDefault("snapshots.pairs", []string{"USD/BRL", "EUR/BRL"})

	v.SetDefault("http.allow_origins", []string{"http://localhost:8080", "http://127.0.0.1:8080"})
	v.SetDefault("http.rate_limit", "120-M")
}

func (c *Config) Validate() error {
	if len(c.Provider.Order) == 0 {
		return errors.New("provider.order must name at least one provider")
	}
	for _, name := range c.Provider.Order {
		switch name {
		case ProviderExchangeRate, ProviderCBR:
		default:
			return fmt.Errorf("unknown provider %q in provider.order", name)
		}
	}
	if c.Provider.Timeout <= 0 {
		return errors.New("provider.timeout must be positive")
	}
	if c.Converter.HistoryLimit <= 0 || c.Converter.MaxHistoryLimit < c.Converter.HistoryLimit {
		return fmt.Errorf("invalid history limits: default %d, max %d", c.Converter.HistoryLimit, c.Converter.MaxHistoryLimit)
	}
	if c.Converter.ConvertTimeout <= 0 {
		return errors.New("converter.convert_timeout must be positive")
	}
	for _, p := range c.Snapshots.Pairs {
		if _, _, err := SplitPair(p); err != nil {
			return err
		}
	}
	return nil
}

// SplitPair parses "USD/BRL" into its two codes.
func SplitPair(pair string) (string, string, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(pair), "/")
	if !ok || len(from) != 3 || len(to) != 3 {
		return "", "", fmt.Errorf("invalid currency pair %q, expected FROM/TO", pair)
	}
	return strings.ToUpper(from), strings.ToUpper(to), nil
}
