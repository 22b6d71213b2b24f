package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration, loaded from config.yml with
// environment variable overrides.
type Config struct {
	App struct {
		Port         string `mapstructure:"port"`
		Env          string `mapstructure:"env"`
		ReadTimeout  int    `mapstructure:"readTimeout"`
		WriteTimeout int    `mapstructure:"writeTimeout"`
	} `mapstructure:"app"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	QPay struct {
		BaseURL     string `mapstructure:"baseUrl"`
		Username    string `mapstructure:"username"`
		Password    string `mapstructure:"password"`
		InvoiceCode string `mapstructure:"invoiceCode"`
		CallbackURL string `mapstructure:"callbackUrl"`
	} `mapstructure:"qpay"`
	Auth struct {
		JWTSecret  string `mapstructure:"jwtSecret"`
		AdminEmail string `mapstructure:"adminEmail"`
	} `mapstructure:"auth"`
	Billing struct {
		Amount       int64  `mapstructure:"amount"`
		DurationDays int    `mapstructure:"durationDays"`
		Tag          string `mapstructure:"tag"`
	} `mapstructure:"billing"`
	Reconciler struct {
		IntervalSeconds    int `mapstructure:"intervalSeconds"`
		MaxPendingAgeHours int `mapstructure:"maxPendingAgeHours"`
	} `mapstructure:"reconciler"`
}

// ReconcilerInterval returns the sweep interval, defaulting to 30s.
func (c *Config) ReconcilerInterval() time.Duration {
	if c.Reconciler.IntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Reconciler.IntervalSeconds) * time.Second
}

// ReconcilerMaxPendingAge returns how far back the reconciler sweeps,
// defaulting to 24h.
func (c *Config) ReconcilerMaxPendingAge() time.Duration {
	if c.Reconciler.MaxPendingAgeHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Reconciler.MaxPendingAgeHours) * time.Hour
}

// LoadConfig loads the configuration from config.yml and the environment.
func LoadConfig(envPath string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// Missing .env is fine for local runs with exported variables.
		_ = godotenv.Load(envPath)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Environment-only deployments run without a config.yml.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.App.Port == "" {
		config.App.Port = "8080"
	}
	if config.App.ReadTimeout <= 0 {
		config.App.ReadTimeout = 15
	}
	if config.App.WriteTimeout <= 0 {
		config.App.WriteTimeout = 15
	}
	if config.Billing.Tag == "" {
		config.Billing.Tag = "member"
	}
	if config.Billing.DurationDays <= 0 {
		config.Billing.DurationDays = 30
	}
	// No sane default exists for a price; a missing amount would mint
	// zero-amount invoices at the gateway.
	if config.Billing.Amount <= 0 {
		return nil, errors.New("config: billing.amount must be a positive number")
	}

	return &config, nil
}
