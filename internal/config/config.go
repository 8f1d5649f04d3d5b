package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creditrail/creditrail/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	Stripe     StripeConfig
	Catalog    CatalogConfig `validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// GetDSN returns the postgres connection string
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	// WebhookSecret verifies delivery signatures. When empty (local runs,
	// tests) verification is skipped and the raw payload is trusted.
	WebhookSecret string `mapstructure:"webhook_secret"`
	// RequestTimeoutSeconds bounds outbound reads to the provider. Gateway
	// lookups are opportunistic; a slow provider must not block crediting.
	RequestTimeoutSeconds int
}

// CatalogConfig is the static plan/pack catalog. Read-only at runtime; the
// resolver treats it as the total universe of known price ids.
type CatalogConfig struct {
	Plans []PlanConfig `validate:"dive"`
	Packs []PackConfig `validate:"dive"`
}

type PlanConfig struct {
	Key             string               `validate:"required"`
	PriceID         string               `mapstructure:"price_id" validate:"required"`
	CreditsPerCycle int64                `mapstructure:"credits_per_cycle" validate:"gte=0"`
	MaxRollover     *int64               `mapstructure:"max_rollover"`
	ExpirationMode  types.ExpirationMode `mapstructure:"expiration_mode" validate:"required"`
}

type PackConfig struct {
	Key     string `validate:"required"`
	PriceID string `mapstructure:"price_id" validate:"required"`
	Credits int64  `validate:"gt=0"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/creditrail")

	v.SetEnvPrefix("CREDITRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeAPI))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetimeminutes", 10)
	v.SetDefault("stripe.requesttimeoutseconds", 10)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	for _, p := range c.Catalog.Plans {
		if err := p.ExpirationMode.Validate(); err != nil {
			return err
		}
	}

	// Price ids must be unique across plans and packs; the resolver is a
	// total function over the catalog and cannot disambiguate duplicates.
	seen := make(map[string]string, len(c.Catalog.Plans)+len(c.Catalog.Packs))
	for _, p := range c.Catalog.Plans {
		if prev, ok := seen[p.PriceID]; ok {
			return fmt.Errorf("duplicate price id %q in catalog (plans %q and %q)", p.PriceID, prev, p.Key)
		}
		seen[p.PriceID] = p.Key
	}
	for _, p := range c.Catalog.Packs {
		if prev, ok := seen[p.PriceID]; ok {
			return fmt.Errorf("duplicate price id %q in catalog (%q and pack %q)", p.PriceID, prev, p.Key)
		}
		seen[p.PriceID] = p.Key
	}

	return nil
}

// GetDefaultConfig returns a default configuration for local development
// and tests.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Stripe:     StripeConfig{RequestTimeoutSeconds: 10},
	}
}
