package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"isdocsync"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"isdocsync"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
	}

	Auth struct {
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	// Company is the owning organization. Its VAT number drives direction
	// inference on parsed documents: a supplier match means outbound, a
	// customer match means inbound.
	Company struct {
		VatNo string `envconfig:"COMPANY_VAT_NO"`
	}

	Fakturoid struct {
		ClientID     string `envconfig:"FAKTUROID_CLIENT_ID"`
		ClientSecret string `envconfig:"FAKTUROID_CLIENT_SECRET"`
		RedirectURI  string `envconfig:"FAKTUROID_REDIRECT_URI"`
		BaseURL      string `envconfig:"FAKTUROID_BASE_URL" default:"https://app.fakturoid.cz"`
		UserAgent    string `envconfig:"FAKTUROID_USER_AGENT" default:"isdocsync (admin@isdocsync.cz)"`
	}

	Storage struct {
		ConnectionString string `envconfig:"AZURE_STORAGE_CONNECTION_STRING"`
		Container        string `envconfig:"AZURE_STORAGE_CONTAINER" default:"invoice-uploads"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
