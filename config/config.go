package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Shopify  ShopifyConfig
	Tenant   TenantConfig
	Notify   NotifyConfig
	Webhooks WebhooksConfig
	Ledger   LedgerConfig
	Cache    CacheConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	AppEnv string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type ShopifyConfig struct {
	Store           string
	APIVersion      string
	AccessToken     string
	TimeoutSeconds  int
	MaxAttempts     int
	MaxDelaySeconds int
	PageSize        int
}

type TenantConfig struct {
	Name        string
	ProfilePath string
}

type NotifyConfig struct {
	URL        string
	SuccessURL string
}

type WebhooksConfig struct {
	FieldChangedURL string
	UnitPriceURL    string
	ConfirmItemsURL string
	TimeoutSeconds  int
}

type LedgerConfig struct {
	Driver string // sqlite, pgx or none
	DSN    string
}

type CacheConfig struct {
	Backend    string // memory or redis
	TTLMinutes int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv: getEnv("APP_ENV", "dev"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Shopify: ShopifyConfig{
			Store:           getEnv("SHOPIFY_STORE", ""),
			APIVersion:      getEnv("SHOPIFY_API_VERSION", "2025-01"),
			AccessToken:     getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			TimeoutSeconds:  getEnvInt("SHOPIFY_TIMEOUT_SECONDS", 30),
			MaxAttempts:     getEnvInt("SHOPIFY_THROTTLE_MAX_ATTEMPTS", 8),
			MaxDelaySeconds: getEnvInt("SHOPIFY_THROTTLE_MAX_DELAY_SECONDS", 30),
			PageSize:        getEnvInt("SHOPIFY_PAGE_SIZE", 25),
		},
		Tenant: TenantConfig{
			Name:        getEnv("TENANT", "in"),
			ProfilePath: getEnv("TENANT_PROFILE", ""),
		},
		Notify: NotifyConfig{
			URL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
			SuccessURL: getEnv("NOTIFY_SUCCESS_WEBHOOK_URL", ""),
		},
		Webhooks: WebhooksConfig{
			FieldChangedURL: getEnv("WEBHOOK_FIELD_CHANGED_URL", ""),
			UnitPriceURL:    getEnv("WEBHOOK_UNIT_PRICE_URL", ""),
			ConfirmItemsURL: getEnv("WEBHOOK_CONFIRM_ITEMS_URL", ""),
			TimeoutSeconds:  getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 15),
		},
		Ledger: LedgerConfig{
			Driver: getEnv("LEDGER_DRIVER", "sqlite"),
			DSN:    getEnv("LEDGER_DSN", "catalog-gate.db"),
		},
		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", "memory"),
			TTLMinutes: getEnvInt("CACHE_TTL_MINUTES", 360),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Shopify.Store) == "" {
		missing = append(missing, "SHOPIFY_STORE")
	}
	if strings.TrimSpace(c.Shopify.AccessToken) == "" {
		missing = append(missing, "SHOPIFY_ACCESS_TOKEN")
	}
	if strings.TrimSpace(c.Notify.URL) == "" {
		missing = append(missing, "NOTIFY_WEBHOOK_URL")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	switch c.Ledger.Driver {
	case "sqlite", "pgx", "none":
	default:
		return errors.New("LEDGER_DRIVER must be one of sqlite, pgx, none")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return errors.New("CACHE_BACKEND must be memory or redis")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
