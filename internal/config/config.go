package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Server      ServerConfig
	Store       string
	Postgres    PostgresConfig
	Redis       RedisConfig
	NowPayments NowPaymentsConfig
	Brevo       BrevoConfig
	Admin       AdminConfig
	Checkout    CheckoutConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	PublicBaseURL string
	CORSOrigins   []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	// URL takes precedence over the discrete fields when set.
	URL      string
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

// DSN returns the connection string for the pool and the migrator.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode,
	)
}

type NowPaymentsConfig struct {
	APIKey     string
	IPNSecret  string
	InvoiceURL string
}

type BrevoConfig struct {
	APIKey    string
	APIURL    string
	FromEmail string
	FromName  string
}

type AdminConfig struct {
	Email           string
	TOTPSecret      string
	JWTSecret       string
	AlertWebhookURL string
}

type CheckoutConfig struct {
	HoldTTL            time.Duration
	PaymentExtend      time.Duration
	RateLimitPerMinute int
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host:          serverHost,
		Port:          serverPort,
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
	}

	store := strings.ToLower(os.Getenv("STORE_DRIVER"))
	if store == "" {
		store = StorePostgres
	}
	if store != StorePostgres && store != StoreMemory {
		return nil, fmt.Errorf("%s: invalid STORE_DRIVER %q", op, store)
	}

	var postgresCfg PostgresConfig
	if store == StorePostgres {
		postgresCfg, err = postgresFromEnv()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	npCfg := NowPaymentsConfig{
		APIKey:     os.Getenv("NOWPAYMENTS_API_KEY"),
		IPNSecret:  os.Getenv("NOWPAYMENTS_IPN_SECRET"),
		InvoiceURL: os.Getenv("NOWPAYMENTS_INVOICE_URL"),
	}
	if npCfg.APIKey == "" {
		return nil, fmt.Errorf("%s: missing NOWPAYMENTS_API_KEY", op)
	}
	if npCfg.IPNSecret == "" {
		return nil, fmt.Errorf("%s: missing NOWPAYMENTS_IPN_SECRET", op)
	}

	brevoCfg := BrevoConfig{
		APIKey:    os.Getenv("BREVO_API_KEY"),
		APIURL:    os.Getenv("BREVO_API_URL"),
		FromEmail: os.Getenv("GUIDE_FROM_EMAIL"),
		FromName:  os.Getenv("GUIDE_FROM_NAME"),
	}
	if brevoCfg.APIKey == "" {
		return nil, fmt.Errorf("%s: missing BREVO_API_KEY", op)
	}

	adminCfg := AdminConfig{
		Email:           strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		TOTPSecret:      strings.TrimSpace(os.Getenv("ADMIN_TOTP_SECRET")),
		JWTSecret:       os.Getenv("ADMIN_JWT_SECRET"),
		AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
	}
	if adminCfg.Email == "" {
		return nil, fmt.Errorf("%s: missing ADMIN_EMAIL", op)
	}
	if adminCfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: missing ADMIN_JWT_SECRET", op)
	}

	holdMinutes, err := intEnv("RESERVE_HOLD_MINUTES", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	extendMinutes, err := intEnv("RESERVE_EXTEND_MINUTES", 20)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rateLimit, err := intEnv("RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	checkoutCfg := CheckoutConfig{
		HoldTTL:            time.Duration(holdMinutes) * time.Minute,
		PaymentExtend:      time.Duration(extendMinutes) * time.Minute,
		RateLimitPerMinute: rateLimit,
	}

	return &Config{
		Server:      serverCfg,
		Store:       store,
		Postgres:    postgresCfg,
		Redis:       redisCfg,
		NowPayments: npCfg,
		Brevo:       brevoCfg,
		Admin:       adminCfg,
		Checkout:    checkoutCfg,
	}, nil
}

func postgresFromEnv() (PostgresConfig, error) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return PostgresConfig{URL: url}, nil
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER or DATABASE_URL")
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	return PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     postgresHost,
		Port:     postgresPort,
		SSLMode:  postgresSSLMode,
	}, nil
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
