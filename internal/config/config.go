package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	App      AppConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type AppConfig struct {
	// Timezone pins every displayed timestamp to one restaurant zone.
	Timezone string
	// SessionTTL is the expiry window refreshed on every cart write.
	SessionTTL time.Duration
	// LockTTL bounds how long a crashed client can hold a cart line.
	LockTTL time.Duration
	// AdminPIN guards sold-out and inventory writes. Empty disables them.
	AdminPIN string
	// AllowedOrigins restricts CORS; empty means allow all.
	AllowedOrigins []string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "0.0.0.0"
	}

	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8000"
	}

	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: serverHost,
		Port: serverPort,
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPortStr := os.Getenv("POSTGRES_PORT")
	if postgresPortStr == "" {
		postgresPortStr = "5432"
	}

	postgresPort, err := strconv.Atoi(postgresPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid POSTGRES_PORT: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     postgresHost,
		Port:     postgresPort,
		SSLMode:  postgresSSLMode,
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisCfg := RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}

	sessionTTL := 24 * time.Hour
	if s := os.Getenv("SESSION_TTL"); s != "" {
		sessionTTL, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid SESSION_TTL: %w", op, err)
		}
	}

	lockTTL := 12 * time.Second
	if s := os.Getenv("LOCK_TTL"); s != "" {
		lockTTL, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid LOCK_TTL: %w", op, err)
		}
	}

	var origins []string
	if s := os.Getenv("ALLOWED_ORIGINS"); s != "" {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	appCfg := AppConfig{
		Timezone:       os.Getenv("APP_TIMEZONE"),
		SessionTTL:     sessionTTL,
		LockTTL:        lockTTL,
		AdminPIN:       strings.TrimSpace(os.Getenv("ADMIN_PIN")),
		AllowedOrigins: origins,
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		App:      appCfg,
	}, nil
}
