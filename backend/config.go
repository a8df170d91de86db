package backend

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to each component.
type Config struct {
	StaticPort string
	StaticRoot string
	APIPort    string

	DB DBConfig

	RedisURL  string
	JWTSecret string

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// DBConfig holds the PostgreSQL connection parameters.
type DBConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSL      bool
}

// DSN returns URL when set, otherwise a postgres:// DSN assembled from the parts.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := "disable"
	if c.SSL {
		sslmode = "require"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := Config{
		StaticPort: getEnv("PORT", "3000"),
		StaticRoot: getEnv("STATIC_ROOT", "./frontend"),
		APIPort:    getEnv("API_PORT", "4000"),
		DB: DBConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "panaderia"),
		},
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}

	if v := os.Getenv("DB_SSL"); v != "" {
		ssl, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("DB_SSL: %w", err)
		}
		cfg.DB.SSL = ssl
	}

	for name, port := range map[string]string{"PORT": cfg.StaticPort, "API_PORT": cfg.APIPort, "DB_PORT": cfg.DB.Port} {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return Config{}, fmt.Errorf("%s: invalid port %q", name, port)
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
