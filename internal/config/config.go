package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/totegamma/portfolio/internal/domain"
)

type Config struct {
	Server Server `yaml:"server"`
	Auth   Auth   `yaml:"auth"`
}

type Server struct {
	ListenAddr         string    `yaml:"listenAddr"`
	Driver             string    `yaml:"driver"` // postgres, sqlite
	Dsn                string    `yaml:"dsn"`
	RedisAddr          string    `yaml:"redisAddr"`
	RedisPassword      string    `yaml:"redisPassword"`
	RedisDB            int       `yaml:"redisDB"`
	MemcachedAddr      string    `yaml:"memcachedAddr"`
	EnableTrace        bool      `yaml:"enableTrace"`
	TraceEndpoint      string    `yaml:"traceEndpoint"`
	StoragePath        string    `yaml:"storagePath"`
	PublicBaseURL      string    `yaml:"publicBaseURL"`
	Serializable       *bool     `yaml:"serializable"`
	AllowedOrigins     []string  `yaml:"allowedOrigins"`
	RevalidationURL    string    `yaml:"revalidationURL"`
	RevalidationSecret string    `yaml:"revalidationSecret"`
	RateLimit          RateLimit `yaml:"rateLimit"`
}

type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type Auth struct {
	ListenAddr string `yaml:"listenAddr"`
	JwtSecret  string `yaml:"jwtSecret"`
	// ServiceURL points at a remote auth service. Empty means tokens are
	// verified locally with JwtSecret.
	ServiceURL string `yaml:"serviceURL"`
}

// Load reads the YAML file at path (optional when empty or missing), applies
// .env and environment overrides and fills defaults.
func Load(path string) (Config, error) {
	var config Config

	if path != "" {
		file, err := os.Open(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrap(err, "open config")
		}
		if err == nil {
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(&config); err != nil {
				return Config{}, errors.Wrap(err, "decode config")
			}
		}
	}

	// a missing .env is normal in production
	_ = godotenv.Load()

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Dsn, "PORTFOLIO_DSN")
	setString(&c.Server.Driver, "PORTFOLIO_DRIVER")
	setString(&c.Server.ListenAddr, "PORTFOLIO_LISTEN")
	setString(&c.Server.RedisAddr, "REDIS_ADDR")
	setString(&c.Server.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Server.MemcachedAddr, "MEMCACHED_ADDR")
	setString(&c.Server.StoragePath, "STORAGE_PATH")
	setString(&c.Server.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&c.Server.RevalidationURL, "NEXT_REVALIDATION_URL")
	setString(&c.Server.RevalidationSecret, "REVALIDATION_SECRET")
	setString(&c.Auth.JwtSecret, "JWT_SECRET")
	setString(&c.Auth.ServiceURL, "AUTH_SERVICE_URL")
	setString(&c.Auth.ListenAddr, "AUTH_LISTEN")

	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		if db, err := strconv.Atoi(v); err == nil {
			c.Server.RedisDB = db
		}
	}
	if v, ok := os.LookupEnv("ENABLE_TRACE"); ok {
		c.Server.EnableTrace, _ = strconv.ParseBool(v)
	}
	setString(&c.Server.TraceEndpoint, "TRACE_ENDPOINT")

	for _, key := range []string{"FRONTEND_URL", "FRONTEND_URL2"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" && !contains(c.Server.AllowedOrigins, v) {
			c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, v)
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8000"
	}
	if c.Server.Driver == "" {
		c.Server.Driver = "postgres"
	}
	if c.Server.StoragePath == "" {
		c.Server.StoragePath = "./data/files"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost" + c.Server.ListenAddr
	}
	if c.Server.Serializable == nil {
		serializable := true
		c.Server.Serializable = &serializable
	}
	if c.Server.RateLimit.Requests == 0 {
		c.Server.RateLimit.Requests = 5
	}
	if c.Server.RateLimit.Window == 0 {
		c.Server.RateLimit.Window = time.Minute
	}
	if c.Auth.ListenAddr == "" {
		c.Auth.ListenAddr = ":8001"
	}
}

func (c *Config) Validate() error {
	if c.Server.Dsn == "" {
		return errors.New("server.dsn (or PORTFOLIO_DSN) is required")
	}
	if c.Auth.JwtSecret == "" && c.Auth.ServiceURL == "" {
		return errors.New("auth.jwtSecret (or JWT_SECRET) or auth.serviceURL is required")
	}
	if c.Server.RateLimit.Requests < 0 || c.Server.RateLimit.Window < 0 {
		return errors.New("server.rateLimit must not be negative")
	}
	return nil
}

// Domain converts to the settings the application layers consume.
func (c Config) Domain() domain.Config {
	return domain.Config{
		ListenAddr:         c.Server.ListenAddr,
		PublicBaseURL:      c.Server.PublicBaseURL,
		AllowedOrigins:     c.Server.AllowedOrigins,
		Serializable:       c.Server.Serializable != nil && *c.Server.Serializable,
		RevalidationURL:    c.Server.RevalidationURL,
		RevalidationSecret: c.Server.RevalidationSecret,
		RateLimit: domain.RateLimit{
			Requests: c.Server.RateLimit.Requests,
			Window:   c.Server.RateLimit.Window,
		},
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
