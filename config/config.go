package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	Reports   ReportsConfig   `yaml:"reports"`
	Render    RenderConfig    `yaml:"render"`
	Minio     MinioConfig     `yaml:"minio"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Users     []User          `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// PublicURL is the base of the inspector links. Empty means the
	// scheme and host of the creating request.
	PublicURL string `yaml:"public_url"`
	// CORSOrigins lists the front-end origins; empty allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

// StoreConfig selects the persistence driver: mongo, sqlite, postgres or memory.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type ReportsConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

type RenderConfig struct {
	TemplateSource string `yaml:"template_source"` // file, minio
	TemplatePath   string `yaml:"template_path"`
	TemplateObject string `yaml:"template_object"`
	ServiceCode    string `yaml:"service_code"`
	Timezone       string `yaml:"timezone"`
	Archive        bool   `yaml:"archive"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Enabled reports whether an object store is configured.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

type RateLimitConfig struct {
	Requests      int    `yaml:"requests"`
	WindowSeconds int    `yaml:"window_seconds"`
	Backend       string `yaml:"backend"` // memory, redis
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// User is a seed account created at startup when missing.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Load reads the YAML file at path, applies environment overrides and fills
// defaults. A missing file is not an error; the environment and defaults
// are enough to start a development server.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Store.URI = v
		if c.Store.Driver == "" {
			c.Store.Driver = "mongo"
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.AMQP.URL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24 * 30
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Database == "" {
		c.Store.Database = "laporan"
	}
	if c.Reports.DefaultLimit <= 0 {
		c.Reports.DefaultLimit = 10
	}
	if c.Reports.MaxLimit <= 0 {
		c.Reports.MaxLimit = 100
	}
	if c.Reports.DefaultLimit > c.Reports.MaxLimit {
		c.Reports.DefaultLimit = c.Reports.MaxLimit
	}
	if c.Render.TemplateSource == "" {
		c.Render.TemplateSource = "file"
	}
	if c.Render.TemplatePath == "" {
		c.Render.TemplatePath = "templates/template-laporan.docx"
	}
	if c.Render.TemplateObject == "" {
		c.Render.TemplateObject = "templates/template-laporan.docx"
	}
	if c.Render.ServiceCode == "" {
		c.Render.ServiceCode = "IPP"
	}
	if c.Render.Timezone == "" {
		c.Render.Timezone = "Asia/Jakarta"
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 100
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "reports"
	}
}
