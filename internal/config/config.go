package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	Conversion  ConversionConfig  `mapstructure:"conversion"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Watch       WatchConfig       `mapstructure:"watch"`
	AI          AIConfig          `mapstructure:"ai"`
}

type ApplicationConfig struct {
	Name           string   `mapstructure:"name"`
	Version        string   `mapstructure:"version"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Convert requests per minute per client address, 0 disables the limit.
	RateLimit int  `mapstructure:"rate_limit"`
	Debug     bool `mapstructure:"debug"`
}

func (c *ApplicationConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultDPI is the rasterization resolution when none is configured.
const DefaultDPI = 200

type ConversionConfig struct {
	OfficeBinary  string        `mapstructure:"office_binary"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RasterBackend string        `mapstructure:"raster_backend"` // fitz, poppler
	DPI           float64       `mapstructure:"dpi"`
	TempDir       string        `mapstructure:"temp_dir"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

// Enabled reports whether any connection settings were given.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

func (c *DatabaseConfig) GetConnectStr() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, port, c.DBName, sslmode)

	if c.Options != "" {
		// space -> %20 is enough for the "-c key=value" options we pass
		connStr += "&options=" + strings.ReplaceAll(c.Options, " ", "%20")
	}

	return connStr
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	// PublicURL replaces the endpoint in returned object URLs (CDN, proxy).
	PublicURL string `mapstructure:"public_url"`
}

func (c *StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type WatchConfig struct {
	Inbox    string        `mapstructure:"inbox"`
	Outbox   string        `mapstructure:"outbox"`
	Done     string        `mapstructure:"done"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type AIConfig struct {
	ActiveProvider string                      `mapstructure:"active_provider"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
	Prompt         string                      `mapstructure:"prompt"`
}

type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // gemini, openai
	Key         string  `mapstructure:"key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Active returns the settings of the active provider, if configured.
func (c *AIConfig) Active() (ProviderSettings, bool) {
	p, ok := c.Providers[c.ActiveProvider]
	return p, ok
}

const DefaultPrompt = "Describe the attached slides. Point out any fonts that are inconsistent with the theme."

func LoadConfig() (*Config, error) {
	return Load("config.yaml")
}

// Load reads path if it exists, then environment variables, then defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug(".env file not found, using system environment variables")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	mappings := []struct {
		key, env string
	}{
		{"application.host", "HOST"},
		{"application.port", "PORT"},
		{"application.max_upload_mb", "MAX_UPLOAD_MB"},
		{"application.rate_limit", "RATE_LIMIT"},
		{"application.debug", "DEBUG"},

		{"conversion.office_binary", "OFFICE_BINARY"},
		{"conversion.timeout", "CONVERSION_TIMEOUT"},
		{"conversion.raster_backend", "RASTER_BACKEND"},
		{"conversion.dpi", "RASTER_DPI"},
		{"conversion.temp_dir", "CONVERSION_TEMP_DIR"},

		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},

		{"storage.endpoint", "S3_ENDPOINT"},
		{"storage.access_key", "S3_ACCESS_KEY"},
		{"storage.secret_key", "S3_SECRET_KEY"},
		{"storage.bucket", "S3_BUCKET"},
		{"storage.region", "S3_REGION"},
		{"storage.use_ssl", "S3_USE_SSL"},
		{"storage.public_url", "S3_PUBLIC_URL"},

		{"watch.inbox", "WATCH_INBOX"},
		{"watch.outbox", "WATCH_OUTBOX"},
		{"watch.done", "WATCH_DONE"},
		{"watch.debounce", "WATCH_DEBOUNCE"},

		{"ai.active_provider", "AI_PROVIDER"},
		{"ai.prompt", "AI_PROMPT"},
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},
		{"ai.providers.openai.key", "OPENAI_API_KEY"},
		{"ai.providers.openai.model", "OPENAI_MODEL"},
	}

	for _, m := range mappings {
		if err := v.BindEnv(m.key, m.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", m.env, err)
		}
	}

	v.SetDefault("application.name", "SlideLens")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.max_upload_mb", 100)
	v.SetDefault("application.allowed_origins", []string{"*"})
	v.SetDefault("application.rate_limit", 30)
	v.SetDefault("conversion.timeout", "2m")
	v.SetDefault("conversion.raster_backend", "fitz")
	v.SetDefault("conversion.dpi", DefaultDPI)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("watch.inbox", "data/inbox")
	v.SetDefault("watch.outbox", "data/outbox")
	v.SetDefault("watch.debounce", "2s")
	v.SetDefault("ai.active_provider", "gemini")
	v.SetDefault("ai.prompt", DefaultPrompt)
	v.SetDefault("ai.providers.gemini.driver", "gemini")
	v.SetDefault("ai.providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("ai.providers.openai.driver", "openai")
	v.SetDefault("ai.providers.openai.model", "gpt-4o")

	if err := v.ReadInConfig(); err != nil {
		zap.L().Debug("config file not loaded", zap.String("path", path), zap.Error(err))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}
