package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// Pflicht für API und Laden, siehe RequireDatabase
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	HTTPPort       string `envconfig:"HTTP_PORT" default:"8000"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000"`
	AutoMigrate    bool   `envconfig:"AUTO_MIGRATE" default:"true"`
	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`

	// Schützt /metrics, wenn gesetzt
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"50"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"500"`

	// ETL
	ETLOutputDir      string        `envconfig:"ETL_OUTPUT_DIR" default:"data/processed"`
	ETLCacheDir       string        `envconfig:"ETL_CACHE_DIR" default:"data/raw"`
	ETLUserAgent      string        `envconfig:"ETL_USER_AGENT" default:"RedSubContinent-Bot/0.1 (Historical data research project; https://github.com/redsubcontinent; respects robots.txt)"`
	ETLRequestDelay   time.Duration `envconfig:"ETL_REQUEST_DELAY" default:"1s"`
	ETLMaxRetries     int           `envconfig:"ETL_MAX_RETRIES" default:"3"`
	ETLRetryDelay     time.Duration `envconfig:"ETL_RETRY_DELAY" default:"5s"`
	ETLTimeout        time.Duration `envconfig:"ETL_TIMEOUT" default:"30s"`
	ETLCronSchedule   string        `envconfig:"ETL_CRON_SCHEDULE" default:"0 3 * * 0"`
	ETLMetricsPort    string        `envconfig:"ETL_METRICS_PORT" default:"9102"`
	ETLSourcesFile    string        `envconfig:"ETL_SOURCES_FILE"`
	NominatimURL      string        `envconfig:"NOMINATIM_URL"`
	NominatimInterval time.Duration `envconfig:"NOMINATIM_INTERVAL" default:"1s"`

	// S3-Archiv für ETL-Snapshots, optional
	S3Endpoint string `envconfig:"S3_ENDPOINT"`
	S3Region   string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Key      string `envconfig:"S3_KEY"`
	S3Secret   string `envconfig:"S3_SECRET"`
	S3Bucket   string `envconfig:"S3_BUCKET"`
	S3Prefix   string `envconfig:"S3_PREFIX" default:"etl"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// AllowedOrigins liefert die CORS-Origins als Liste.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ArchiveEnabled meldet, ob ein S3-Bucket konfiguriert ist.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

// Validate prüft Werte, die envconfig nicht abdecken kann.
func (c *Config) Validate() error {
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive, got %d", c.MaxPageSize)
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be within 1..%d, got %d", c.MaxPageSize, c.DefaultPageSize)
	}
	return nil
}

// RequireDatabase prüft, ob die Verbindungsdaten der Datenbank gesetzt sind.
func (c *Config) RequireDatabase() error {
	var missing []string
	for _, f := range []struct{ key, val string }{
		{"DB_HOST", c.DBHost}, {"DB_USER", c.DBUser}, {"DB_PASSWORD", c.DBPassword}, {"DB_NAME", c.DBName},
	} {
		if f.val == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required key(s) missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen, inklusive Datenbank.
func Load() (*Config, error) {
	c, err := LoadETL()
	if err != nil {
		return nil, err
	}
	if err := c.RequireDatabase(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadETL lädt die Konfiguration ohne Datenbankpflicht, z.B. für Scrapen und Bereinigen.
func LoadETL() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
