package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"docforest/internal/domain"
	"docforest/internal/mpath"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	LogLevel    string
	LogDir      string

	// Forest store. An empty DatabaseURL selects the in-memory store.
	DatabaseURL    string
	TablePrefix    string
	ForestStepLen  int
	ForestAlphabet string

	MediaURL string

	// Blob store. An empty S3Bucket selects the in-memory store.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// Reconciler
	RedisURL             string
	ReconcileConcurrency int
	ReconcilePageSize    int

	// Auth. An empty JWKS URL trusts the X-User-ID header (development only).
	OIDCJWKSURL string
	AdminToken  string

	// Conversion service
	ConversionURL     string
	ConversionAPIKey  string
	ConversionTimeout time.Duration
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogLevel:    getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		LogDir:      getEnv("LOG_DIR", ""),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		TablePrefix:    getTablePrefix(env),
		ForestStepLen:  getEnvInt("FOREST_STEP_LEN", mpath.DefaultStepLen),
		ForestAlphabet: getEnv("FOREST_ALPHABET", mpath.Base36),

		MediaURL: getEnv("MEDIA_URL", "/media/"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),

		RedisURL:             getEnv("REDIS_URL", ""),
		ReconcileConcurrency: getEnvInt("RECONCILE_CONCURRENCY", 4),
		ReconcilePageSize:    getEnvInt("RECONCILE_PAGE_SIZE", 1000),

		OIDCJWKSURL: getEnv("OIDC_JWKS_URL", ""),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),

		ConversionURL:     getEnv("CONVERSION_URL", ""),
		ConversionAPIKey:  getEnv("CONVERSION_API_KEY", ""),
		ConversionTimeout: getEnvDuration("CONVERSION_TIMEOUT", 10*time.Second),
	}
}

// Validate checks settings every entry point needs.
func (c *Config) Validate() error {
	if _, err := c.Codec(); err != nil {
		return fmt.Errorf("%w: forest codec: %v", domain.ErrConfig, err)
	}
	if !strings.HasSuffix(c.MediaURL, "/") {
		return fmt.Errorf("%w: MEDIA_URL must end with /", domain.ErrConfig)
	}
	if c.ReconcileConcurrency < 1 {
		return fmt.Errorf("%w: RECONCILE_CONCURRENCY must be positive", domain.ErrConfig)
	}
	if c.ReconcilePageSize < 1 || c.ReconcilePageSize > 1000 {
		return fmt.Errorf("%w: RECONCILE_PAGE_SIZE must be between 1 and 1000", domain.ErrConfig)
	}
	if c.Environment == "prod" && c.OIDCJWKSURL == "" {
		return fmt.Errorf("%w: OIDC_JWKS_URL is required in prod", domain.ErrConfig)
	}
	return nil
}

// ValidateBlobStore checks the settings the reconciler needs to reach S3.
func (c *Config) ValidateBlobStore() error {
	var missing []string
	for name, v := range map[string]string{
		"S3_BUCKET":     c.S3Bucket,
		"S3_ACCESS_KEY": c.S3AccessKey,
		"S3_SECRET_KEY": c.S3SecretKey,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %s", domain.ErrConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Codec builds the path codec for the configured step length and alphabet.
func (c *Config) Codec() (*mpath.Codec, error) {
	return mpath.New(c.ForestStepLen, c.ForestAlphabet)
}

func getDefaultLogLevel(env string) string {
	if env == "dev" {
		return "debug"
	}
	return "info"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix, ok := os.LookupEnv("TABLE_PREFIX"); ok {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

