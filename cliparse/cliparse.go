package cliparse

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	// Secrets shared with the identity provider
	JWTSecret         string
	IdentityAPIURL    string
	IdentitySecretKey string

	RedisURL     string
	AvatarBucket string
	AWSRegion    string

	SiteBaseURL string
	CORSOrigins []string
}

// ParseFlags reads configuration from flags, then the environment, then an
// optional .env file in the working directory.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var origins string

	fs := flag.NewFlagSet("pollspree", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for vote idempotency records")
	fs.StringVar(&cfg.SiteBaseURL, "site", "", "Public site URL used in the sitemap")
	fs.StringVar(&origins, "origins", "", "Comma separated CORS origins")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Session token secret (prefer env)")
	fs.StringVar(&cfg.IdentitySecretKey, "identity-key", "", "Identity provider secret key (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = getEnv("DATABASE_TYPE", DatabaseSQLite)
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET required")
	}

	if cfg.IdentitySecretKey == "" {
		cfg.IdentitySecretKey = os.Getenv("IDENTITY_SECRET_KEY")
	}
	cfg.IdentityAPIURL = getEnv("IDENTITY_API_URL", "https://api.clerk.com")

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}
	cfg.AvatarBucket = os.Getenv("AVATAR_BUCKET")
	cfg.AWSRegion = getEnv("AWS_REGION", "us-east-1")

	if cfg.SiteBaseURL == "" {
		cfg.SiteBaseURL = getEnv("SITE_BASE_URL", "https://pollspree.com")
	}
	cfg.SiteBaseURL = strings.TrimRight(cfg.SiteBaseURL, "/")

	if origins == "" {
		origins = getEnv("CORS_ORIGINS", "*")
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
