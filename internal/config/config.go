package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StoreMySQL    = "mysql"
	StoreDynamoDB = "dynamodb"

	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`

	StoreDriver       string `envconfig:"STORE_DRIVER" default:"memory"`
	DBDSN             string `envconfig:"DB_DSN"`
	AWSRegion         string `envconfig:"AWS_REGION" default:"us-east-1"`
	DynamoDBTable     string `envconfig:"DYNAMODB_TABLE" default:"orders"`
	DynamoDBCodeIndex string `envconfig:"DYNAMODB_CODE_INDEX" default:"verification_code-index"`
	DynamoDBEndpoint  string `envconfig:"DYNAMODB_ENDPOINT"` // DynamoDB Local

	Bold        Bold
	MercadoPago MercadoPago

	SupportAPIToken string `envconfig:"SUPPORT_API_TOKEN"`

	ArchiveDriver   string `envconfig:"ARCHIVE_DRIVER" default:"none"`
	ArchiveLocalDir string `envconfig:"ARCHIVE_LOCAL_DIR" default:"./storage/webhooks"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
	ArchiveS3Prefix string `envconfig:"ARCHIVE_S3_PREFIX" default:"webhooks"`

	KafkaBrokers     string `envconfig:"KAFKA_BROKERS"`
	KafkaStatusTopic string `envconfig:"KAFKA_STATUS_TOPIC" default:"order-status"`
}

type Bold struct {
	Enabled         bool   `envconfig:"BOLD_ENABLED" default:"true"`
	WebhookSecret   string `envconfig:"BOLD_WEBHOOK_SECRET"`
	IntegritySecret string `envconfig:"BOLD_INTEGRITY_SECRET"`
}

type MercadoPago struct {
	Enabled       bool          `envconfig:"MERCADOPAGO_ENABLED" default:"true"`
	AccessToken   string        `envconfig:"MERCADOPAGO_ACCESS_TOKEN"`
	WebhookSecret string        `envconfig:"MERCADOPAGO_WEBHOOK_SECRET"`
	APIBaseURL    string        `envconfig:"MERCADOPAGO_API_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout       time.Duration `envconfig:"MERCADOPAGO_TIMEOUT" default:"5s"`
}

// Load reads the process environment and validates it. A returned error
// means the process must not start.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required when STORE_DRIVER=mysql"))
		}
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required when STORE_DRIVER=dynamodb"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER: %s", c.StoreDriver))
	}

	if c.Bold.Enabled {
		if c.Bold.WebhookSecret == "" {
			errs = append(errs, errors.New("BOLD_WEBHOOK_SECRET is required when Bold is enabled"))
		}
		if c.Bold.IntegritySecret == "" {
			errs = append(errs, errors.New("BOLD_INTEGRITY_SECRET is required when Bold is enabled"))
		}
	}

	if c.MercadoPago.Enabled {
		if c.MercadoPago.AccessToken == "" {
			errs = append(errs, errors.New("MERCADOPAGO_ACCESS_TOKEN is required when Mercado Pago is enabled"))
		}
		if c.MercadoPago.Timeout <= 0 {
			errs = append(errs, errors.New("MERCADOPAGO_TIMEOUT must be positive"))
		}
	}

	switch c.ArchiveDriver {
	case ArchiveNone, ArchiveLocal:
	case ArchiveS3:
		if c.ArchiveS3Bucket == "" || c.AWSRegion == "" {
			errs = append(errs, errors.New("ARCHIVE_S3_BUCKET and AWS_REGION are required when ARCHIVE_DRIVER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ARCHIVE_DRIVER: %s", c.ArchiveDriver))
	}

	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL: %q", c.PublicBaseURL))
		}
	}

	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CallbackURL joins a path onto PUBLIC_BASE_URL for redirect/callback URLs
// handed to payment providers.
func (c *Config) CallbackURL(path string) string {
	base := strings.TrimRight(c.PublicBaseURL, "/")
	if base == "" {
		return path
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

func (c *Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
