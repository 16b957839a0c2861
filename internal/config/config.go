package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gold_debts/internal/config/connections/mongo"
	"gold_debts/internal/config/connections/postgres"
	"gold_debts/internal/config/connections/s3"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

type Config struct {
	Port      string
	LogLevel  string
	CacheFile string
	StaticDir string

	AuthUsername       string
	AuthPassword       string
	AuthPasswordBcrypt string

	RemoteDriver    string
	StateID         string
	MongoCollection string
	PGTable         string

	SyncMode        string
	SyncTimeout     time.Duration
	LateAfterDays   int
	ImportBatchSize int
	ImportDir       string

	MongoInfo    mongo.ConnectionInfo
	PostgresInfo postgres.ConnectionInfo
	S3Enabled    bool
	S3Info       s3.ConnectionInfo

	S3       *s3.S3
	Mongo    *mongo.Mongo
	Postgres *postgres.Postgres
}

// Load reads settings from the environment (and .env when present) without
// opening any connection.
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Port:      getenv("SERVER_PORT", getenv("PORT", "5000")),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		CacheFile: getenv("CACHE_FILE", "./debts.json"),
		StaticDir: getenv("STATIC_DIR", "./public"),

		AuthUsername:       getenv("AUTH_USERNAME", "gold"),
		AuthPassword:       os.Getenv("AUTH_PASSWORD"),
		AuthPasswordBcrypt: os.Getenv("AUTH_PASSWORD_BCRYPT"),

		RemoteDriver:    strings.ToLower(getenv("REMOTE_DRIVER", DriverMongo)),
		StateID:         getenv("STATE_ID", "debts_state_v1"),
		MongoCollection: getenv("MONGO_COLLECTION", "app_state"),
		PGTable:         getenv("PG_TABLE", "app_state"),

		SyncMode:        strings.ToLower(getenv("SYNC_MODE", "async")),
		SyncTimeout:     getenvDuration("SYNC_TIMEOUT", 15*time.Second),
		LateAfterDays:   getenvInt("LATE_AFTER_DAYS", 30),
		ImportBatchSize: getenvInt("IMPORT_BATCH_SIZE", 500),
		ImportDir:       os.Getenv("IMPORT_DIR"),

		MongoInfo: mongo.ConnectionInfo{
			URI:                    os.Getenv("MONGODB_URI"),
			Scheme:                 getenv("MONGO_SCHEME", "mongodb"),
			User:                   os.Getenv("MONGO_USER"),
			Password:               os.Getenv("MONGO_PASSWORD"),
			Host:                   getenv("MONGO_HOST", "127.0.0.1"),
			Port:                   getenv("MONGO_PORT", "27017"),
			DB:                     getenv("MONGO_DB", "debts_app"),
			AuthSource:             os.Getenv("MONGO_AUTH_SOURCE"),
			MaxPoolSize:            uint64(getenvInt("MONGO_MAX_POOL", 5)),
			ServerSelectionTimeout: getenvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 7*time.Second),
		},
		PostgresInfo: postgres.ConnectionInfo{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     getenv("PG_PORT", "5432"),
			User:     getenv("PG_USER", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			DB:       getenv("PG_DB", "debts_app"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
			MaxConns: int32(getenvInt("PG_MAX_CONNS", 5)),
		},
		S3Enabled: getenvBool("S3_ENABLED", false),
		S3Info: s3.ConnectionInfo{
			Endpoint:  getenv("AWS_ENDPOINT", "localhost:9000"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:    getenv("AWS_DEFAULT_REGION", "us-east-1"),
			Bucket:    getenv("AWS_BUCKET", "debts-backups"),
			UseSSL:    getenvBool("AWS_USE_SSL", false),
		},
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.RemoteDriver {
	case DriverMongo, DriverPostgres, DriverNone:
	default:
		errs = append(errs, fmt.Errorf("REMOTE_DRIVER: unknown driver %q", c.RemoteDriver))
	}
	switch c.SyncMode {
	case "async", "sync":
	default:
		errs = append(errs, fmt.Errorf("SYNC_MODE: must be async or sync, got %q", c.SyncMode))
	}
	if c.LateAfterDays < 0 {
		errs = append(errs, errors.New("LATE_AFTER_DAYS: must not be negative"))
	}
	if c.AuthPassword == "" && c.AuthPasswordBcrypt == "" {
		errs = append(errs, errors.New("AUTH_PASSWORD or AUTH_PASSWORD_BCRYPT must be set"))
	}
	return errors.Join(errs...)
}

// Init loads settings and builds the connections they select. Connections
// are lazy; use CheckConnections to ping them.
func Init(ctx context.Context) (*Config, error) {
	c, err := Load()
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Connect(ctx context.Context) error {
	switch c.RemoteDriver {
	case DriverMongo:
		mg, err := mongo.NewConnection(ctx, c.MongoInfo)
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		c.Mongo = mg
	case DriverPostgres:
		pg, err := postgres.NewConnection(ctx, c.PostgresInfo)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		c.Postgres = pg
	}

	if c.S3Enabled {
		s3c, err := s3.NewConnection(c.S3Info)
		if err != nil {
			return fmt.Errorf("s3 connect: %w", err)
		}
		c.S3 = s3c
	}
	return nil
}

func (c *Config) CheckConnections(ctx context.Context) error {
	var g errgroup.Group
	errs := make([]error, 3)

	if c.Mongo != nil {
		g.Go(func() error {
			if err := c.Mongo.Ping(ctx); err != nil {
				errs[0] = fmt.Errorf("mongo ping failed: %w", err)
			}
			return nil
		})
	}
	if c.Postgres != nil {
		g.Go(func() error {
			if err := c.Postgres.Ping(ctx); err != nil {
				errs[1] = fmt.Errorf("postgres ping failed: %w", err)
			}
			return nil
		})
	}
	if c.S3 != nil {
		g.Go(func() error {
			errs[2] = c.S3.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (c *Config) Close(ctx context.Context) error {
	var errs []error
	if c.Mongo != nil {
		if err := c.Mongo.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongo close: %w", err))
		}
	}
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return v
}

func getenvBool(k string, def bool) bool {
	v, err := strconv.ParseBool(getenv(k, ""))
	if err != nil {
		return def
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getenv(k, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
