package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// DryRun runs against an in-memory repository; DatabaseURL may be empty.
	DryRun      bool
	DatabaseURL string `validate:"required_unless=DryRun true"`

	// DBName replaces the database of DatabaseURL when set (Postgres only).
	DBName string

	TwoGISAPIKey     string
	TimetableURLMask string        `validate:"required,contains=%s"`
	TimetableCoding  string        `validate:"required"`
	HTTPTimeout      time.Duration `validate:"gte=0"`
	UserAgent        string

	NATSURL           string `validate:"omitempty,url"`
	NATSSubjectPrefix string `validate:"required"`
	LogNATSSubjects   bool
	MetricsAddr       string

	Location     *time.Location `validate:"required"`
	LogLevel     string         `validate:"omitempty,oneof=debug info warn warning error"`
	OTLPEndpoint string
}

const (
	DefaultTimetableURLMask = "http://transport.nov.ru/urban_trans/1/?mar=%s"
	DefaultTimetableCoding  = "windows-1251"
	DefaultSubjectPrefix    = "transit.sync"
)

func Load() (*Config, error) { return LoadFor(false) }

// LoadFor is Load with the database requirement lifted when dryRun is set.
func LoadFor(dryRun bool) (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{DryRun: dryRun}

	cfg.DBName = strings.TrimSpace(os.Getenv("DB_NAME"))
	dsn, err := databaseURL(cfg.DBName != "", dryRun)
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dsn

	cfg.TwoGISAPIKey = os.Getenv("TWOGIS_API_KEY")
	cfg.TimetableURLMask = getenvDefault("TIMETABLE_URL_MASK", DefaultTimetableURLMask)
	cfg.TimetableCoding = getenvDefault("TIMETABLE_CODING", DefaultTimetableCoding)
	cfg.UserAgent = os.Getenv("HTTP_USER_AGENT")

	// HTTP timeout (seconds); 0 waits forever
	if v := os.Getenv("HTTP_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SEC: %q", v)
		}
		cfg.HTTPTimeout = time.Duration(sec) * time.Second
	}

	// Empty NATS_URL disables sync events.
	cfg.NATSURL = strings.TrimSpace(os.Getenv("NATS_URL"))
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", DefaultSubjectPrefix)
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN (postgres:// or sqlite:), else
// builds one from PG* vars. A dry run without any of them gets "".
func databaseURL(haveDBName, dryRun bool) (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	// DB_NAME picks the database later; connect through 'postgres' meanwhile.
	if db == "" && haveDBName {
		db = "postgres"
	}
	if db == "" {
		if dryRun {
			return "", nil
		}
		return "", errors.New("PGDATABASE or DATABASE_URL must be set (set DATABASE_URL=sqlite:transit.db for a local file)")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
