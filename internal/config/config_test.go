package config

import (
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"DATABASE_URL", "PG_DSN", "DB_NAME", "PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE",
	"TWOGIS_API_KEY", "TIMETABLE_URL_MASK", "TIMETABLE_CODING", "HTTP_TIMEOUT_SEC", "HTTP_USER_AGENT",
	"NATS_URL", "NATS_SUBJECT_PREFIX", "LOG_NATS_SUBJECTS", "METRICS_ADDR", "TZ", "LOG_LEVEL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "sqlite::memory:")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseURL != "sqlite::memory:" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.TimetableURLMask != DefaultTimetableURLMask {
		t.Errorf("TimetableURLMask = %q", cfg.TimetableURLMask)
	}
	if cfg.TimetableCoding != DefaultTimetableCoding {
		t.Errorf("TimetableCoding = %q", cfg.TimetableCoding)
	}
	if cfg.HTTPTimeout != 0 {
		t.Errorf("HTTPTimeout = %v, want 0", cfg.HTTPTimeout)
	}
	if cfg.NATSURL != "" || cfg.NATSSubjectPrefix != DefaultSubjectPrefix {
		t.Errorf("NATS = %q %q", cfg.NATSURL, cfg.NATSSubjectPrefix)
	}
	if cfg.Location != time.Local {
		t.Errorf("Location = %v, want Local", cfg.Location)
	}
}

func TestLoadFromPGVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PGHOST", "db")
	t.Setenv("PGUSER", "sync")
	t.Setenv("PGPASSWORD", "p@ss")
	t.Setenv("DB_NAME", "novgorod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := "postgres://sync:p%40ss@db:5432/postgres?sslmode=disable"
	if cfg.DatabaseURL != want {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, want)
	}
	if cfg.DBName != "novgorod" {
		t.Errorf("DBName = %q", cfg.DBName)
	}
}

func TestLoadDryRunWithoutDatabase(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFor(true)
	if err != nil {
		t.Fatalf("LoadFor(true) failed: %v", err)
	}
	if !cfg.DryRun || cfg.DatabaseURL != "" {
		t.Errorf("DryRun = %v, DatabaseURL = %q", cfg.DryRun, cfg.DatabaseURL)
	}

	// a configured database is still picked up, and still required otherwise
	t.Setenv("DATABASE_URL", "sqlite:transit.db")
	if cfg, err = LoadFor(true); err != nil || cfg.DatabaseURL != "sqlite:transit.db" {
		t.Errorf("LoadFor(true) = %+v, %v", cfg, err)
	}
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadFor(false); err == nil {
		t.Error("LoadFor(false) succeeded without a database")
	}
}

func TestLoadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/transit")
	t.Setenv("HTTP_TIMEOUT_SEC", "15")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("LOG_NATS_SUBJECTS", "yes")
	t.Setenv("TZ", "Europe/Moscow")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if !cfg.LogNATSSubjects {
		t.Error("LogNATSSubjects = false")
	}
	if cfg.Location.String() != "Europe/Moscow" {
		t.Errorf("Location = %v", cfg.Location)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no database", map[string]string{}, "PGDATABASE"},
		{"mask without placeholder", map[string]string{"DATABASE_URL": "sqlite::memory:", "TIMETABLE_URL_MASK": "http://example.org/"}, "TimetableURLMask"},
		{"negative timeout", map[string]string{"DATABASE_URL": "sqlite::memory:", "HTTP_TIMEOUT_SEC": "-1"}, "HTTP_TIMEOUT_SEC"},
		{"bad level", map[string]string{"DATABASE_URL": "sqlite::memory:", "LOG_LEVEL": "loud"}, "LogLevel"},
		{"bad tz", map[string]string{"DATABASE_URL": "sqlite::memory:", "TZ": "Mars/Olympus"}, "TZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
