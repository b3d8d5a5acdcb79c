// cliparse/cliparse_test.go
package cliparse

import (
	"testing"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("SITE_BASE_URL", "https://example.com/")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabasePostgres {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.SiteBaseURL != "https://example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.SiteBaseURL)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-jwt-secret", "s1", "-origins", "https://a.com, https://b.com"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabaseSQLite {
		t.Errorf("expected sqlite default, got %s", cfg.DatabaseType)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.com" {
		t.Errorf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestParseFlags_MissingSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("AUTH_JWT_SECRET", "")

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("expected error when AUTH_JWT_SECRET is missing")
	}
}

func TestParseFlags_InvalidDatabaseType(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s")

	if _, err := ParseFlags([]string{"-d", "x", "-t", "mysql"}); err == nil {
		t.Error("expected error for unsupported database type")
	}
}
