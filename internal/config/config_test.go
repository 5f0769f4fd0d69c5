package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, val)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/registry_test")
	setEnv(t, "ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool bounds = %d/%d, want 20/5", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.StopBlocksAssessments {
		t.Error("StopBlocksAssessments should default to false")
	}
	if !cfg.IsDev() {
		t.Error("IsDev should be true for ENV=development")
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	setEnv(t, "DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoad_RequiresSecretInProduction(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/registry_test")
	setEnv(t, "ENV", "production")
	setEnv(t, "AUTH_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when AUTH_SECRET missing in production")
	}

	setEnv(t, "AUTH_SECRET", "supersecret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDev() {
		t.Error("IsDev should be false for ENV=production")
	}
}

func TestLoad_StopPolicyFlag(t *testing.T) {
	setEnv(t, "DATABASE_URL", "postgres://localhost/registry_test")
	setEnv(t, "STOP_BLOCKS_ASSESSMENTS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.StopBlocksAssessments {
		t.Error("StopBlocksAssessments should be true")
	}
}
