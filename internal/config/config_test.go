package config

import (
	"testing"
	"time"
)

func TestDefaults_Recognition(t *testing.T) {
	cfg := Defaults()

	if cfg.Recognition.Threshold != 70.0 {
		t.Errorf("expected threshold 70.0, got %f", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.StoreImages {
		t.Error("expected store_images to default to false")
	}
	if !cfg.Recognition.KioskMode {
		t.Error("expected kiosk_mode to default to true")
	}
	if cfg.Recognition.CacheValiditySeconds != 600 {
		t.Errorf("expected cache validity 600, got %d", cfg.Recognition.CacheValiditySeconds)
	}
	if cfg.Recognition.CacheValidity() != 10*time.Minute {
		t.Errorf("expected 10m validity, got %s", cfg.Recognition.CacheValidity())
	}
}

func TestDefaults_Health(t *testing.T) {
	cfg := Defaults()

	if cfg.Health.ThresholdLow != 60 || cfg.Health.ThresholdHigh != 90 {
		t.Errorf("unexpected threshold band %f-%f", cfg.Health.ThresholdLow, cfg.Health.ThresholdHigh)
	}
	if cfg.Health.MinTemplates != 2 {
		t.Errorf("expected min templates 2, got %d", cfg.Health.MinTemplates)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FACE_THRESHOLD", "82.5")
	t.Setenv("FACE_STORE_IMAGES", "true")
	t.Setenv("FACE_CACHE_VALIDITY_SECONDS", "30")
	t.Setenv("DATABASE_URL", "postgres://localhost/attendance")

	cfg := Load()

	if cfg.Recognition.Threshold != 82.5 {
		t.Errorf("expected threshold 82.5, got %f", cfg.Recognition.Threshold)
	}
	if !cfg.Recognition.StoreImages {
		t.Error("expected store_images true")
	}
	if cfg.Recognition.CacheValiditySeconds != 30 {
		t.Errorf("expected validity 30, got %d", cfg.Recognition.CacheValiditySeconds)
	}
	if cfg.Database.URL != "postgres://localhost/attendance" {
		t.Errorf("unexpected database URL %q", cfg.Database.URL)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default max open conns 25, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FACE_THRESHOLD", "abc")
	t.Setenv("FACE_STORE_IMAGES", "maybe")
	t.Setenv("FACE_CACHE_VALIDITY_SECONDS", "-5")

	cfg := Load()

	if cfg.Recognition.Threshold != 70.0 {
		t.Errorf("expected default threshold, got %f", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.StoreImages {
		t.Error("expected default store_images")
	}
	if cfg.Recognition.CacheValiditySeconds != 600 {
		t.Errorf("expected default validity, got %d", cfg.Recognition.CacheValiditySeconds)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if got := envInt("TEST_ENV_INT", 1); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("TEST_ENV_INT", "0")
	if got := envInt("TEST_ENV_INT", 1); got != 1 {
		t.Errorf("expected fallback 1 for zero, got %d", got)
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://kiosk.example.com, ,https://hr.example.com")

	cfg := Load()

	want := []string{"https://kiosk.example.com", "https://hr.example.com"}
	if len(cfg.Web.AllowedOrigins) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Web.AllowedOrigins)
	}
	for i := range want {
		if cfg.Web.AllowedOrigins[i] != want[i] {
			t.Errorf("origin %d: expected %q, got %q", i, want[i], cfg.Web.AllowedOrigins[i])
		}
	}
}
