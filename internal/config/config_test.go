package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.PatientMatchThreshold != 60 {
		t.Errorf("expected patient threshold 60, got %d", cfg.PatientMatchThreshold)
	}
	if cfg.InventoryMatchThreshold != 50 {
		t.Errorf("expected inventory threshold 50, got %d", cfg.InventoryMatchThreshold)
	}
	if cfg.ClassifierFloor != 0.38 {
		t.Errorf("expected classifier floor 0.38, got %f", cfg.ClassifierFloor)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected session TTL 30m, got %s", cfg.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PATIENT_MATCH_THRESHOLD", "75")
	t.Setenv("CLASSIFIER_FLOOR", "0.5")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("USE_REDIS_SESSIONS", "true")

	cfg := Load()

	if cfg.PatientMatchThreshold != 75 {
		t.Errorf("expected patient threshold 75, got %d", cfg.PatientMatchThreshold)
	}
	if cfg.ClassifierFloor != 0.5 {
		t.Errorf("expected classifier floor 0.5, got %f", cfg.ClassifierFloor)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Errorf("expected session TTL 10m, got %s", cfg.SessionTTL)
	}
	if !cfg.UseRedisSessions {
		t.Error("expected redis sessions enabled")
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com,")

	cfg := Load()

	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Errorf("unexpected origin %s", cfg.CORSAllowedOrigins[1])
	}
}
