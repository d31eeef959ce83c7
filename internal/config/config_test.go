package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, expected 8080", cfg.Port)
	}
	if cfg.Threshold != 0.7 {
		t.Errorf("Threshold = %v, expected 0.7", cfg.Threshold)
	}
	if cfg.FrontCamera != "0" || cfg.RearCamera != "1" {
		t.Errorf("cameras = %q/%q, expected 0/1", cfg.FrontCamera, cfg.RearCamera)
	}
	if cfg.AutoStart {
		t.Error("AutoStart should default to false")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PORT", "9090")
	t.Setenv("THRESHOLD", "0.55")
	t.Setenv("AUTO_START", "true")
	t.Setenv("TARGET_FPS", "not-a-number")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, expected 9090", cfg.Port)
	}
	if cfg.Threshold != 0.55 {
		t.Errorf("Threshold = %v, expected 0.55", cfg.Threshold)
	}
	if !cfg.AutoStart {
		t.Error("AutoStart should be true")
	}
	if cfg.TargetFPS != 30 {
		t.Errorf("TargetFPS = %d, expected fallback 30", cfg.TargetFPS)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "REAR_CAMERA=rtsp://camera.local/stream\nDISPLAY_WIDTH=1280\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("ENV_FILE", envFile)
	// godotenv.Load never overrides variables that are already set, so make
	// sure the keys start out empty and are cleaned up afterwards.
	t.Setenv("REAR_CAMERA", "")
	t.Setenv("DISPLAY_WIDTH", "")
	os.Unsetenv("REAR_CAMERA")
	os.Unsetenv("DISPLAY_WIDTH")

	cfg := Load()

	if cfg.RearCamera != "rtsp://camera.local/stream" {
		t.Errorf("RearCamera = %q", cfg.RearCamera)
	}
	if cfg.DisplayWidth != 1280 {
		t.Errorf("DisplayWidth = %d, expected 1280", cfg.DisplayWidth)
	}
}

func TestGetEnvAsBool_Invalid(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	if getEnvAsBool("SOME_FLAG", true) != true {
		t.Error("invalid bool should fall back to default")
	}
}
