package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	os.Setenv("API_KEY", "ak_test")
	os.Setenv("BASE_URL", "https://assessment.example.com/api")
	t.Cleanup(func() {
		os.Unsetenv("API_KEY")
		os.Unsetenv("BASE_URL")
	})
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	os.Unsetenv("API_KEY")
	os.Setenv("BASE_URL", "https://assessment.example.com/api")
	defer os.Unsetenv("BASE_URL")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when API_KEY is missing")
	}
}

func TestLoad_RequiresBaseURL(t *testing.T) {
	os.Setenv("API_KEY", "ak_test")
	os.Unsetenv("BASE_URL")
	defer os.Unsetenv("API_KEY")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when BASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PageSize != 20 {
		t.Errorf("expected default page size 20, got %d", cfg.PageSize)
	}
	if cfg.PageDelay() != 250*time.Millisecond {
		t.Errorf("expected default page delay 250ms, got %v", cfg.PageDelay())
	}
	if cfg.FetchRetries != 6 || cfg.SubmitRetries != 4 {
		t.Errorf("expected default retries 6/4, got %d/%d", cfg.FetchRetries, cfg.SubmitRetries)
	}
	if cfg.FetchBaseDelay() >= cfg.SubmitBaseDelay() {
		t.Errorf("fetch base delay %v should be shorter than submit base delay %v",
			cfg.FetchBaseDelay(), cfg.SubmitBaseDelay())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	os.Setenv("PAGE_SIZE", "10")
	os.Setenv("FETCH_RETRIES", "2")
	t.Cleanup(func() {
		os.Unsetenv("PAGE_SIZE")
		os.Unsetenv("FETCH_RETRIES")
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PageSize != 10 {
		t.Errorf("expected page size 10, got %d", cfg.PageSize)
	}
	if cfg.FetchRetries != 2 {
		t.Errorf("expected fetch retries 2, got %d", cfg.FetchRetries)
	}
}

func TestLoad_RejectsNonPositivePageSize(t *testing.T) {
	setRequired(t)
	os.Setenv("PAGE_SIZE", "0")
	t.Cleanup(func() { os.Unsetenv("PAGE_SIZE") })

	if _, err := Load(); err == nil {
		t.Fatal("expected error for PAGE_SIZE=0")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
