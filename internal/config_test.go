package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/leanjournal/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestVaultConfig_RejectsBadExclude(t *testing.T) {
	cfg := VaultConfig{Path: "./vault", Exclude: []string{"[unclosed"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("malformed glob should fail validation")
	}
}

func TestSchedulerConfig_NegativeSpacing(t *testing.T) {
	cfg := SchedulerConfig{MinSpacing: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative spacing should fail validation")
	}
}

func TestLoadConfig_YAMLAndTOML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	tomlPath := filepath.Join(dir, "config.toml")
	_ = os.WriteFile(yamlPath, []byte("vault:\n  path: /notes\nscheduler:\n  debounce: 2s\n  min_spacing: 10m\n"), 0o644)
	_ = os.WriteFile(tomlPath, []byte("[vault]\npath = \"/notes\"\n\n[scheduler]\ndebounce = \"2s\"\nmin_spacing = \"10m\"\n"), 0o644)

	for _, p := range []string{yamlPath, tomlPath} {
		cfg := NewDefaultConfig()
		if err := pkgconfig.Load(p, cfg); err != nil {
			t.Fatalf("load %s: %v", filepath.Base(p), err)
		}
		if cfg.Vault.Path != "/notes" {
			t.Errorf("%s: vault path = %q", filepath.Base(p), cfg.Vault.Path)
		}
		if cfg.Scheduler.Debounce != 2*time.Second || cfg.Scheduler.MinSpacing != 10*time.Minute {
			t.Errorf("%s: scheduler = %+v", filepath.Base(p), cfg.Scheduler)
		}
		if cfg.App.HTTP.Port != 8080 {
			t.Errorf("%s: defaults lost, port = %d", filepath.Base(p), cfg.App.HTTP.Port)
		}
	}
}
