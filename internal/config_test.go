package internal

import (
	"strings"
	"testing"
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

func TestWorkspaceConfig_DefaultPattern(t *testing.T) {
	cfg := WorkspaceConfig{Path: "./boards"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty pattern should default: %v", err)
	}
	if cfg.Pattern != "**/*.kanban.json" {
		t.Errorf("pattern = %q", cfg.Pattern)
	}
}

func TestWorkspaceConfig_InvalidPattern(t *testing.T) {
	cfg := WorkspaceConfig{Path: "./boards", Pattern: "[unclosed"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid glob should fail validation")
	}
}

func TestWorkspaceConfig_PathRequired(t *testing.T) {
	cfg := WorkspaceConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty path should fail validation")
	}
}

func TestDefaultsConfig_Template(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	tpl := cfg.Defaults.Template()
	if len(tpl.StartupBoards) != 3 || tpl.StartupBoards[0] != "To do" {
		t.Errorf("startup boards = %v", tpl.StartupBoards)
	}
	tpl.BoardStyle["frame"] = "changed"
	if cfg.Defaults.BoardStyle["frame"] == "changed" {
		t.Error("Template should copy the board style")
	}
}

func TestDefaultsConfig_BlankBoardTitle(t *testing.T) {
	cfg := DefaultsConfig{StartupBoards: []string{"To do", ""}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank startup board should fail validation")
	}
}
