package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagesync.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
repository:
  name: service
  url: https://git.example.com/team/service.git
classifier:
  url: http://localhost:8080/classify
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Repository.Branch != "main" {
		t.Fatalf("expected default source branch, got %q", cfg.Repository.Branch)
	}
	if cfg.Publish.Branch != "pages" || cfg.Publish.Remote != "origin" {
		t.Fatalf("unexpected publish defaults: %+v", cfg.Publish)
	}
	if cfg.Classifier.Timeout.Std() != 30*time.Second {
		t.Fatalf("expected classifier timeout default, got %v", cfg.Classifier.Timeout)
	}
	if cfg.Publish.Production {
		t.Fatal("production must default to off")
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("PAGESYNC_TEST_TOKEN", "sekrit")
	path := writeConfig(t, `
repository:
  name: service
  url: https://git.example.com/team/service.git
  auth:
    type: token
    token: ${PAGESYNC_TEST_TOKEN}
classifier:
  url: http://localhost:8080/classify
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Repository.Auth == nil || cfg.Repository.Auth.Token != "sekrit" {
		t.Fatalf("environment expansion failed: %+v", cfg.Repository.Auth)
	}
}

func TestValidateRejectsSameBranches(t *testing.T) {
	path := writeConfig(t, `
repository:
  name: service
  url: https://git.example.com/team/service.git
  branch: pages
publish:
  branch: pages
classifier:
  url: http://localhost:8080/classify
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for identical branches")
	}
}

func TestValidateRequiresClassifier(t *testing.T) {
	path := writeConfig(t, `
repository:
  name: service
  url: https://git.example.com/team/service.git
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing classifier url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestInitAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagesync.yaml")
	if err := Init(path, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := Init(path, false); err == nil {
		t.Fatal("expected error when file exists without --force")
	}
	if err := Init(path, true); err != nil {
		t.Fatalf("init force: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("reload generated config: %v", err)
	}
	if cfg.Repository.Name != "service" {
		t.Fatalf("unexpected example repo: %+v", cfg.Repository)
	}
}
