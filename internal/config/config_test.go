package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrefersEnvVar(t *testing.T) {
	t.Setenv("POCKET_DOC_DIR", "/tmp/custom-library")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LibraryDir != "/tmp/custom-library" {
		t.Errorf("LibraryDir = '%s', want '/tmp/custom-library'", cfg.LibraryDir)
	}
}

func TestLoadDefaultsToHome(t *testing.T) {
	t.Setenv("POCKET_DOC_DIR", "")
	os.Unsetenv("POCKET_DOC_DIR")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, ".pocket-doc")
	if cfg.LibraryDir != want {
		t.Errorf("LibraryDir = '%s', want '%s'", cfg.LibraryDir, want)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("POCKET_DOC_DIR", "")
	os.Unsetenv("POCKET_DOC_DIR")

	tmpDir, err := os.MkdirTemp("", "pocket-doc-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	envFile := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envFile, []byte("POCKET_DOC_DIR=/tmp/from-env-file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LibraryDir != "/tmp/from-env-file" {
		t.Errorf("LibraryDir = '%s', want '/tmp/from-env-file'", cfg.LibraryDir)
	}
}

func TestLoadMissingEnvFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/.env"); err == nil {
		t.Error("Expected explicit missing env file to fail")
	}
}
