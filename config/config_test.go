package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithNoFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if cfg.Memory != want.Memory || cfg.Disk.Directory != want.Disk.Directory {
		t.Fatalf("Load() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "disk:\n  directory: /tmp/custom\n  max_bytes: 1048576\ndownload:\n  max_retries: 5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Disk.Directory != "/tmp/custom" {
		t.Fatalf("Disk.Directory = %q, want /tmp/custom", cfg.Disk.Directory)
	}
	if cfg.Disk.MaxBytes != 1048576 {
		t.Fatalf("Disk.MaxBytes = %d, want 1048576", cfg.Disk.MaxBytes)
	}
	if cfg.Download.MaxRetries != 5 {
		t.Fatalf("Download.MaxRetries = %d, want 5", cfg.Download.MaxRetries)
	}
	// Untouched fields keep their defaults.
	if cfg.Memory.MaxCount != Default().Memory.MaxCount {
		t.Fatalf("Memory.MaxCount = %d, want default", cfg.Memory.MaxCount)
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("IMAGECACHE_LIMITER_MAX_CONCURRENT", "12")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Limiter.MaxConcurrent != 12 {
		t.Fatalf("Limiter.MaxConcurrent = %d, want 12", cfg.Limiter.MaxConcurrent)
	}
}

func TestValidateRejectsBadQuality(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Disk.Quality = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for quality > 1")
	}
}

func TestValidateRejectsMissingDirectory(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Disk.Directory = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for empty directory")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
}
