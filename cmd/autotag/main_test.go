package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRun_Help(t *testing.T) {
	os.Args = []string{"autotag", "--help"}
	if code := run(); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
}

func TestRun_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "autotag.yaml")
	if err := os.WriteFile(cfg, []byte("templates:\n  directory: "+filepath.Join(dir, "none")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	os.Args = []string{"autotag", "--config", cfg, "templates", "show"}
	if code := run(); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}
