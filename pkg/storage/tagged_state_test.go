package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/autotag/pkg/domain"
	"gopkg.in/yaml.v3"
)

func readStateFile(t *testing.T, path string) map[string][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var doc map[string][]string
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal state file: %v", err)
	}
	return doc
}

func TestLoadList_CreatesMissingStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	repo := NewFilesystemRepository(path)

	items, err := repo.LoadList("TaggedFiles")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %v", items)
	}

	doc := readStateFile(t, path)
	list, ok := doc["TaggedFiles"]
	if !ok {
		t.Fatalf("expected TaggedFiles key, got %v", doc)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list on disk, got %v", list)
	}
}

func TestSaveList_PreservesOtherLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("Other:\n  - /keep/me.csv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	repo := NewFilesystemRepository(path)

	if err := repo.SaveList("TaggedFiles", []string{"/data/run1.csv", "/data/run2.csv"}); err != nil {
		t.Fatal(err)
	}

	doc := readStateFile(t, path)
	if len(doc["Other"]) != 1 || doc["Other"][0] != "/keep/me.csv" {
		t.Errorf("other list was modified: %v", doc["Other"])
	}
	if len(doc["TaggedFiles"]) != 2 || doc["TaggedFiles"][1] != "/data/run2.csv" {
		t.Errorf("unexpected list: %v", doc["TaggedFiles"])
	}

	loaded, err := repo.LoadList("TaggedFiles")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 || loaded[0] != "/data/run1.csv" {
		t.Errorf("round trip mismatch: %v", loaded)
	}
}

func TestSaveList_EmptyListWritesBrackets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	repo := NewFilesystemRepository(path)

	if err := repo.SaveList("TaggedFiles", nil); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "TaggedFiles: []\n" {
		t.Errorf("unexpected state file content: %q", string(data))
	}
}

func TestLoadList_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	items, err := NewFilesystemRepository(path).LoadList("TaggedFiles")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %v", items)
	}
}

func TestLoadList_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a mapping\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFilesystemRepository(path).LoadList("TaggedFiles"); err == nil {
		t.Error("expected error for non-mapping state file")
	}
}

func TestSaveList_UnwritableLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "state.yaml")
	err := NewFilesystemRepository(path).SaveList("TaggedFiles", []string{"a"})
	if !errors.Is(err, domain.ErrWrite) {
		t.Errorf("expected ErrWrite, got %v", err)
	}
}
