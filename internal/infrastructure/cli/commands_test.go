package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autotag.yaml")

	out, _, err := runCLI(t, nil, "--config", path, "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	assertContains(t, out, "Wrote "+path)
	assertContains(t, readTestFile(t, path), "suffix: .csv", "list_name: TaggedFiles")

	if _, _, err := runCLI(t, nil, "--config", path, "config", "init"); err == nil {
		t.Fatal("expected second init without --force to fail")
	}
	if _, _, err := runCLI(t, nil, "--config", path, "config", "init", "--force"); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	w := newWorkspace(t, "")
	out, _, err := runCLI(t, nil, "--config", w.config, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	assertContains(t, out, "# "+w.config, "directory: "+w.data, "timeout: 5m0s")
}

func TestConfigShowInvalid(t *testing.T) {
	w := newWorkspace(t, "")
	writeTestFile(t, w.config, "watch:\n  suffix: csv\n")
	_, _, err := runCLI(t, nil, "--config", w.config, "config", "show")
	if err == nil {
		t.Fatal("expected invalid suffix to fail")
	}
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || !strings.Contains(cliErr.Hint, "watch.suffix") {
		t.Errorf("expected hint naming watch.suffix, got %v", err)
	}
}

func TestTagCommand(t *testing.T) {
	w := newWorkspace(t, "")
	data := filepath.Join(w.data, "run1.csv")
	writeTestFile(t, data, "a,b\n")

	out, _, err := runCLI(t, nil, "--config", w.config, "tag", data)
	if err != nil {
		t.Fatalf("tag failed: %v", err)
	}
	assertContains(t, out, data+" -> "+data+".yaml")
	assertContains(t, readTestFile(t, data+".yaml"), "project: X", "time:")

	out, _, err = runCLI(t, nil, "--config", w.config, "tagged", "list")
	if err != nil {
		t.Fatalf("tagged list failed: %v", err)
	}
	assertContains(t, out, data)
}

func TestTagCommandUnknownTemplate(t *testing.T) {
	w := newWorkspace(t, "")
	data := filepath.Join(w.data, "run1.csv")
	writeTestFile(t, data, "a,b\n")

	_, _, err := runCLI(t, nil, "--config", w.config, "tag", "--template", "missing", data)
	if err == nil {
		t.Fatal("expected unknown template to fail")
	}
	if _, statErr := os.Stat(data + ".yaml"); !os.IsNotExist(statErr) {
		t.Error("no sidecar should be written")
	}
}

func TestTemplatesCommands(t *testing.T) {
	w := newWorkspace(t, "")
	writeTestFile(t, filepath.Join(w.templates, "other.yaml"), "project: rig7\nowner: lab\n")

	out, _, err := runCLI(t, nil, "--config", w.config, "templates", "list")
	if err != nil {
		t.Fatalf("templates list failed: %v", err)
	}
	assertContains(t, out, "* "+filepath.Join(w.templates, "default.yaml"), "  "+filepath.Join(w.templates, "other.yaml"))

	out, _, err = runCLI(t, nil, "--config", w.config, "templates", "show", "other")
	if err != nil {
		t.Fatalf("templates show failed: %v", err)
	}
	assertContains(t, out, "project: rig7", "owner: lab")

	if _, err := os.Stat(w.state); !os.IsNotExist(err) {
		t.Error("template commands should not create the state file")
	}
}

func TestTaggedCommands(t *testing.T) {
	w := newWorkspace(t, "")
	a := filepath.Join(w.data, "a.csv")
	b := filepath.Join(w.data, "b.csv")

	out, _, err := runCLI(t, nil, "--config", w.config, "tagged", "add", a, b, a)
	if err != nil {
		t.Fatalf("tagged add failed: %v", err)
	}
	assertContains(t, out, "Added "+a, "Added "+b, "Already tagged: "+a)

	out, _, err = runCLI(t, nil, "--config", w.config, "tagged", "remove", a)
	if err != nil {
		t.Fatalf("tagged remove failed: %v", err)
	}
	assertContains(t, out, "Removed "+a)

	out, _, err = runCLI(t, nil, "--config", w.config, "tagged", "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != b {
		t.Errorf("expected only %s, got %q", b, out)
	}

	out, _, err = runCLI(t, nil, "--config", w.config, "tagged", "sync", a)
	if err != nil {
		t.Fatalf("tagged sync failed: %v", err)
	}
	assertContains(t, out, "TaggedFiles: 2 files")
}

func TestTaggedDisabled(t *testing.T) {
	w := newWorkspace(t, "")
	cfg := readTestFile(t, w.config)
	writeTestFile(t, w.config, strings.Replace(cfg, "tagged:\n", "tagged:\n  enabled: false\n", 1))

	_, _, err := runCLI(t, nil, "--config", w.config, "tagged", "list")
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || cliErr.Message != "tagged file list is disabled" {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestConvertCommand(t *testing.T) {
	w := newWorkspace(t, "convert:\n  command: sh\n  args: [\"-c\", \"echo $0.out\"]\n")
	a := filepath.Join(w.data, "a.csv")

	if _, _, err := runCLI(t, nil, "--config", w.config, "tagged", "add", a); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, nil, "--config", w.config, "convert", "--remove")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	assertContains(t, out, "OK   "+a+" -> "+a+".out")

	out, _, err = runCLI(t, nil, "--config", w.config, "tagged", "list")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, "No tagged files")
}

func TestConvertCommandFailure(t *testing.T) {
	w := newWorkspace(t, "convert:\n  command: sh\n  args: [\"-c\", \"exit 3\"]\n")
	a := filepath.Join(w.data, "a.csv")
	if _, _, err := runCLI(t, nil, "--config", w.config, "tagged", "add", a); err != nil {
		t.Fatal(err)
	}

	_, errOut, err := runCLI(t, nil, "--config", w.config, "convert", "--remove")
	if err == nil {
		t.Fatal("expected failing converter to fail the command")
	}
	assertContains(t, errOut, "FAIL "+a)

	out, _, err := runCLI(t, nil, "--config", w.config, "tagged", "list")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, a)
}

func TestConvertRequiresCommand(t *testing.T) {
	w := newWorkspace(t, "")
	_, _, err := runCLI(t, nil, "--config", w.config, "convert")
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || !strings.Contains(cliErr.Hint, "convert.command") {
		t.Fatalf("expected convert.command hint, got %v", err)
	}
}

func TestWatchCommand(t *testing.T) {
	w := newWorkspace(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, _, err := runCLI(t, ctx, "--config", w.config, "watch")
		done <- result{out, err}
	}()

	data := filepath.Join(w.data, "run1.csv")
	sidecar := data + ".yaml"
	deadline := time.Now().Add(5 * time.Second)
	for {
		// The watch may not be registered yet, so keep recreating the file.
		_ = os.Remove(data)
		writeTestFile(t, data, "a,b\n")
		time.Sleep(50 * time.Millisecond)
		if _, err := os.Stat(sidecar); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("sidecar was not written")
		}
	}
	cancel()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("watch returned error: %v", r.err)
		}
		assertContains(t, r.out, "Watching "+w.data+" for *.csv files", "Template: "+filepath.Join(w.templates, "default.yaml"))
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assertContains(t, readTestFile(t, sidecar), "project: X")
}

func TestWatchCommandMissingDirectory(t *testing.T) {
	w := newWorkspace(t, "")
	_, _, err := runCLI(t, nil, "--config", w.config, "watch", filepath.Join(w.root, "missing"))
	var cliErr *CLIError
	if !asCLIError(err, &cliErr) || !strings.Contains(cliErr.Hint, "directory") {
		t.Fatalf("expected directory configuration error, got %v", err)
	}
}

func TestConvertCommandBuiltinZstd(t *testing.T) {
	w := newWorkspace(t, "convert:\n  builtin: zstd\n")
	a := filepath.Join(w.data, "a.csv")
	writeTestFile(t, a, "a,b\n1,2\n")

	if _, _, err := runCLI(t, nil, "--config", w.config, "tag", a); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, nil, "--config", w.config, "convert", "--keep")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	assertContains(t, out, "OK   "+a+" -> "+a+".zst")

	out, _, err = runCLI(t, nil, "--config", w.config, "tagged", "list")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, out, a)
}

func TestConfigSchema(t *testing.T) {
	out, _, err := runCLI(t, nil, "config", "schema")
	if err != nil {
		t.Fatalf("config schema failed: %v", err)
	}
	assertContains(t, out, `"watch"`, `"templates"`, `"list_name"`)
}

func TestConfigValidate(t *testing.T) {
	w := newWorkspace(t, "")
	out, _, err := runCLI(t, nil, "--config", w.config, "config", "validate")
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	assertContains(t, out, w.config+" is valid")

	writeTestFile(t, w.config, readTestFile(t, w.config)+"tagged_files: []\n")
	_, _, err = runCLI(t, nil, "--config", w.config, "config", "validate")
	if err == nil || !strings.Contains(err.Error(), "tagged_files") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}
