package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// syncBuffer is written by the watcher goroutine through the logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func resetFlags() {
	configPath, logLevel, logFormat = "", "", ""
	watchDir, watchSuffix, watchTemplate, watchReload = "", "", "", false
	tagTemplate = ""
	convertRemove, convertKeep = false, false
	configInitForce = false
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	RootCmd.SetOut(stdout)
	RootCmd.SetErr(stderr)
	RootCmd.SetArgs(args)
	defer RootCmd.SetArgs(nil)

	if ctx == nil {
		ctx = context.Background()
	}
	err := RootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

type workspace struct {
	root      string
	data      string
	templates string
	state     string
	config    string
}

// newWorkspace lays out data and template directories and a config file
// pointing at them. extra is appended to the config file.
func newWorkspace(t *testing.T, extra string) workspace {
	t.Helper()
	root := t.TempDir()
	w := workspace{
		root:      root,
		data:      filepath.Join(root, "data"),
		templates: filepath.Join(root, "templates"),
		state:     filepath.Join(root, "tagger_defaults.yaml"),
		config:    filepath.Join(root, "autotag.yaml"),
	}
	for _, dir := range []string{w.data, w.templates} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeTestFile(t, filepath.Join(w.templates, "default.yaml"), "project: X\n")

	cfg := fmt.Sprintf(`watch:
  directory: %s
  suffix: .csv
templates:
  directory: %s
tagged:
  state_file: %s
log:
  level: error
`, w.data, w.templates, w.state)
	writeTestFile(t, w.config, cfg+extra)
	return w
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func asCLIError(err error, target **CLIError) bool {
	return errors.As(err, target)
}
