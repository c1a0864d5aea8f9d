package application_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/autotag/pkg/application"
)

type fakeConverter struct {
	fail  map[string]bool
	delay time.Duration

	mu    sync.Mutex
	calls []string

	running atomic.Int32
	peak    atomic.Int32
}

func (c *fakeConverter) Convert(ctx context.Context, path string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, path)
	c.mu.Unlock()

	n := c.running.Add(1)
	defer c.running.Add(-1)
	for {
		peak := c.peak.Load()
		if n <= peak || c.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if c.fail[path] {
		return "", errors.New("converter rejected " + path)
	}
	return path + ".parquet", nil
}

func TestConvertService_ConvertsInOrderAndRemoves(t *testing.T) {
	registry, err := application.NewTaggedFileRegistry(fastRepo(stateFile(t)), "TaggedFiles", nil, "/d/a.csv", "/d/b.csv", "/d/c.csv")
	if err != nil {
		t.Fatal(err)
	}
	conv := &fakeConverter{fail: map[string]bool{"/d/b.csv": true}}
	svc := application.NewConvertService(conv, registry, time.Second, nil)

	results := svc.ConvertAll(context.Background(), registry.Files(), true)

	if !slices.Equal(conv.calls, []string{"/d/a.csv", "/d/b.csv", "/d/c.csv"}) {
		t.Errorf("calls = %v", conv.calls)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Artifact != "/d/a.csv.parquet" || !results[0].Removed {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Err == nil || results[1].Removed {
		t.Errorf("second conversion should fail and stay tagged: %+v", results[1])
	}
	if got := registry.Files(); !slices.Equal(got, []string{"/d/b.csv"}) {
		t.Errorf("remaining tagged files = %v, want [/d/b.csv]", got)
	}
}

func TestConvertService_KeepWithoutRemove(t *testing.T) {
	registry, err := application.NewTaggedFileRegistry(fastRepo(stateFile(t)), "TaggedFiles", nil, "/d/a.csv")
	if err != nil {
		t.Fatal(err)
	}
	svc := application.NewConvertService(&fakeConverter{}, registry, time.Second, nil)

	results := svc.ConvertAll(context.Background(), []string{"/d/a.csv"}, false)
	if results[0].Err != nil || results[0].Removed {
		t.Errorf("unexpected result %+v", results[0])
	}
	if !registry.Contains("/d/a.csv") {
		t.Error("file should stay tagged")
	}
}

func TestConvertService_Timeout(t *testing.T) {
	conv := &fakeConverter{delay: time.Second}
	svc := application.NewConvertService(conv, nil, 20*time.Millisecond, nil)

	start := time.Now()
	results := svc.ConvertAll(context.Background(), []string{"/d/slow.csv"}, true)
	if results[0].Err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not enforced, took %s", elapsed)
	}
}

func TestConvertService_CancelledContext(t *testing.T) {
	conv := &fakeConverter{}
	svc := application.NewConvertService(conv, nil, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := svc.ConvertAll(ctx, []string{"/d/a.csv", "/d/b.csv"}, false)
	if len(conv.calls) != 0 {
		t.Errorf("converter should not run after cancel, calls = %v", conv.calls)
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("result %s err = %v, want context.Canceled", r.Path, r.Err)
		}
	}
}

func TestConvertService_Workers(t *testing.T) {
	paths := []string{"/d/a.csv", "/d/b.csv", "/d/c.csv", "/d/d.csv"}
	registry, err := application.NewTaggedFileRegistry(fastRepo(stateFile(t)), "TaggedFiles", nil, paths...)
	if err != nil {
		t.Fatal(err)
	}
	conv := &fakeConverter{delay: 50 * time.Millisecond, fail: map[string]bool{"/d/c.csv": true}}
	svc := application.NewConvertService(conv, registry, time.Second, nil, application.WithWorkers(2))

	results := svc.ConvertAll(context.Background(), paths, true)

	if peak := conv.peak.Load(); peak != 2 {
		t.Errorf("peak concurrency = %d, want 2", peak)
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d is for %s, want %s", i, r.Path, paths[i])
		}
	}
	if results[2].Err == nil {
		t.Error("expected failure for c.csv")
	}
	if got := registry.Files(); !slices.Equal(got, []string{"/d/c.csv"}) {
		t.Errorf("remaining tagged files = %v, want [/d/c.csv]", got)
	}
}

func TestConvertService_SingleWorkerIsSequential(t *testing.T) {
	conv := &fakeConverter{delay: 10 * time.Millisecond}
	svc := application.NewConvertService(conv, nil, time.Second, nil, application.WithWorkers(0))

	svc.ConvertAll(context.Background(), []string{"/d/a.csv", "/d/b.csv", "/d/c.csv"}, false)
	if peak := conv.peak.Load(); peak != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak)
	}
	if !slices.Equal(conv.calls, []string{"/d/a.csv", "/d/b.csv", "/d/c.csv"}) {
		t.Errorf("calls = %v", conv.calls)
	}
}
