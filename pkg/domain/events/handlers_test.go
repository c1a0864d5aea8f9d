package events

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewLoggingHandler(logger)

	ev := NewFileEvent(KindCreated, "data", "/data/run1.csv")
	if err := h.Handle(context.Background(), ev); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "msg=\"file event\"", "kind=created", "path=/data/run1.csv", "source=data", "event_id=" + ev.ID} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestLoggingHandler_WithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	base := NewLoggingHandler(logger)
	_ = base.Handle(context.Background(), NewFileEvent(KindDeleted, "data", "/data/a.csv"))
	if buf.Len() != 0 {
		t.Fatalf("debug record should be filtered at info level: %s", buf.String())
	}

	_ = base.WithLevel(slog.LevelInfo).Handle(context.Background(), NewFileEvent(KindDeleted, "data", "/data/a.csv"))
	if !strings.Contains(buf.String(), "kind=deleted") {
		t.Errorf("expected info record, got %q", buf.String())
	}
}

func TestSubscribe(t *testing.T) {
	d := NewEventDispatcher()
	h := NewLoggingHandler(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ids := d.Subscribe(h.Registration())
	if len(ids) != 2 {
		t.Fatalf("expected 2 subscription IDs, got %d", len(ids))
	}
	if d.HandlerCount(KindCreated) != 1 || d.HandlerCount(KindDeleted) != 1 {
		t.Errorf("expected one handler per kind")
	}
	if !d.Unregister(KindDeleted, ids[1]) {
		t.Error("expected deleted-kind registration to be removable by its ID")
	}

	if got := d.Subscribe(HandlerRegistration{Name: "nil", Kinds: []Kind{KindCreated}}); len(got) != 0 {
		t.Errorf("nil handler should not register, got %v", got)
	}
}
