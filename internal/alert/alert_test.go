package alert

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/facewatch/internal/hook"
)

func TestAlert_Text(t *testing.T) {
	tests := []struct {
		caption string
		want    string
	}{
		{"", "Recognized: alice"},
		{"front door", "Recognized: alice\nfront door"},
	}

	for _, tt := range tests {
		a := New("alice", nil, tt.caption, time.Now())
		if got := a.Text(); got != tt.want {
			t.Errorf("Text() = %q, want %q", got, tt.want)
		}
		if a.ID == "" {
			t.Error("New() should assign an ID")
		}
	}
}

func TestMulti_Send(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	record := func(name string, err error) Sender {
		return SenderFunc(func(ctx context.Context, a Alert) error {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name)
			return err
		})
	}

	boom := errors.New("boom")
	m := Multi{record("a", nil), record("b", boom), record("c", nil)}

	err := m.Send(context.Background(), New("alice", nil, "", time.Now()))
	if !errors.Is(err, boom) {
		t.Errorf("Send() error = %v, want it to wrap boom", err)
	}
	if strings.Join(calls, ",") != "a,b,c" {
		t.Errorf("senders called %v, want all three in order", calls)
	}
}

func TestCombine(t *testing.T) {
	noop := SenderFunc(func(context.Context, Alert) error { return nil })

	if s := Combine(); s != nil {
		t.Errorf("Combine() = %v, want nil", s)
	}
	if s := Combine(nil, nil); s != nil {
		t.Errorf("Combine(nil, nil) = %v, want nil", s)
	}
	if s := Combine(nil, noop); s == nil {
		t.Error("Combine(nil, noop) should return the single sender")
	}
	if m, ok := Combine(noop, noop).(Multi); !ok || len(m) != 2 {
		t.Errorf("Combine(noop, noop) = %T, want Multi of 2", Combine(noop, noop))
	}
}

func TestNewPayload(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	a := Alert{ID: "id-1", Identity: "bob", Caption: "c", Timestamp: ts, Image: []byte{1, 2, 3}}

	p := NewPayload(a)
	if p.ImageB64 != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Errorf("ImageB64 = %q", p.ImageB64)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "identity", "caption", "timestamp", "image_b64"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("payload is missing %q: %s", key, data)
		}
	}

	if p := NewPayload(Alert{Identity: "bob"}); p.ImageB64 != "" {
		t.Error("alert without image should not carry image_b64")
	}
}

func TestMQTT_Topic(t *testing.T) {
	if m := NewMQTT(MQTTConfig{}); m != nil {
		t.Error("NewMQTT without broker should return nil")
	}

	m := NewMQTT(MQTTConfig{Broker: "localhost:1883"})
	tests := []struct {
		identity string
		want     string
	}{
		{"alice", "facewatch/alerts/alice"},
		{"a/b", "facewatch/alerts/a_b"},
		{"x+#", "facewatch/alerts/x__"},
	}
	for _, tt := range tests {
		if got := m.Topic(tt.identity); got != tt.want {
			t.Errorf("Topic(%q) = %q, want %q", tt.identity, got, tt.want)
		}
	}

	if err := m.Send(context.Background(), Alert{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Send() before Connect error = %v, want ErrNotConfigured", err)
	}
}

func TestHooks_Send(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	writeHook := func(name, script string, events []string) {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		manifest, _ := json.Marshal(hook.Manifest{Name: name, Executable: "run.sh", Events: events})
		if err := os.WriteFile(filepath.Join(dir, hook.ManifestFile), manifest, 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"+script), 0755); err != nil {
			t.Fatal(err)
		}
	}

	writeHook("capture", "cat > got.json\necho '{\"success\":true}'\n", []string{hook.EventAlert})
	writeHook("failing", "cat > /dev/null\necho '{\"success\":false,\"error\":\"nope\"}'\n", []string{hook.EventAlert})
	writeHook("ignored", "cat > got.json\necho '{\"success\":true}'\n", []string{hook.EventDetection})

	m := hook.NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	s := NewHooks(m, hook.NewExecutor(5*time.Second))
	if s == nil {
		t.Fatal("NewHooks() returned nil with alert subscribers present")
	}

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err := s.Send(context.Background(), Alert{ID: "x1", Identity: "alice", Timestamp: ts, Image: []byte("jpg")})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("Send() error = %v, want failing hook error", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "capture", "got.json"))
	if err != nil {
		t.Fatalf("capture hook did not run: %v", err)
	}
	var req hook.Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatal(err)
	}
	if req.Event != hook.EventAlert || req.Identity != "alice" || req.AlertID != "x1" {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Timestamp != "2024-01-02T03:04:05Z" {
		t.Errorf("Timestamp = %q", req.Timestamp)
	}
	if req.Image != base64.StdEncoding.EncodeToString([]byte("jpg")) {
		t.Errorf("Image = %q", req.Image)
	}

	if _, err := os.Stat(filepath.Join(root, "ignored", "got.json")); !os.IsNotExist(err) {
		t.Error("hook not subscribed to alerts should not run")
	}
}

func TestNewHooks_NoSubscribers(t *testing.T) {
	m := hook.NewManager(t.TempDir())
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if s := NewHooks(m, hook.NewExecutor(0)); s != nil {
		t.Error("NewHooks() without subscribers should return nil")
	}
	if s := NewHooks(nil, nil); s != nil {
		t.Error("NewHooks(nil) should return nil")
	}
}
