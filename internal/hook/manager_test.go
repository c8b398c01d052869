package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, dir string, m Manifest) {
	t.Helper()

	hookDir := filepath.Join(root, dir)
	if err := os.MkdirAll(hookDir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "notify", Manifest{
		Name:        "notify",
		Version:     "1.0.0",
		Description: "Desktop notification",
		Executable:  "notify.sh",
		Events:      []string{EventAlert, EventDetection},
	})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	hooks := m.List()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	h := hooks[0]
	if h.Manifest.Name != "notify" {
		t.Errorf("expected name 'notify', got %q", h.Manifest.Name)
	}
	if h.Manifest.Description != "Desktop notification" {
		t.Errorf("expected description, got %q", h.Manifest.Description)
	}
	if h.Path != filepath.Join(root, "notify") {
		t.Errorf("expected path %q, got %q", filepath.Join(root, "notify"), h.Path)
	}
	if h.Executable != filepath.Join(root, "notify", "notify.sh") {
		t.Errorf("unexpected executable %q", h.Executable)
	}
	if !h.Subscribed(EventDetection) {
		t.Error("expected hook to be subscribed to detection events")
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "good", Manifest{Name: "good", Executable: "run"})
	writeManifest(t, root, "no-exec", Manifest{Name: "no-exec"})
	writeManifest(t, root, "unnamed", Manifest{Executable: "run"})

	if err := os.MkdirAll(filepath.Join(root, "broken"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "broken", ManifestFile), []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "no-manifest"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	hooks := m.List()
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	if hooks[0].Manifest.Name != "good" || hooks[1].Manifest.Name != "unnamed" {
		t.Errorf("unexpected hooks %q, %q", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "a", Manifest{Name: "a", Executable: "run"})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "a")); err != nil {
		t.Fatal(err)
	}
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if n := len(m.List()); n != 0 {
		t.Errorf("expected removed hook to disappear, got %d hooks", n)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	for _, dir := range []string{"", filepath.Join(t.TempDir(), "nope")} {
		m := NewManager(dir)
		if err := m.Discover(); err != nil {
			t.Errorf("Discover(%q) failed: %v", dir, err)
		}
		if n := len(m.List()); n != 0 {
			t.Errorf("Discover(%q) found %d hooks", dir, n)
		}
	}
}

func TestManager_Get(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "x", Manifest{Name: "webhook", Executable: "run"})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	h, err := m.Get("webhook")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if h.Manifest.Name != "webhook" {
		t.Errorf("Get() returned %q", h.Manifest.Name)
	}

	if _, err := m.Get("missing"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrHookNotFound", err)
	}
}

func TestManager_Subscribers(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "b", Manifest{Name: "b", Executable: "run", Events: []string{EventAlert}})
	writeManifest(t, root, "a", Manifest{Name: "a", Executable: "run", Events: []string{EventDetection, EventAlert}})
	writeManifest(t, root, "c", Manifest{Name: "c", Executable: "run", Events: []string{EventDetection}})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	subs := m.Subscribers(EventAlert)
	if len(subs) != 2 || subs[0].Manifest.Name != "a" || subs[1].Manifest.Name != "b" {
		names := make([]string, len(subs))
		for i, s := range subs {
			names[i] = s.Manifest.Name
		}
		t.Errorf("Subscribers(alert) = %v, want [a b]", names)
	}
	if m.Dir() != root {
		t.Errorf("Dir() = %q, want %q", m.Dir(), root)
	}
}
