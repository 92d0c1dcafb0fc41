package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/voxrt/engine/assets/loaders"
	"github.com/spaghettifunk/voxrt/engine/core"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetermineAssetType(t *testing.T) {
	tests := []struct {
		path string
		want loaders.ResourceType
	}{
		{"shader.vert.spv", loaders.ResourceTypeShader},
		{"rt/raygen.rgen.spv", loaders.ResourceTypeShader},
		{"shader.vert", loaders.ResourceTypeNone},
		{"texture.png", loaders.ResourceTypeNone},
		{"spv", loaders.ResourceTypeNone},
	}
	for _, tt := range tests {
		if got := determineAssetType(tt.path); got != tt.want {
			t.Errorf("determineAssetType(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestAssetManagerShader(t *testing.T) {
	dir := t.TempDir()
	vert := []byte{0x03, 0x02, 0x23, 0x07, 1, 2, 3, 4}
	writeFile(t, filepath.Join(dir, "shader.vert.spv"), vert)
	writeFile(t, filepath.Join(dir, "rt", "raygen.rgen.spv"), []byte{0x03, 0x02, 0x23, 0x07})
	writeFile(t, filepath.Join(dir, "shader.vert"), []byte("#version 450"))
	writeFile(t, filepath.Join(dir, "empty.frag.spv"), nil)

	am := NewAssetManager()
	if err := am.Initialize(dir, false); err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()

	var source ShaderSource = am
	got, err := source.Shader("shader.vert.spv")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, vert) {
		t.Errorf("got %v, want %v", got, vert)
	}
	if _, err := source.Shader("rt/raygen.rgen.spv"); err != nil {
		t.Errorf("nested shader: %v", err)
	}
	if _, err := source.Shader("shader.vert"); err == nil {
		t.Error("GLSL source served as a shader binary")
	}
	if _, err := source.Shader("missing.spv"); err == nil {
		t.Error("expected an error for an unknown shader")
	}
	if _, err := source.Shader("empty.frag.spv"); err == nil {
		t.Error("expected an error for an empty shader")
	}
}

func TestAssetManagerInitializeErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.spv")
	writeFile(t, file, []byte{1, 2, 3, 4})

	for _, path := range []string{filepath.Join(dir, "missing"), file} {
		if err := NewAssetManager().Initialize(path, false); err == nil {
			t.Errorf("Initialize(%s) succeeded", path)
		}
	}
}

func TestAssetManagerChanged(t *testing.T) {
	am := NewAssetManager()
	am.root = "/assets"
	am.markChanged("/assets/a.spv")
	am.markChanged("/assets/b.spv")
	am.markChanged("/assets/a.spv")

	got := am.Changed()
	if len(got) != 2 || got[0] != "a.spv" || got[1] != "b.spv" {
		t.Errorf("Changed() = %v, want [a.spv b.spv]", got)
	}
	if again := am.Changed(); len(again) != 0 {
		t.Errorf("second Changed() = %v, want empty", again)
	}
}

func TestAssetManagerDispatchChanges(t *testing.T) {
	defer core.EventShutdown()

	am := NewAssetManager()
	am.root = "/assets"
	var fired []string
	listener := new(int)
	core.EventRegister(core.EVENT_CODE_SHADER_CHANGED, listener, func(code core.SystemEventCode, sender, l interface{}, data core.EventContext) bool {
		if sender != am {
			t.Errorf("sender = %v, want the asset manager", sender)
		}
		fired = append(fired, data.Data.C[0])
		return true
	})

	am.markChanged("/assets/shader.frag.spv")
	if n := am.DispatchChanges(); n != 1 {
		t.Errorf("dispatched %d, want 1", n)
	}
	if len(fired) != 1 || fired[0] != "shader.frag.spv" {
		t.Errorf("fired %v", fired)
	}
	if n := am.DispatchChanges(); n != 0 {
		t.Errorf("dispatched %d on an empty queue", n)
	}
}

func TestAssetManagerWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag.spv")
	writeFile(t, path, []byte{1, 2, 3, 4})

	am := NewAssetManager()
	if err := am.Initialize(dir, true); err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()

	updated := []byte{5, 6, 7, 8, 9, 10, 11, 12}
	writeFile(t, path, updated)
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("ignored"))

	deadline := time.Now().Add(5 * time.Second)
	var changed []string
	for time.Now().Before(deadline) {
		changed = append(changed, am.Changed()...)
		if len(changed) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(changed) == 0 || changed[0] != "shader.frag.spv" {
		t.Fatalf("changed = %v, want [shader.frag.spv]", changed)
	}
	// The event can arrive before the write completes.
	var got []byte
	for time.Now().Before(deadline) {
		if got, _ = am.Shader("shader.frag.spv"); bytes.Equal(got, updated) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !bytes.Equal(got, updated) {
		t.Errorf("reloaded %v, want %v", got, updated)
	}

	if err := am.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := am.Shutdown(); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}
