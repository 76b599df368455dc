package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dicklesworthstone/virtualtree/pkg/virt"
)

func writeTuning(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileIsDefaults(t *testing.T) {
	tuning, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if tuning != (Tuning{}) {
		t.Errorf("tuning = %+v, want zero value", tuning)
	}
}

func TestLoadParsesFields(t *testing.T) {
	path := writeTuning(t, t.TempDir(), `
min_overscan: 5
max_overscan: 40
overscan_multiplier: 0.8
preload_chunk_size: 25
preload_delay_min_ms: 10
preload_delay_max_ms: 100
scroll_idle_timeout: 250ms
memory_threshold_mb: 256
maintain_scroll_during_expand: false
`)
	tuning, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tuning.MinOverscan != 5 || tuning.MaxOverscan != 40 {
		t.Errorf("overscan = %d/%d, want 5/40", tuning.MinOverscan, tuning.MaxOverscan)
	}
	if tuning.ScrollIdleTimeout != 250*time.Millisecond {
		t.Errorf("idle timeout = %v, want 250ms", tuning.ScrollIdleTimeout)
	}
	if tuning.MaintainScroll == nil || *tuning.MaintainScroll {
		t.Error("maintain_scroll_during_expand not parsed as false")
	}

	opts := tuning.Options()
	if opts.MinOverscan != 5 || opts.MaxOverscan != 40 {
		t.Errorf("options overscan = %d/%d, want 5/40", opts.MinOverscan, opts.MaxOverscan)
	}
	if opts.PreloadDelayMin != 10*time.Millisecond || opts.PreloadDelayMax != 100*time.Millisecond {
		t.Errorf("preload delays = %v/%v, want 10ms/100ms", opts.PreloadDelayMin, opts.PreloadDelayMax)
	}
	if opts.MemoryThresholdMB != 256 {
		t.Errorf("memory threshold = %v, want 256", opts.MemoryThresholdMB)
	}
	if opts.MaintainScrollDuringExpand {
		t.Error("maintain scroll not carried into options")
	}
}

func TestOptionsFillsUnsetFromDefaults(t *testing.T) {
	var tuning Tuning
	tuning.MinOverscan = 7

	opts := tuning.Options()
	def := virt.DefaultOptions()
	if opts.MinOverscan != 7 {
		t.Errorf("min overscan = %d, want 7", opts.MinOverscan)
	}
	if opts.MaxOverscan != def.MaxOverscan {
		t.Errorf("max overscan = %d, want default %d", opts.MaxOverscan, def.MaxOverscan)
	}
	if opts.EstimatedItemSize != def.EstimatedItemSize {
		t.Errorf("estimated size = %v, want default %v", opts.EstimatedItemSize, def.EstimatedItemSize)
	}
	if !opts.MaintainScrollDuringExpand {
		t.Error("maintain scroll default lost")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeTuning(t, t.TempDir(), "min_overscan: [not a number")
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml did not error")
	}
}

func TestWatcherDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := writeTuning(t, dir, "min_overscan: 3\n")

	w, err := WatchTuning(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("WatchTuning: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("min_overscan: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case tuning := <-w.Updates():
		if tuning.MinOverscan != 9 {
			t.Errorf("reloaded min_overscan = %d, want 9", tuning.MinOverscan)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no update after tuning file change")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeTuning(t, dir, "min_overscan: 3\n")

	w, err := WatchTuning(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("WatchTuning: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case tuning := <-w.Updates():
		t.Errorf("unexpected update from unrelated file: %+v", tuning)
	case <-time.After(200 * time.Millisecond):
	}
}
