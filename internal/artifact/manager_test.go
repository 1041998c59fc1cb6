package artifact

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/ytmux/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func writeAll(t *testing.T, paths domain.ArtifactPaths) {
	t.Helper()
	for _, p := range paths.All() {
		if err := os.WriteFile(p, []byte("data"), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewManager_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tmp")
	m, err := NewManager(dir, testLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", m.Dir(), dir)
	}
	if !exists(dir) {
		t.Error("directory should have been created")
	}
}

func TestNewManager_EmptyDir(t *testing.T) {
	if _, err := NewManager("", testLogger()); err == nil {
		t.Error("NewManager should fail for empty directory")
	}
}

func TestAllocate_UniquePerJob(t *testing.T) {
	m := newTestManager(t)

	a, err := m.Allocate("job-a")
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	b, err := m.Allocate("job-b")
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	seen := map[string]bool{}
	for _, p := range append(a.All(), b.All()...) {
		if seen[p] {
			t.Errorf("path %s allocated twice", p)
		}
		seen[p] = true
		if filepath.Dir(p) != m.Dir() {
			t.Errorf("path %s outside artifact directory", p)
		}
	}
}

func TestAllocate_DoesNotCreateFiles(t *testing.T) {
	m := newTestManager(t)
	paths, err := m.Allocate("job-a")
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	for _, p := range paths.All() {
		if exists(p) {
			t.Errorf("%s should not exist after Allocate", p)
		}
	}
}

func TestAllocate_InvalidJobID(t *testing.T) {
	m := newTestManager(t)
	for _, id := range []domain.JobID{"", "..", "a/b", `a\b`} {
		if _, err := m.Allocate(id); err == nil {
			t.Errorf("Allocate(%q) should fail", id)
		}
	}
}

func TestRelease_RemovesAllArtifacts(t *testing.T) {
	m := newTestManager(t)
	paths, _ := m.Allocate("job-a")
	writeAll(t, paths)

	m.Release("job-a")

	for _, p := range paths.All() {
		if exists(p) {
			t.Errorf("%s should be removed", p)
		}
	}
}

func TestRelease_PartialArtifacts(t *testing.T) {
	m := newTestManager(t)
	paths, _ := m.Allocate("job-a")

	// Only the video was written before the job failed
	if err := os.WriteFile(paths.Video, []byte("v"), 0644); err != nil {
		t.Fatal(err)
	}

	m.Release("job-a")

	if exists(paths.Video) {
		t.Error("video artifact should be removed")
	}
}

func TestRelease_IdempotentAndIsolated(t *testing.T) {
	m := newTestManager(t)
	a, _ := m.Allocate("job-a")
	b, _ := m.Allocate("job-b")
	writeAll(t, a)
	writeAll(t, b)

	m.Release("job-a")
	m.Release("job-a")
	m.Release("never-allocated")
	m.Release("")

	for _, p := range b.All() {
		if !exists(p) {
			t.Errorf("%s belongs to another job and should survive", p)
		}
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full")
	empty := filepath.Join(dir, "empty")
	os.WriteFile(full, []byte("x"), 0644)
	os.WriteFile(empty, nil, 0644)

	if err := Verify(full); err != nil {
		t.Errorf("Verify(full) = %v, want nil", err)
	}
	if err := Verify(empty); err == nil {
		t.Error("Verify(empty) should fail")
	}
	if err := Verify(filepath.Join(dir, "missing")); err == nil {
		t.Error("Verify(missing) should fail")
	}
	if err := Verify(dir); err == nil {
		t.Error("Verify(directory) should fail")
	}
}

func TestSweep_RemovesOnlyOldArtifacts(t *testing.T) {
	m := newTestManager(t)
	old, _ := m.Allocate("old-job")
	fresh, _ := m.Allocate("fresh-job")
	writeAll(t, old)
	writeAll(t, fresh)

	unrelated := filepath.Join(m.Dir(), "notes.txt")
	os.WriteFile(unrelated, []byte("keep"), 0644)

	past := time.Now().Add(-3 * time.Hour)
	for _, p := range append(old.All(), unrelated) {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := m.Sweep(time.Hour, nil)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	for _, p := range old.All() {
		if exists(p) {
			t.Errorf("%s should be swept", p)
		}
	}
	for _, p := range fresh.All() {
		if !exists(p) {
			t.Errorf("%s is fresh and should survive", p)
		}
	}
	if !exists(unrelated) {
		t.Error("non-artifact files should not be swept")
	}
}

func TestWritable(t *testing.T) {
	m := newTestManager(t)
	if err := m.Writable(); err != nil {
		t.Errorf("Writable() = %v", err)
	}
	entries, _ := os.ReadDir(m.Dir())
	if len(entries) != 0 {
		t.Errorf("scratch file left behind: %v", entries)
	}
}

func TestFreeSpace(t *testing.T) {
	m := newTestManager(t)
	if m.FreeSpace() <= 0 {
		t.Error("FreeSpace() should be positive for a temp directory")
	}
}

func TestSweep_KeepsInFlightJobs(t *testing.T) {
	m := newTestManager(t)

	running, _ := m.Allocate("job_inflight")
	orphan, _ := m.Allocate("job_orphan")

	// The running job finished its video fetch long ago and is still muxing
	past := time.Now().Add(-2 * time.Minute)
	for _, p := range []string{running.Video, orphan.Video} {
		if err := os.WriteFile(p, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := m.Sweep(time.Minute, func(id domain.JobID) bool {
		return id == "job_inflight"
	})
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if !exists(running.Video) {
		t.Error("artifacts of a running job must not be swept")
	}
	if exists(orphan.Video) {
		t.Error("orphaned artifact should be swept")
	}
}

func TestArtifactJobID(t *testing.T) {
	tests := []struct {
		name   string
		want   domain.JobID
		wantOK bool
	}{
		{"job_1.video.mp4", "job_1", true},
		{"job_1.audio.m4a", "job_1", true},
		{"job_1.output.mp4", "job_1", true},
		{".video.mp4", "", false},
		{"notes.txt", "", false},
	}

	for _, tt := range tests {
		got, ok := artifactJobID(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("artifactJobID(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
