// Package artifact manages the temporary files a download job writes to disk.
//
// Every job owns three files named after its job id, so concurrent jobs for
// the same encoding never share a path.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iconidentify/ytmux/internal/domain"
)

const (
	videoSuffix  = ".video.mp4"
	audioSuffix  = ".audio.m4a"
	outputSuffix = ".output.mp4"
)

// Manager allocates and releases per-job artifact paths under one directory.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// NewManager creates a manager rooted at dir, creating it if necessary.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, logger: logger}, nil
}

// Dir returns the directory artifacts are written to.
func (m *Manager) Dir() string {
	return m.dir
}

// Paths returns the artifact paths for jobID without touching the disk.
func (m *Manager) Paths(jobID domain.JobID) domain.ArtifactPaths {
	base := filepath.Join(m.dir, jobID.String())
	return domain.ArtifactPaths{
		Video:  base + videoSuffix,
		Audio:  base + audioSuffix,
		Output: base + outputSuffix,
	}
}

// Allocate returns the three artifact paths owned by jobID. Nothing is
// created on disk; the pipeline stages create the files as they run.
func (m *Manager) Allocate(jobID domain.JobID) (domain.ArtifactPaths, error) {
	id := jobID.String()
	if id == "" {
		return domain.ArtifactPaths{}, errors.New("job id is required")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return domain.ArtifactPaths{}, fmt.Errorf("job id %q is not a valid file name", id)
	}
	return m.Paths(jobID), nil
}

// Release removes every artifact of jobID. Each path is removed
// independently; missing files are fine and other failures are only logged.
// It is safe to call more than once.
func (m *Manager) Release(jobID domain.JobID) {
	if jobID == "" {
		return
	}
	for _, path := range m.Paths(jobID).All() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to remove artifact",
				"job_id", jobID,
				"path", path,
				"error", err,
			)
		}
	}
}

// Verify checks that path is a regular, non-empty file.
func Verify(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// Sweep removes artifact files older than maxAge, left behind by jobs that
// never reached cleanup (for example after a crash). Files of jobs for which
// inFlight reports true are kept whatever their age; inFlight may be nil.
// It returns the number of files removed.
func (m *Manager) Sweep(maxAge time.Duration, inFlight func(domain.JobID) bool) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("read artifact directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		jobID, ok := artifactJobID(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		if inFlight != nil && inFlight(jobID) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to sweep artifact", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Writable reports whether a file can be created in the artifact directory.
func (m *Manager) Writable() error {
	f, err := os.CreateTemp(m.dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// FreeSpace returns the bytes available to unprivileged users in the
// artifact directory, or 0 if unknown.
func (m *Manager) FreeSpace() int64 {
	return freeDiskSpace(m.dir)
}

// artifactJobID returns the job id an artifact file name belongs to.
func artifactJobID(name string) (domain.JobID, bool) {
	for _, suffix := range []string{videoSuffix, audioSuffix, outputSuffix} {
		if id, ok := strings.CutSuffix(name, suffix); ok && id != "" {
			return domain.JobID(id), true
		}
	}
	return "", false
}
