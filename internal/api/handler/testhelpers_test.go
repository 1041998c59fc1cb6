package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/iconidentify/ytmux/internal/domain"
	"github.com/iconidentify/ytmux/internal/progress"
	"github.com/iconidentify/ytmux/internal/repository"
	"github.com/iconidentify/ytmux/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockJobRepository is a test implementation of repository.JobRepository.
type mockJobRepository struct {
	stats    *repository.JobStats
	statsErr error
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{
		stats: &repository.JobStats{ByStage: map[domain.Stage]int{}},
	}
}

func (m *mockJobRepository) Add(ctx context.Context, job *domain.Job) error { return nil }
func (m *mockJobRepository) Update(ctx context.Context, job *domain.Job) error { return nil }
func (m *mockJobRepository) Remove(ctx context.Context, id domain.JobID) error { return nil }

func (m *mockJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	return nil, domain.ErrJobNotFound
}

func (m *mockJobRepository) List(ctx context.Context) ([]*domain.Job, error) {
	return nil, nil
}

func (m *mockJobRepository) Stats(ctx context.Context) (*repository.JobStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

// mockStorage is a test implementation of TempStorage.
type mockStorage struct {
	dir         string
	writableErr error
	free        int64
}

func (m *mockStorage) Dir() string { return m.dir }
func (m *mockStorage) Writable() error { return m.writableErr }
func (m *mockStorage) FreeSpace() int64 { return m.free }

// mockTool is a test implementation of ToolChecker.
type mockTool struct {
	available bool
}

func (m *mockTool) IsAvailable() bool { return m.available }

// mockHub is a test implementation of HubStats.
type mockHub struct {
	stats progress.Stats
}

func (m *mockHub) Stats() progress.Stats { return m.stats }

// mockCatalog is a test implementation of FormatLister.
type mockCatalog struct {
	encodings []domain.EncodingDescriptor
	err       error
	gotURL    string
}

func (m *mockCatalog) Formats(ctx context.Context, sourceURL string) ([]domain.EncodingDescriptor, error) {
	m.gotURL = sourceURL
	return m.encodings, m.err
}

// mockRunner is a test implementation of DownloadRunner. When content is
// set it delivers it as the deliverable.
type mockRunner struct {
	mu         sync.Mutex
	content    []byte
	err        error
	gotRequest service.DownloadRequest
	deliverErr error
	calls      int
}

func (m *mockRunner) Run(ctx context.Context, req service.DownloadRequest, deliver service.DeliverFunc) (*service.Result, error) {
	m.mu.Lock()
	m.calls++
	m.gotRequest = req
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	result := &service.Result{JobID: "job_test", Size: int64(len(m.content))}
	err := deliver(ctx, service.Deliverable{
		Name:    service.DeliverableName,
		Size:    int64(len(m.content)),
		Content: &sliceReadSeeker{data: m.content},
	})
	if err != nil {
		result.DeliveryErr = errors.Join(domain.ErrDeliveryFailed, err)
	}
	m.deliverErr = err
	return result, nil
}

// sliceReadSeeker is a minimal io.ReadSeeker over a byte slice.
type sliceReadSeeker struct {
	data []byte
	off  int64
}

func (s *sliceReadSeeker) Read(p []byte) (int, error) {
	if s.off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.off:])
	s.off += int64(n)
	return n, nil
}

func (s *sliceReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.off = offset
	case io.SeekCurrent:
		s.off += offset
	case io.SeekEnd:
		s.off = int64(len(s.data)) + offset
	}
	return s.off, nil
}
