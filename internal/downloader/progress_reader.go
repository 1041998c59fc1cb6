package downloader

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// progressReader wraps an io.ReadCloser to report download progress
// and abort stalled transfers (no data for readTimeout).
type progressReader struct {
	reader      io.ReadCloser
	total       int64
	received    int64
	onProgress  ProgressFunc
	readTimeout time.Duration
	watchdog    *time.Timer
	stalled     atomic.Bool
	lastLog     time.Time
	logger      *slog.Logger
	label       string
	mu          sync.Mutex
	closed      bool
	finished    bool
}

func newProgressReader(r io.ReadCloser, total int64, readTimeout time.Duration, onProgress ProgressFunc, logger *slog.Logger, label string) *progressReader {
	p := &progressReader{
		reader:      r,
		total:       total,
		onProgress:  onProgress,
		readTimeout: readTimeout,
		lastLog:     time.Now(),
		logger:      logger,
		label:       label,
	}
	if readTimeout > 0 {
		// Closing the body unblocks a Read that is waiting on a dead connection
		p.watchdog = time.AfterFunc(readTimeout, func() {
			p.stalled.Store(true)
			r.Close()
		})
	}
	if onProgress != nil {
		onProgress(0, total)
	}
	return p
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	if p.stalled.Load() {
		return n, fmt.Errorf("download stalled: no data received for %v", p.readTimeout)
	}

	p.mu.Lock()
	if n > 0 {
		p.received += int64(n)
		if p.watchdog != nil {
			p.watchdog.Reset(p.readTimeout)
		}
		if time.Since(p.lastLog) > 30*time.Second {
			p.logProgress()
			p.lastLog = time.Now()
		}
	}
	received, total := p.received, p.total
	if err == io.EOF && !p.finished {
		p.finished = true
		if total <= 0 {
			// Size was unknown up front; what arrived is the whole stream
			total = received
			p.total = received
		}
	}
	p.mu.Unlock()

	if p.onProgress != nil && (n > 0 || err == io.EOF) {
		p.onProgress(received, total)
	}

	return n, err
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.watchdog != nil {
		p.watchdog.Stop()
	}

	// Log final progress
	if p.received > 0 {
		p.logProgress()
	}
	p.mu.Unlock()

	if p.stalled.Load() {
		// Body was already closed by the watchdog
		return nil
	}
	return p.reader.Close()
}

func (p *progressReader) logProgress() {
	if p.total > 0 {
		pct := float64(p.received) / float64(p.total) * 100
		p.logger.Info("download progress",
			"stream", p.label,
			"downloaded_mb", p.received/(1024*1024),
			"total_mb", p.total/(1024*1024),
			"percent", fmt.Sprintf("%.1f%%", pct),
		)
	} else {
		p.logger.Info("download progress",
			"stream", p.label,
			"downloaded_mb", p.received/(1024*1024),
		)
	}
}
