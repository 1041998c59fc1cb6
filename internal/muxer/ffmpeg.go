package muxer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/iconidentify/ytmux/internal/config"
)

// stderrTailBytes bounds how much ffmpeg stderr is kept for error messages.
const stderrTailBytes = 4096

// FFmpegMuxer implements Muxer by running ffmpeg.
type FFmpegMuxer struct {
	cfg    config.MuxConfig
	logger *slog.Logger
}

// NewFFmpegMuxer creates a new ffmpeg-backed muxer. Binaries are looked up
// on each run so a missing ffmpeg surfaces as a mux error, not a startup error.
func NewFFmpegMuxer(cfg config.MuxConfig, logger *slog.Logger) *FFmpegMuxer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegMuxer{
		cfg:    cfg,
		logger: logger,
	}
}

// IsAvailable reports whether the configured ffmpeg binary can be found.
func (m *FFmpegMuxer) IsAvailable() bool {
	_, err := exec.LookPath(m.cfg.FFmpegPath)
	return err == nil
}

// BuildArgs returns the ffmpeg arguments for req. The first video stream of
// the video input and the first audio stream of the audio input are mapped;
// video is copied and audio is re-encoded with the given codec and bitrate.
func BuildArgs(req Request, audioCodec, audioBitrate string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-progress", "pipe:1",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", audioCodec,
	}
	if audioBitrate != "" {
		args = append(args, "-b:a", audioBitrate)
	}
	return append(args,
		"-shortest",
		"-movflags", "+faststart",
		"-f", "mp4",
		"-y",
		req.OutputPath,
	)
}

// Mux implements Muxer.
func (m *FFmpegMuxer) Mux(ctx context.Context, req Request, onProgress ProgressFunc) error {
	ffmpegPath, err := exec.LookPath(m.cfg.FFmpegPath)
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	total := m.expectedDuration(ctx, req)
	track := newTracker(onProgress)
	track.update(0)

	args := BuildArgs(req, m.cfg.AudioCodec, m.cfg.AudioBitrate)
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &tailWriter{max: stderrTailBytes}
	cmd.Stderr = stderr

	m.logger.Debug("starting ffmpeg",
		"video", req.VideoPath,
		"audio", req.AudioPath,
		"output", req.OutputPath,
		"expected_duration", total,
	)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	stopRamp := func() {}
	if total <= 0 {
		stopRamp = startRamp(track, m.cfg.RampInterval)
	}

	if err := readProgress(stdout, total, track, stopRamp); err != nil {
		m.logger.Warn("ffmpeg progress output unreadable", "error", err)
	}

	waitErr := cmd.Wait()
	stopRamp()

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("ffmpeg exited with code %d: %s", exitErr.ExitCode(), stderr.String())
		}
		return fmt.Errorf("ffmpeg: %w", waitErr)
	}

	track.update(100)
	return nil
}

// readProgress turns ffmpeg -progress output into percent updates. It always
// consumes r to EOF so ffmpeg never blocks on a full pipe, and returns the
// first scan error. 100 is left to the caller once the exit status is known.
func readProgress(r io.Reader, total float64, track *tracker, stopRamp func()) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := parseProgressLine(scanner.Text())
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// ffmpeg reports microseconds under both keys
			if total > 0 {
				if us, ok := parseMicros(value); ok {
					track.update(percentOfDuration(us, total))
				}
			}
		case "progress":
			if value == "end" {
				stopRamp()
			}
		}
	}
	scanErr := scanner.Err()

	if _, err := io.Copy(io.Discard, r); err != nil && scanErr == nil {
		scanErr = err
	}
	return scanErr
}

// expectedDuration returns the shorter of the two input durations in seconds,
// or 0 if either cannot be determined.
func (m *FFmpegMuxer) expectedDuration(ctx context.Context, req Request) float64 {
	if m.cfg.FFprobePath == "" {
		return 0
	}
	ffprobeBin, err := exec.LookPath(m.cfg.FFprobePath)
	if err != nil {
		return 0
	}

	videoDur, err := mediaDuration(ctx, ffprobeBin, req.VideoPath)
	if err != nil {
		m.logger.Debug("read video duration failed", "error", err)
		return 0
	}
	audioDur, err := mediaDuration(ctx, ffprobeBin, req.AudioPath)
	if err != nil {
		m.logger.Debug("read audio duration failed", "error", err)
		return 0
	}
	return min(videoDur, audioDur)
}

// tracker forwards progress values that are greater than the last one sent.
type tracker struct {
	mu      sync.Mutex
	emit    ProgressFunc
	last    float64
	started bool
}

func newTracker(emit ProgressFunc) *tracker {
	return &tracker{emit: emit}
}

func (t *tracker) update(percent float64) {
	percent = clampPercent(percent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started && percent <= t.last {
		return
	}
	t.started = true
	t.last = percent
	if t.emit != nil {
		t.emit(percent)
	}
}

func (t *tracker) current() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// startRamp emits a synthetic estimate on every tick, approaching rampCeiling
// without reaching it. The returned stop func is idempotent and waits for the
// ramp goroutine to exit.
func startRamp(track *tracker, interval time.Duration) func() {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				track.update(nextRampValue(track.current()))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.max {
		w.buf = w.buf[len(w.buf)-w.max:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.buf))
}
