package muxer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// rampCeiling is the highest value the synthetic estimate reaches.
	rampCeiling = 95.0
	// rampFactor is the share of the remaining distance covered per tick.
	rampFactor = 0.05
)

// parseProgressLine splits a "key=value" line from ffmpeg -progress output.
func parseProgressLine(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(strings.TrimSpace(line), "=")
	if !ok || key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func parseMicros(value string) (int64, bool) {
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return us, true
}

// percentOfDuration converts an output position in microseconds into a
// percentage of totalSeconds.
func percentOfDuration(outTimeMicros int64, totalSeconds float64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	return clampPercent(float64(outTimeMicros) / 1e6 / totalSeconds * 100)
}

// nextRampValue moves current a fixed share closer to rampCeiling.
func nextRampValue(current float64) float64 {
	if current >= rampCeiling {
		return current
	}
	return current + (rampCeiling-current)*rampFactor
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// mediaDuration returns the container duration of path in seconds.
func mediaDuration(ctx context.Context, ffprobePath, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "format=duration",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeDuration(output)
}

func parseProbeDuration(output []byte) (float64, error) {
	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if parsed.Format.Duration == "" || parsed.Format.Duration == "N/A" {
		return 0, fmt.Errorf("duration unavailable")
	}
	dur, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", parsed.Format.Duration, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", dur)
	}
	return dur, nil
}
