// Package muxer combines a video-only and an audio-only file into one MP4.
package muxer

import "context"

// Request names the inputs and the output of a mux run.
type Request struct {
	VideoPath  string
	AudioPath  string
	OutputPath string
}

// ProgressFunc receives mux progress as a percentage in [0,100].
// Successive values never decrease.
type ProgressFunc func(percent float64)

// Muxer combines one video track with one audio track.
type Muxer interface {
	Mux(ctx context.Context, req Request, onProgress ProgressFunc) error
}
