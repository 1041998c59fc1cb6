package domain

// ProgressStage names the pipeline step a progress event belongs to.
type ProgressStage string

const (
	ProgressVideo ProgressStage = "video"
	ProgressAudio ProgressStage = "audio"
	ProgressMux   ProgressStage = "mux"
)

// ProgressEvent is a transient notification of stage progress.
type ProgressEvent struct {
	Stage   ProgressStage
	Percent int
}

// NewProgressEvent builds an event with percent clamped to [0,100].
func NewProgressEvent(stage ProgressStage, percent float64) ProgressEvent {
	return ProgressEvent{Stage: stage, Percent: ClampPercent(percent)}
}

// ClampPercent truncates p to an integer in [0,100].
func ClampPercent(p float64) int {
	switch {
	case p != p, p <= 0: // NaN or negative
		return 0
	case p >= 100:
		return 100
	default:
		return int(p)
	}
}

// PercentOf returns received/total as a percentage, 0 when total is unknown.
func PercentOf(received, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(received) / float64(total) * 100
}
