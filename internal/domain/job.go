package domain

import (
	"fmt"
	"time"
)

// JobID is a unique identifier for a job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// Stage represents the current phase of a job's pipeline.
type Stage string

const (
	StageIdle          Stage = "idle"
	StageFetchingVideo Stage = "fetching_video"
	StageFetchingAudio Stage = "fetching_audio"
	StageMuxing        Stage = "muxing"
	StageDelivering    Stage = "delivering"
	StageDone          Stage = "done"
	StageFailed        Stage = "failed"
)

// pipelineOrder lists the non-failure stages in the order a job walks them.
var pipelineOrder = []Stage{
	StageIdle,
	StageFetchingVideo,
	StageFetchingAudio,
	StageMuxing,
	StageDelivering,
	StageDone,
}

// Stages returns every stage, in pipeline order, followed by StageFailed.
func Stages() []Stage {
	out := make([]Stage, 0, len(pipelineOrder)+1)
	out = append(out, pipelineOrder...)
	return append(out, StageFailed)
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// next returns the stage that follows s, or "" if there is none.
func (s Stage) next() Stage {
	for i, st := range pipelineOrder {
		if st == s && i+1 < len(pipelineOrder) {
			return pipelineOrder[i+1]
		}
	}
	return ""
}

// ArtifactPaths holds the three temporary files owned by one job.
type ArtifactPaths struct {
	Video  string
	Audio  string
	Output string
}

// All returns the paths in allocation order.
func (p ArtifactPaths) All() []string {
	return []string{p.Video, p.Audio, p.Output}
}

// Job represents one in-flight execution of the download pipeline.
type Job struct {
	ID          JobID
	SourceURL   string
	EncodingID  string
	ProgressKey string
	Paths       ArtifactPaths
	Stage       Stage
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewJob creates a job in the idle stage.
func NewJob(id JobID, sourceURL, encodingID, progressKey string) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		SourceURL:   sourceURL,
		EncodingID:  encodingID,
		ProgressKey: progressKey,
		Stage:       StageIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Advance moves the job to the next stage. Skipping a stage, going backwards
// or leaving a terminal stage is an ErrInvalidTransition.
func (j *Job) Advance(to Stage) error {
	if j.Stage.IsTerminal() || j.Stage.next() != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Stage, to)
	}
	j.Stage = to
	j.UpdatedAt = time.Now()
	return nil
}

// Fail moves a non-terminal job to StageFailed and records the cause.
func (j *Job) Fail(err error) error {
	if j.Stage.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Stage, StageFailed)
	}
	j.Stage = StageFailed
	if err != nil {
		j.LastError = err.Error()
	}
	j.UpdatedAt = time.Now()
	return nil
}

// Snapshot returns a copy safe to hand to other goroutines.
func (j *Job) Snapshot() Job {
	return *j
}
