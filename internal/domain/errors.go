package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidRequest is returned when the source URL or encoding id is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrResolverFailure is returned when the catalog lookup fails.
	ErrResolverFailure = errors.New("catalog lookup failed")

	// ErrNoEncodings is returned when a source has no video-only MP4 encodings.
	ErrNoEncodings = errors.New("no matching encodings")

	// ErrFetchFailed is returned when retrieving the video or audio stream fails.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrEncodingNotFound is returned when the requested encoding id is not offered.
	ErrEncodingNotFound = errors.New("encoding not found")

	// ErrMissingArtifact is returned when a fetched stream is absent or empty on disk.
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrMissingOutput is returned when the muxer succeeded but left no output file.
	ErrMissingOutput = errors.New("missing output")

	// ErrMuxFailed is returned when the multiplexer process fails.
	ErrMuxFailed = errors.New("mux failed")

	// ErrDeliveryFailed is recorded when streaming the result to the caller fails.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrBusy is returned when no pipeline slot frees up in time.
	ErrBusy = errors.New("too many downloads in progress")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned for an out-of-order stage change.
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// PipelineError wraps a failure with the job and stage it happened in.
// Both Kind and Err match through errors.Is.
type PipelineError struct {
	JobID JobID
	Stage Stage
	Kind  error
	Err   error
}

func (e *PipelineError) Error() string {
	msg := e.Kind.Error()
	if e.Stage != "" {
		msg += " [" + string(e.Stage) + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(jobID JobID, stage Stage, kind, err error) *PipelineError {
	return &PipelineError{
		JobID: jobID,
		Stage: stage,
		Kind:  kind,
		Err:   err,
	}
}
