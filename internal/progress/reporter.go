package progress

import (
	"sync"

	"github.com/iconidentify/ytmux/internal/domain"
)

// Reporter publishes one job's progress, keeping each stage's percent
// non-decreasing and within [0,100]. Repeated values are not republished.
type Reporter struct {
	pub Publisher
	key string

	mu   sync.Mutex
	last map[domain.ProgressStage]int
}

// NewReporter creates a reporter publishing to key on pub.
func NewReporter(pub Publisher, key string) *Reporter {
	return &Reporter{
		pub:  pub,
		key:  key,
		last: make(map[domain.ProgressStage]int),
	}
}

// Report publishes percent for stage if it moves the stage forward.
func (r *Reporter) Report(stage domain.ProgressStage, percent float64) {
	ev := domain.NewProgressEvent(stage, percent)

	r.mu.Lock()
	if prev, ok := r.last[stage]; ok && ev.Percent <= prev {
		r.mu.Unlock()
		return
	}
	r.last[stage] = ev.Percent
	r.mu.Unlock()

	r.pub.Publish(r.key, ev)
}

// Bytes reports byte-level progress for stage.
func (r *Reporter) Bytes(stage domain.ProgressStage, received, total int64) {
	r.Report(stage, domain.PercentOf(received, total))
}

// Complete marks stage as finished.
func (r *Reporter) Complete(stage domain.ProgressStage) {
	r.Report(stage, 100)
}
