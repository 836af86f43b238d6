package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/karlseb/ttpharvest/internal/progress"
)

// Run states reported by the snapshot sink.
const (
	RunStateIdle    = "idle"
	RunStateRunning = "running"
	RunStateDone    = "done"
	RunStateError   = "error"
)

// RunStatus is the latest harvest state folded together from progress events.
type RunStatus struct {
	RunID      string     `json:"run_id,omitempty"`
	State      string     `json:"state"`
	StartedAt  time.Time  `json:"started_at,omitzero"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Pages      int        `json:"pages"`
	Items      int64      `json:"items"`
	Records    int64      `json:"records"`
	Techniques int64      `json:"techniques"`
	LastURL    string     `json:"last_url,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// SnapshotSink keeps an in-memory view of the current run so the ops API can
// answer status queries without touching the engine. A new run start resets
// the accumulated counts.
type SnapshotSink struct {
	mu     sync.RWMutex
	status RunStatus
}

// NewSnapshotSink returns an empty snapshot in the idle state.
func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{status: RunStatus{State: RunStateIdle}}
}

// Consume folds the batch into the current status.
func (s *SnapshotSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.apply(evt)
	}
	return nil
}

func (s *SnapshotSink) apply(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.status = RunStatus{
			RunID:     evt.RunUUID().String(),
			State:     RunStateRunning,
			StartedAt: evt.TS,
		}
	case progress.StagePageDone:
		s.status.Pages++
		s.status.Items += evt.Items
		s.status.LastURL = evt.URL
	case progress.StageItemDone:
		if evt.Outcome == progress.OutcomeRecord {
			s.status.Records++
			s.status.Techniques += evt.Techniques
		}
		s.status.LastURL = evt.URL
	case progress.StageRunDone:
		s.finish(evt, RunStateDone)
	case progress.StageRunError:
		s.finish(evt, RunStateError)
	}
}

func (s *SnapshotSink) finish(evt progress.Event, state string) {
	s.status.State = state
	ts := evt.TS
	s.status.FinishedAt = &ts
	if evt.Note != "" {
		s.status.Note = evt.Note
	}
}

// Snapshot returns a copy of the current run status.
func (s *SnapshotSink) Snapshot() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Close implements the Sink interface; it performs no action.
func (s *SnapshotSink) Close(context.Context) error {
	return nil
}
