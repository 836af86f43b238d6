package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart Stage = "RUN_START"
	StageRunDone  Stage = "RUN_DONE"
	StageRunError Stage = "RUN_ERROR"
	StagePageDone Stage = "PAGE_DONE"
	StageItemDone Stage = "ITEM_DONE"
)

// Outcome records how an advisory item was disposed of.
type Outcome string

// Supported item outcomes. Only OutcomeRecord contributes to the output
// sequence; the others describe why an item was skipped.
const (
	OutcomeRecord       Outcome = "record"
	OutcomeFetchError   Outcome = "fetch_error"
	OutcomeNoDate       Outcome = "no_date"
	OutcomeNoTechniques Outcome = "no_techniques"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeTooOld       Outcome = "too_old"
)

// Event captures a single component of harvest progress.
type Event struct {
	// RunID uniquely identifies a harvest run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle, page, or item milestone occurred.
	Stage Stage
	// Page is the zero-based index page number for page events.
	Page int
	// URL is the index page or advisory URL the event refers to.
	URL string
	// Items carries the number of item links enumerated on an index page.
	Items int64
	// Outcome classifies item completions.
	Outcome Outcome
	// Techniques counts the technique references resolved for a record.
	Techniques int64
	// Dur captures execution latency for items and run completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StagePageDone:
		if e.URL == "" {
			return errors.New("page done requires url")
		}
	case StageItemDone:
		if e.URL == "" {
			return errors.New("item done requires url")
		}
		if e.Outcome == "" {
			return errors.New("item done requires outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for sinks.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
