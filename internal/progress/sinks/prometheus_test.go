package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/karlseb/ttpharvest/internal/progress"
)

// TestPrometheusSinkRecordsRunLifecycle ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsRunLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	batch := []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageRunStart},
		{RunID: runID, TS: time.Now().Add(15 * time.Second), Stage: progress.StageRunDone, Dur: 15 * time.Second},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsActive))
	require.Equal(t, 1, testutil.CollectAndCount(sink.runDuration, "harvest_run_duration_seconds"))
}

// TestPrometheusSinkTracksActiveRuns verifies the gauge survives replayed completions.
func TestPrometheusSinkTracksActiveRuns(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	start := progress.Event{RunID: runID, TS: time.Now(), Stage: progress.StageRunStart}
	fail := progress.Event{RunID: runID, TS: time.Now(), Stage: progress.StageRunError, Note: "index fetch failed"}

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{start}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsActive))

	// A replayed completion must not push the gauge negative.
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{fail, fail}))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsActive))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("error")))
}
