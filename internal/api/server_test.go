package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/karlseb/ttpharvest/internal/advisory"
	"github.com/karlseb/ttpharvest/internal/api"
	"github.com/karlseb/ttpharvest/internal/attack"
	"github.com/karlseb/ttpharvest/internal/config"
	"github.com/karlseb/ttpharvest/internal/progress"
	"github.com/karlseb/ttpharvest/internal/progress/sinks"
)

type stubRecords struct {
	records []advisory.Record
}

func (s stubRecords) Records() []advisory.Record {
	return s.records
}

type stubStatus struct {
	status sinks.RunStatus
}

func (s stubStatus) Snapshot() sinks.RunStatus {
	return s.status
}

func newTestServer(t *testing.T, status api.StatusSource, records api.RecordSource, cfg config.OpsConfig) *api.Server {
	t.Helper()
	return api.NewServer(status, records, cfg, zap.NewNop())
}

func doRequest(t *testing.T, srv *api.Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, stubStatus{}, stubRecords{}, config.OpsConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = doRequest(t, srv, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, stubStatus{}, stubRecords{}, config.OpsConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# HELP")
}

func TestGetRunServesSnapshot(t *testing.T) {
	t.Parallel()

	snap := sinks.NewSnapshotSink()
	runID := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, snap.Consume(context.Background(), []progress.Event{
		{RunID: progress.UUIDToBytes(runID), TS: now, Stage: progress.StageRunStart, URL: "https://example.gov/advisories"},
		{RunID: progress.UUIDToBytes(runID), TS: now, Stage: progress.StagePageDone, Page: 0, URL: "https://example.gov/advisories?page=0", Items: 2},
		{RunID: progress.UUIDToBytes(runID), TS: now, Stage: progress.StageItemDone, URL: "https://example.gov/advisory/a", Outcome: progress.OutcomeRecord, Techniques: 2},
	}))

	srv := newTestServer(t, snap, stubRecords{}, config.OpsConfig{})
	rec := doRequest(t, srv, http.MethodGet, "/v1/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status sinks.RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, runID.String(), status.RunID)
	require.Equal(t, sinks.RunStateRunning, status.State)
	require.Equal(t, 1, status.Pages)
	require.Equal(t, int64(2), status.Items)
	require.Equal(t, int64(1), status.Records)
	require.Equal(t, int64(2), status.Techniques)
}

func TestGetRecords(t *testing.T) {
	t.Parallel()

	records := []advisory.Record{
		{
			Title: "Threat Actors Exploit Widget Appliances",
			URL:   "https://example.gov/advisory/aa25-287a",
			Date:  "2025-10-14",
			Techniques: []attack.TechniqueReference{
				{ID: "T1566", Name: "Phishing", Tactics: []string{"initial-access"}},
			},
		},
	}
	srv := newTestServer(t, stubStatus{}, stubRecords{records: records}, config.OpsConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/v1/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []advisory.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, records, got)
}

func TestGetRecordsEmptyIsArray(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, stubStatus{}, stubRecords{}, config.OpsConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/v1/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPIKeyGuardsV1Routes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, stubStatus{}, stubRecords{}, config.OpsConfig{APIKey: "sekrit"})

	// Probes stay open.
	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/run", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/run", map[string]string{"X-API-Key": "wrong"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/run", map[string]string{"X-API-Key": "sekrit"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/records?api_key=sekrit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNilSourcesReportUnavailable(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil, nil, config.OpsConfig{})

	rec := doRequest(t, srv, http.MethodGet, "/v1/run", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/records", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeShutsDownOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, stubStatus{}, stubRecords{}, config.OpsConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
