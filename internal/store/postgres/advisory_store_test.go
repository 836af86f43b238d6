package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/karlseb/ttpharvest/internal/advisory"
	"github.com/karlseb/ttpharvest/internal/attack"
)

func TestSaveRecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAdvisoryStoreWithPool(mock, "advisories")
	require.NoError(t, err)

	rec := advisory.Record{
		Title:       "Threat Actors Exploit Widget Appliances",
		URL:         "https://example.gov/advisory/aa25-001a",
		Date:        "2025-10-09",
		Summary:     "Actors exploited CVE-2025-0001.",
		Mitigations: "Apply vendor patches.",
		Techniques: []attack.TechniqueReference{
			{ID: "T1566", Name: "Phishing", Tactics: []string{"initial-access"}},
		},
	}

	mock.ExpectExec("INSERT INTO advisories").
		WithArgs(
			rec.Title,
			rec.URL,
			rec.Date,
			rec.Summary,
			rec.Mitigations,
			[]byte(`[{"id":"T1566","name":"Phishing","tactics":["initial-access"]}]`),
			1,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.SaveRecord(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRecordRequiresURL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAdvisoryStoreWithPool(mock, "advisories")
	require.NoError(t, err)

	err = store.SaveRecord(context.Background(), advisory.Record{Title: "no url"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewAdvisoryStoreWithPoolRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewAdvisoryStoreWithPool(mock, "advisories; drop table users")
	require.Error(t, err)
}
