package memory

import (
	"context"
	"testing"

	"github.com/karlseb/ttpharvest/internal/advisory"
)

func TestPublisherStoresRecords(t *testing.T) {
	t.Parallel()

	pub := New()
	if err := pub.Publish(context.Background(), advisory.Record{Title: "Advisory A", URL: "https://example.gov/a"}); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	if err := pub.Publish(context.Background(), advisory.Record{Title: "Advisory B", URL: "https://example.gov/b"}); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	recs := pub.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Title != "Advisory A" || recs[1].Title != "Advisory B" {
		t.Fatalf("records not stored in order: %+v", recs)
	}

	recs[0].Title = "modified"
	if pub.Records()[0].Title == "modified" {
		t.Fatal("expected Records() to return a copy")
	}
}
