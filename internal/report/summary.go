package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/karlseb/ttpharvest/internal/advisory"
	"github.com/karlseb/ttpharvest/internal/crawler"
)

// topTechniques caps the ranking table in the summary.
const topTechniques = 10

// RunInfo carries everything the summary needs about a finished run.
type RunInfo struct {
	RunID    string
	IndexURL string
	Started  time.Time
	Duration time.Duration
	Stats    crawler.RunStats
	Records  []advisory.Record
}

// WriteSummary renders a markdown digest of the run to path.
func WriteSummary(path string, info RunInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := RenderSummary(f, info); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close summary: %w", err)
	}
	return nil
}

// RenderSummary writes the markdown digest to w.
func RenderSummary(w io.Writer, info RunInfo) error {
	md := markdown.NewMarkdown(w)

	md.H1("Harvest Run Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + info.RunID + "`"},
			{"Index", info.IndexURL},
			{"Started", info.Started.UTC().Format("2006-01-02 15:04:05 MST")},
			{"Duration", info.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	md.H2("Totals")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Index pages scanned", strconv.Itoa(info.Stats.PagesScanned)},
			{"Items seen", strconv.Itoa(info.Stats.ItemsSeen)},
			{"Records produced", strconv.Itoa(info.Stats.Records)},
			{"Technique mentions", strconv.Itoa(info.Stats.TotalTechniques)},
			{"Skipped, no date", strconv.Itoa(info.Stats.SkippedNoDate)},
			{"Skipped, no techniques", strconv.Itoa(info.Stats.SkippedNoTechniques)},
			{"Skipped, duplicate", strconv.Itoa(info.Stats.SkippedDuplicate)},
			{"Fetch failures", strconv.Itoa(info.Stats.FetchFailures)},
		},
	})
	md.PlainText("")

	if info.Stats.HaltedByCutoff {
		md.Note("The crawl halted at the configured date cutoff; older advisories were not fetched.")
		md.PlainText("")
	}

	writeTechniqueRanking(md, info.Records)
	writeRecordList(md, info.Records)

	return md.Build()
}

func writeTechniqueRanking(md *markdown.Markdown, records []advisory.Record) {
	counts := map[string]int{}
	names := map[string]string{}
	for _, rec := range records {
		for _, ref := range rec.Techniques {
			counts[ref.ID]++
			if ref.Name != "" {
				names[ref.ID] = ref.Name
			}
		}
	}
	if len(counts) == 0 {
		return
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > topTechniques {
		ids = ids[:topTechniques]
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = "-"
		}
		rows = append(rows, []string{id, name, strconv.Itoa(counts[id])})
	}

	md.H2("Top Techniques")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Name", "Mentions"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeRecordList(md *markdown.Markdown, records []advisory.Record) {
	md.H2("Records")
	md.PlainText("")
	if len(records) == 0 {
		md.PlainText("No records were produced.")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s)", rec.Title, rec.URL),
			rec.Date,
			strconv.Itoa(len(rec.Techniques)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Advisory", "Date", "Techniques"},
		Rows:   rows,
	})
}
