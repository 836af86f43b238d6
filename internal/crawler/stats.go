package crawler

// RunStats counts what a harvest run did. Skips are partitioned by reason so
// the exit summary can tell a quiet index from a broken parser.
type RunStats struct {
	PagesScanned        int
	ItemsSeen           int
	Records             int
	TotalTechniques     int
	SkippedNoDate       int
	SkippedNoTechniques int
	SkippedDuplicate    int
	FetchFailures       int
	HaltedByCutoff      bool
}
