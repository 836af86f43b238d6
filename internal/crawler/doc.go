// Package crawler implements the harvest engine: it walks the advisory
// index page by page, fans item processing out to a bounded worker pool,
// and assembles the ordered record sequence. The engine owns the run-wide
// dedup set and halts cooperatively once an advisory older than the cutoff
// date is seen.
package crawler
