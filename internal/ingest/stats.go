package ingest

// Stats accumulates counters for one ingestion run.
type Stats struct {
	Scanned           int
	SkippedDuplicate  int
	NewDesigns        int
	NewVersions       int
	PreviewsGenerated int
	Errors            int
}
