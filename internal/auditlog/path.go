package auditlog

import (
	"fmt"
	"path/filepath"
	"time"
)

// hivePath returns the year=/month=/day= partitioned directory for t under
// root, matching the object-key partitioning convention used elsewhere in
// this codebase (keyderiver's year=/month=/day=/hour=/minute= scheme).
func hivePath(root string, t time.Time) string {
	t = t.UTC()

	return filepath.Join(root,
		fmt.Sprintf("year=%04d", t.Year()),
		fmt.Sprintf("month=%02d", t.Month()),
		fmt.Sprintf("day=%02d", t.Day()),
	)
}

// journalPath returns the path of the day's shared events.jsonl file.
func journalPath(jsonRoot string, t time.Time) string {
	return filepath.Join(hivePath(jsonRoot, t), "events.jsonl")
}

// jobJournalPath returns the single-object per-job JSONL artifact path.
func jobJournalPath(jsonRoot string, t time.Time, jobID string) string {
	return filepath.Join(hivePath(jsonRoot, t), jobID+".jsonl")
}

// jobCSVPath returns the per-job CSV summary path, named
// upload-summary-HHMMSS-<short_id>.csv.
func jobCSVPath(csvRoot string, t time.Time, jobID string) string {
	shortID := jobID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	name := fmt.Sprintf("upload-summary-%s-%s.csv", t.UTC().Format("150405"), shortID)

	return filepath.Join(hivePath(csvRoot, t), name)
}
