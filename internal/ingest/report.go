package ingest

// EntryStatus tells what happened to one identified synthesis candidate.
type EntryStatus string

const (
	// StatusStored means the entry was extracted, embedded and written.
	StatusStored EntryStatus = "stored"

	// StatusSkipped means the entry was dropped. The sibling entries of
	// the same document are unaffected.
	StatusSkipped EntryStatus = "skipped"
)

// EntryResult reports the outcome for a single candidate.
type EntryResult struct {
	EntryID string      `json:"entry_id"`
	MOFName string      `json:"mof_name"`
	Status  EntryStatus `json:"status"`
	Reason  string      `json:"reason,omitempty"`
}

// Report summarizes one document's trip through the pipeline.
type Report struct {
	DocumentID string        `json:"document_id"`
	Stored     int           `json:"stored"`
	Skipped    int           `json:"skipped"`
	Entries    []EntryResult `json:"entries,omitempty"`
	// Marked is true when the document was recorded as processed.
	// Documents that yield no stored entries are left unmarked so a
	// later run can retry them.
	Marked bool `json:"marked"`
}

func (r *Report) stored(id, mofName string) {
	r.Stored++
	r.Entries = append(r.Entries, EntryResult{EntryID: id, MOFName: mofName, Status: StatusStored})
}

func (r *Report) skipped(id, mofName, reason string) {
	r.Skipped++
	r.Entries = append(r.Entries, EntryResult{EntryID: id, MOFName: mofName, Status: StatusSkipped, Reason: reason})
}
