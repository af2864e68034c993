package domain

import "time"

// RejectReason explains why a corpus row was not indexed.
type RejectReason string

// Row rejection reasons.
const (
	RejectInvalidRecord   RejectReason = "invalid_record"
	RejectDuplicateID     RejectReason = "duplicate_id"
	RejectEmptyNarrative  RejectReason = "empty_narrative"
	RejectCategory        RejectReason = "category_filtered"
	RejectEmptyAfterClean RejectReason = "empty_after_cleaning"
	RejectSampled         RejectReason = "sampled_out"
)

// BuildStage identifies a phase of an index build for progress reporting.
type BuildStage string

// Index build stages.
const (
	StageLoad    BuildStage = "load"
	StageSegment BuildStage = "segment"
	StageEmbed   BuildStage = "embed"
	StageIndex   BuildStage = "index"
	StageSave    BuildStage = "save"
)

// BuildProgress is reported while an index build runs.
type BuildProgress struct {
	Stage BuildStage
	Done  int
	Total int
}

// BuildReport summarises a completed index build.
type BuildReport struct {
	Manifest IndexManifest

	// Path is where the index was saved.
	Path string

	// Rows is the number of data rows read from the corpus.
	Rows int

	// Accepted is the number of documents that were indexed.
	Accepted int

	// Rejected counts rows by reason.
	Rejected map[RejectReason]int

	Duration time.Duration
}

// RejectedTotal returns the number of rows not indexed.
func (r *BuildReport) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}
