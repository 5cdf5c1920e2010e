package domain

import (
	"fmt"
	"strings"
	"time"
)

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Documents is the number of documents written to the index.
	Documents int

	// Chunks is the number of entries written.
	Chunks int

	// Unchanged counts documents skipped because their content hash matched.
	Unchanged int

	// Removed counts documents deleted because they left the source.
	Removed int

	// Failed lists per-document failures. A run with failures still
	// commits every document that succeeded.
	Failed []DocumentFailure

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// DocumentFailure records why one document could not be ingested.
type DocumentFailure struct {
	SourcePath string
	Err        error
}

// PartialIngestError reports a completed run in which some documents
// failed. Every other document was committed.
type PartialIngestError struct {
	Failures []DocumentFailure
}

func (e *PartialIngestError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.SourcePath + ": " + f.Err.Error()
	}
	return fmt.Sprintf("%d documents failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap exposes the per-document errors to errors.Is and errors.As.
func (e *PartialIngestError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
