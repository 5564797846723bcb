// Package ingest loads scraper output and seller lists into the catalog store.
package ingest

import "fmt"

// LoadError represents an error reading or decoding an input file
type LoadError struct {
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("load error: %s", e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ImportError represents a failed scrape session import. Nothing of the
// session is persisted when it is returned.
type ImportError struct {
	JobID string
	Cause error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import of scrape job %s failed: %v", e.JobID, e.Cause)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}
