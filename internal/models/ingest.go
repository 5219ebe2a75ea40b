// ABOUTME: Ingestion state machine and per-run reporting types
// ABOUTME: Each document moves LOADED → CHUNKED → EMBEDDED → INDEXED independently
package models

import "time"

// IngestState is the furthest stage every chunk of a document has reached
type IngestState string

const (
	StateLoaded   IngestState = "LOADED"
	StateChunked  IngestState = "CHUNKED"
	StateEmbedded IngestState = "EMBEDDED"
	StateIndexed  IngestState = "INDEXED"
)

// rank orders states for comparisons
func (s IngestState) rank() int {
	switch s {
	case StateChunked:
		return 1
	case StateEmbedded:
		return 2
	case StateIndexed:
		return 3
	default:
		return 0
	}
}

// Before reports whether s is an earlier stage than other
func (s IngestState) Before(other IngestState) bool {
	return s.rank() < other.rank()
}

// ChunkFailure records one chunk that could not be indexed
type ChunkFailure struct {
	DocumentID string      `json:"document_id"`
	ChunkID    string      `json:"chunk_id"`
	Stage      IngestState `json:"stage"` // the stage the chunk was stuck at
	Err        error       `json:"-"`
	Message    string      `json:"error"`
}

// DocumentReport summarizes ingestion of one document
type DocumentReport struct {
	DocumentID string         `json:"document_id"`
	State      IngestState    `json:"state"`
	ChunkCount int            `json:"chunk_count"`
	Indexed    int            `json:"indexed"`
	Pruned     int            `json:"pruned,omitempty"`
	Failures   []ChunkFailure `json:"failures,omitempty"`
}

// IngestReport summarizes an ingestion run
type IngestReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Documents  []DocumentReport `json:"documents"`
}

// TotalChunks returns the number of chunks produced across documents
func (r *IngestReport) TotalChunks() int {
	n := 0
	for _, d := range r.Documents {
		n += d.ChunkCount
	}
	return n
}

// TotalIndexed returns the number of chunks indexed across documents
func (r *IngestReport) TotalIndexed() int {
	n := 0
	for _, d := range r.Documents {
		n += d.Indexed
	}
	return n
}

// Failures returns every chunk failure in document order
func (r *IngestReport) Failures() []ChunkFailure {
	var out []ChunkFailure
	for _, d := range r.Documents {
		out = append(out, d.Failures...)
	}
	return out
}
