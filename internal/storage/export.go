// ABOUTME: Export functionality for index contents
// ABOUTME: Supports YAML, JSON, and Markdown export formats
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ExportData represents the complete exportable index
type ExportData struct {
	Version    string           `yaml:"version" json:"version"`
	ExportedAt string           `yaml:"exported_at" json:"exported_at"`
	Tool       string           `yaml:"tool" json:"tool"`
	Dimension  int              `yaml:"dimension" json:"dimension"`
	Documents  []ExportDocument `yaml:"documents" json:"documents"`
}

// ExportDocument groups the chunks of one document
type ExportDocument struct {
	DocumentID string        `yaml:"document_id" json:"document_id"`
	Chunks     []ExportChunk `yaml:"chunks" json:"chunks"`
}

// ExportChunk is one index entry; vectors are only included on request
type ExportChunk struct {
	ChunkID   string    `yaml:"chunk_id" json:"chunk_id"`
	Seq       int64     `yaml:"seq" json:"seq"`
	Text      string    `yaml:"text" json:"text"`
	UpdatedAt string    `yaml:"updated_at" json:"updated_at"`
	Embedding []float32 `yaml:"embedding,omitempty,flow" json:"embedding,omitempty"`
}

// Export snapshots the index grouped by document
func (idx *VectorIndex) Export(withVectors bool) *ExportData {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().Format(time.RFC3339),
		Tool:       "docqa",
		Dimension:  idx.Dimension(),
		Documents:  []ExportDocument{},
	}

	byDoc := make(map[string]int)
	for _, e := range idx.Entries() {
		i, ok := byDoc[e.DocumentID]
		if !ok {
			i = len(data.Documents)
			byDoc[e.DocumentID] = i
			data.Documents = append(data.Documents, ExportDocument{DocumentID: e.DocumentID})
		}

		chunk := ExportChunk{
			ChunkID:   e.ID,
			Seq:       e.Seq,
			Text:      e.Text,
			UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
		}
		if withVectors {
			chunk.Embedding = e.Embedding
		}
		data.Documents[i].Chunks = append(data.Documents[i].Chunks, chunk)
	}

	sort.Slice(data.Documents, func(i, j int) bool {
		return data.Documents[i].DocumentID < data.Documents[j].DocumentID
	})
	return data
}

// WriteYAML encodes data as YAML
func (data *ExportData) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteJSON encodes data as indented JSON
func (data *ExportData) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteMarkdown renders data as a readable Markdown document
func (data *ExportData) WriteMarkdown(w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Index Export - %s\n\n", time.Now().Format("2006-01-02"))
	_, _ = fmt.Fprintf(w, "Generated: %s\n\n", data.ExportedAt)
	_, _ = fmt.Fprintf(w, "- **Documents:** %d\n", len(data.Documents))
	_, _ = fmt.Fprintf(w, "- **Dimension:** %d\n\n", data.Dimension)

	for _, doc := range data.Documents {
		_, _ = fmt.Fprintf(w, "## %s\n\n", doc.DocumentID)
		for _, c := range doc.Chunks {
			_, _ = fmt.Fprintf(w, "### %s\n\n", c.ChunkID)
			_, _ = fmt.Fprintf(w, "%s\n\n", c.Text)
		}
		_, _ = fmt.Fprintln(w, "---")
		_, _ = fmt.Fprintln(w)
	}
	return nil
}
