// ABOUTME: Document is a unit of source text handed to the ingestion pipeline
// ABOUTME: Produced by a document source (directory loader, MCP tool input)
package models

// Document is an immutable piece of source text identified by ID
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
