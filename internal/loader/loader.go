// ABOUTME: Plain-text document source for the ingestion pipeline
// ABOUTME: Reads every .txt file in a directory into a Document keyed by file name
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/harper/docqa/internal/logger"
	"github.com/harper/docqa/internal/models"
)

// Extension is the only file type the loader picks up
const Extension = ".txt"

// LoadDirectory reads the top-level .txt files in dir, sorted by name.
// Subdirectories are not descended into.
func LoadDirectory(dir string) ([]models.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, models.InvalidConfig("document directory %s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, models.InvalidConfig("document path %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var docs []models.Document
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		doc, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	logger.Debug("loaded documents", "dir", dir, "count", len(docs))
	return docs, nil
}

// LoadFile reads a single UTF-8 text file; the document ID is its base name
func LoadFile(path string) (models.Document, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return models.Document{}, models.InvalidConfig("document %s is not valid UTF-8", path)
	}
	return models.Document{ID: filepath.Base(path), Text: string(data)}, nil
}
