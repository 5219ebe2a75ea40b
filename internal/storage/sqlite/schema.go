// ABOUTME: SQLite database schema for the vector index
// ABOUTME: Creates the chunks table and the index metadata table
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- Index entries (one row per chunk)
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    text TEXT NOT NULL,
    vector BLOB NOT NULL,
    seq INTEGER NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Index-wide settings such as the embedding dimension
CREATE TABLE IF NOT EXISTS index_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_seq ON chunks(seq);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 2
