// Package memory persists long-term memories and session context in SQLite.
// Semantic search runs cosine similarity over stored embeddings in Go; when
// no embedder is configured it degrades to substring search.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/pkg/models"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Store is the SQLite-backed memory store.
type Store struct {
	db       *sql.DB
	embedder Embedder
	logger   *observability.Logger
}

// Config contains configuration for the memory store.
type Config struct {
	Path     string // SQLite database file; ":memory:" for tests
	Embedder Embedder
	Logger   *observability.Logger
}

// NewStore opens (and if needed creates) the memory database.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	s := &Store{db: db, embedder: cfg.Embedder, logger: cfg.Logger}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			metadata TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			embedding BLOB
		)`,
		`CREATE TABLE IF NOT EXISTS session_context (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_timestamp ON memory(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create memory schema: %w", err)
		}
	}
	return nil
}

// Store persists one memory. Embedding failures are logged and the entry is
// stored without a vector; the memory itself is never lost to a backend error.
func (s *Store) Store(ctx context.Context, content, metadata string) (int64, error) {
	var blob []byte
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, content)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn(ctx, "embedding failed, storing without vector", "error", err)
			}
		} else {
			blob = encodeEmbedding(vec)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO memory (content, metadata, timestamp, embedding) VALUES (?, ?, ?, ?)`,
		content, metadata, time.Now().UTC(), blob,
	)
	if err != nil {
		return 0, fmt.Errorf("store memory: %w", err)
	}
	return res.LastInsertId()
}

// Search finds memories whose content contains the query, case-insensitive,
// newest first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*models.MemoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, timestamp, embedding FROM memory
		 WHERE LOWER(content) LIKE ? ORDER BY timestamp DESC LIMIT ?`,
		"%"+strings.ToLower(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// SearchSemantic ranks all memories by cosine similarity against the query
// embedding and returns the top limit. Entries without an embedding score
// zero. Falls back to substring search when semantic search is unavailable.
func (s *Store) SearchSemantic(ctx context.Context, query string, limit int) ([]*models.MemoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.embedder == nil {
		return s.Search(ctx, query, limit)
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "query embedding failed, falling back to substring search", "error", err)
		}
		return s.Search(ctx, query, limit)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, timestamp, embedding FROM memory WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		entry.Score = cosineSimilarity(queryVec, entry.Embedding)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Recent returns the newest memories, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*models.MemoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, timestamp, embedding FROM memory
		 ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// PruneOldMemories deletes memories older than the given number of days and
// returns how many were removed.
func (s *Store) PruneOldMemories(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("memory: prune days must be positive")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune memory: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored memories.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory`).Scan(&n)
	return n, err
}

// SetContext upserts one session-context key.
func (s *Store) SetContext(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_context (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set context %s: %w", key, err)
	}
	return nil
}

// GetContext returns a session-context value, or "" when the key is unset.
func (s *Store) GetContext(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_context WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get context %s: %w", key, err)
	}
	return value, nil
}

// AllContext returns every session-context key/value pair.
func (s *Store) AllContext(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_context`)
	if err != nil {
		return nil, fmt.Errorf("list context: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]*models.MemoryEntry, error) {
	var entries []*models.MemoryEntry
	for rows.Next() {
		var entry models.MemoryEntry
		var metadata sql.NullString
		var blob []byte
		if err := rows.Scan(&entry.ID, &entry.Content, &metadata, &entry.Timestamp, &blob); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		if metadata.String != "" {
			// Metadata predating the JSON convention is left empty rather
			// than failing the whole query.
			_ = json.Unmarshal([]byte(metadata.String), &entry.Metadata)
		}
		entry.Embedding = decodeEmbedding(blob)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// encodeEmbedding packs float32s as little-endian IEEE 754 bits.
func encodeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	data := make([]byte, len(embedding)*4)
	for i, f := range embedding {
		bits := math.Float32bits(f)
		data[i*4] = byte(bits)
		data[i*4+1] = byte(bits >> 8)
		data[i*4+2] = byte(bits >> 16)
		data[i*4+3] = byte(bits >> 24)
	}
	return data
}

func decodeEmbedding(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		bits := uint32(data[i*4]) |
			uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 |
			uint32(data[i*4+3])<<24
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MetadataString renders a metadata map as compact JSON for storage.
func MetadataString(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(data)
}
