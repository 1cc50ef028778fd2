// Package retrieval indexes past conversation messages in SQLite and returns
// the chunks most similar to a query as one text block, ready to be passed
// to the prompt assembler as external context.
package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iksnae/vibe-context/internal"
)

// Separator joins retrieved chunks.
const Separator = "\n\n---\n\n"

var chunksSchema = []string{`
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	embedding  TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS chunks_session ON chunks (session_id)`,
}

// Options tunes chunking.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

// Match is a retrieved chunk with its similarity to the query.
type Match struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// Index stores message chunks and their embeddings.
type Index struct {
	db       *sql.DB
	path     string
	embedder Embedder
	opts     Options
}

// Open opens or creates the index database at path
func Open(path string, embedder Embedder, opts Options) (*Index, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = internal.DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = internal.DefaultChunkOverlap
	}

	db, err := internal.OpenDatabase(path)
	if err != nil {
		return nil, &internal.StorageError{Path: path, Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)
	if err := internal.Migrate(db, chunksSchema...); err != nil {
		db.Close()
		return nil, &internal.StorageError{Path: path, Op: "migrate", Err: err}
	}
	return &Index{db: db, path: path, embedder: embedder, opts: opts}, nil
}

// Close closes the database
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Path returns the database file path
func (ix *Index) Path() string {
	return ix.path
}

// IndexMessage chunks content, embeds the chunks and stores them. Blank
// content is skipped. It returns the number of chunks stored.
func (ix *Index) IndexMessage(ctx context.Context, sessionID string, role internal.Role, content string) (int, error) {
	chunks := Chunk(strings.TrimSpace(content), ix.opts.ChunkSize, ix.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := ix.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &internal.StorageError{Path: ix.path, Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(internal.TimestampFormat)
	for i, chunk := range chunks {
		vec, err := json.Marshal(vectors[i])
		if err != nil {
			return 0, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO chunks (id, session_id, role, content, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			uuid.NewString(), sessionID, string(role), chunk, string(vec), now)
		if err != nil {
			return 0, &internal.StorageError{Path: ix.path, Op: "insert", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, &internal.StorageError{Path: ix.path, Op: "commit", Err: err}
	}

	internal.LogDebug("Indexed %d chunks from session %s", len(chunks), sessionID)
	return len(chunks), nil
}

// IndexHistory indexes every message of a history, returning the chunk count.
func (ix *Index) IndexHistory(ctx context.Context, sessionID string, history []internal.Message) (int, error) {
	total := 0
	for _, m := range history {
		n, err := ix.IndexMessage(ctx, sessionID, m.Role, m.Content)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Count returns the number of stored chunks, optionally for one session.
func (ix *Index) Count(sessionID string) (int, error) {
	query, args := "SELECT COUNT(*) FROM chunks", []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	var n int
	if err := ix.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, &internal.StorageError{Path: ix.path, Op: "count", Err: err}
	}
	return n, nil
}

// Search ranks stored chunks by cosine similarity to query and returns the
// best topK (capped at internal.MaxTopK). An empty sessionID searches every session.
func (ix *Index) Search(ctx context.Context, query, sessionID string, topK int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = internal.DefaultTopK
	}
	if topK > internal.MaxTopK {
		topK = internal.MaxTopK
	}

	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	target := vectors[0]

	sqlQuery, args := "SELECT id, session_id, role, content, embedding FROM chunks", []any{}
	if sessionID != "" {
		sqlQuery += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	rows, err := ix.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, &internal.StorageError{Path: ix.path, Op: "query", Err: err}
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var raw string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &raw); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			internal.LogWarn("Skipping chunk %s with unreadable embedding: %v", m.ID, err)
			continue
		}
		m.Score = CosineSimilarity(target, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Retrieve returns the best matches joined by Separator. Failures are logged
// and yield "", so a broken index never blocks a turn.
func (ix *Index) Retrieve(ctx context.Context, query, sessionID string, topK int) string {
	matches, err := ix.Search(ctx, query, sessionID, topK)
	if err != nil {
		internal.LogWarn("Retrieval failed: %v", err)
		return ""
	}
	return JoinMatches(matches)
}

// JoinMatches joins match contents with Separator.
func JoinMatches(matches []Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Content
	}
	return strings.TrimSpace(strings.Join(parts, Separator))
}

// CosineSimilarity calculates cosine similarity between two vectors.
// Vectors of different length or zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
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
