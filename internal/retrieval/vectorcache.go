package retrieval

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

// VectorCache persists embeddings keyed by model and text so a restart does
// not re-embed unchanged content.
type VectorCache interface {
	// GetMany returns one entry per text; misses are nil.
	GetMany(ctx context.Context, model string, texts []string) ([][]float32, error)

	// PutMany stores vectors[i] for texts[i].
	PutMany(ctx context.Context, model string, texts []string, vectors [][]float32) error
}

// Compile-time check that SQLiteVectorCache implements VectorCache.
var _ VectorCache = (*SQLiteVectorCache)(nil)

// SQLiteVectorCache stores embeddings in the embedding_cache table. The
// table must already exist (created via storage migrations).
type SQLiteVectorCache struct {
	db *sql.DB
}

// NewSQLiteVectorCache wraps an existing *sql.DB.
func NewSQLiteVectorCache(db *sql.DB) *SQLiteVectorCache {
	return &SQLiteVectorCache{db: db}
}

// textHash keys a text independently of its length.
func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// maxLookupArgs keeps IN lists well under SQLite's variable limit.
const maxLookupArgs = 500

func (c *SQLiteVectorCache) GetMany(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	positions := make(map[string][]int, len(texts))
	hashes := make([]string, 0, len(texts))
	for i, t := range texts {
		h := textHash(t)
		if _, seen := positions[h]; !seen {
			hashes = append(hashes, h)
		}
		positions[h] = append(positions[h], i)
	}

	for start := 0; start < len(hashes); start += maxLookupArgs {
		end := min(start+maxLookupArgs, len(hashes))
		chunk := hashes[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, model)
		for _, h := range chunk {
			args = append(args, h)
		}
		query := `SELECT text_hash, embedding FROM embedding_cache
			WHERE model = ? AND text_hash IN (?` + strings.Repeat(",?", len(chunk)-1) + `)`

		if err := c.scanInto(ctx, query, args, positions, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *SQLiteVectorCache) scanInto(ctx context.Context, query string, args []any, positions map[string][]int, out [][]float32) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying embedding cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h string
		var blob []byte
		if err := rows.Scan(&h, &blob); err != nil {
			return fmt.Errorf("scanning cached embedding: %w", err)
		}
		vec, err := decodeFloat32s(blob)
		if err != nil {
			return fmt.Errorf("decoding cached embedding %s: %w", h, err)
		}
		for _, i := range positions[h] {
			out[i] = vec
		}
	}
	return rows.Err()
}

func (c *SQLiteVectorCache) PutMany(ctx context.Context, model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("put: %d texts, %d vectors", len(texts), len(vectors))
	}
	if len(texts) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embedding_cache (model, text_hash, dim, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model, text_hash) DO UPDATE SET dim = excluded.dim, embedding = excluded.embedding`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing cache insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, t := range texts {
		if _, err := stmt.ExecContext(ctx, model, textHash(t), len(vectors[i]), encodeFloat32s(vectors[i]), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("caching embedding %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of cached vectors for model.
func (c *SQLiteVectorCache) Count(ctx context.Context, model string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embedding_cache WHERE model = ?", model).Scan(&n)
	return n, err
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
// Returns an error if the byte slice length is not a multiple of 4 (indicates data corruption).
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
