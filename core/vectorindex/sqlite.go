package vectorindex

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adalundhe/sibyl/core/chunking"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id     TEXT PRIMARY KEY,
	document_id  TEXT NOT NULL,
	ordinal      INTEGER NOT NULL,
	overlap      INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	text         TEXT NOT NULL,
	vector       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`

// Store persists chunk vectors to sqlite so the index survives restarts.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) a sqlite-backed chunk store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open chunk store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init chunk store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save writes a chunk and its vector, replacing any previous row.
func (s *Store) Save(chunk chunking.Chunk, vector []float32) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO chunks
		 (chunk_id, document_id, ordinal, overlap, start_offset, end_offset, text, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ChunkID, chunk.DocumentID, chunk.Ordinal, chunk.OverlapWithPrev,
		chunk.StartOffset, chunk.EndOffset, chunk.Text, encodeVector(vector),
	)
	if err != nil {
		return fmt.Errorf("save chunk %s: %w", chunk.ChunkID, err)
	}
	return nil
}

// LoadInto replays every persisted chunk into the index.
func (s *Store) LoadInto(ix *Index) error {
	rows, err := s.db.Query(
		`SELECT chunk_id, document_id, ordinal, overlap, start_offset, end_offset, text, vector
		 FROM chunks ORDER BY document_id, ordinal`)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c chunking.Chunk
		var blob []byte
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Ordinal, &c.OverlapWithPrev,
			&c.StartOffset, &c.EndOffset, &c.Text, &blob); err != nil {
			return fmt.Errorf("scan chunk: %w", err)
		}
		if err := ix.Upsert(c, decodeVector(blob)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
