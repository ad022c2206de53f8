package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/clinsight-cli/internal/utils"
)

// SQLiteStore keeps entries in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := utils.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("create feedback dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	conversation_id TEXT,
	response TEXT NOT NULL,
	confidence REAL NOT NULL,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_conversation ON feedback(conversation_id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init feedback schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, e Entry) (Entry, error) {
	e, err := prepare(e)
	if err != nil {
		return Entry{}, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO feedback (id, conversation_id, response, confidence, rating, comment, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, e.ID, e.ConversationID, e.Response, e.Confidence, e.Rating, e.Comment, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("insert feedback: %w", err)
	}
	return e, nil
}

// List returns the newest entries first; ULIDs sort by creation time.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, conversation_id, response, confidence, rating, comment, created_at
FROM feedback
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e             Entry
			conv, comment sql.NullString
			created       string
		)
		if err := rows.Scan(&e.ID, &conv, &e.Response, &e.Confidence, &e.Rating, &comment, &created); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		e.ConversationID = conv.String
		e.Comment = comment.String
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
