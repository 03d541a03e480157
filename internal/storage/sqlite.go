package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/podiumlabs/podium/internal/core"
)

// SQLiteSink implements Sink using SQLite.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink creates a new SQLite sink instance.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteSink{
		db:   db,
		path: dbPath,
	}, nil
}

// Initialize creates the database schema.
func (s *SQLiteSink) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS debates (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		background TEXT NOT NULL DEFAULT '',
		pro_name TEXT NOT NULL DEFAULT '',
		con_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		verdict_json TEXT,
		failure_reason TEXT NOT NULL DEFAULT '',
		verdict_note TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS turns (
		debate_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (debate_id, seq),
		FOREIGN KEY (debate_id) REFERENCES debates(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_debates_created_at ON debates(created_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Save stores the full debate snapshot, replacing any prior record.
func (s *SQLiteSink) Save(debate *core.Debate) error {
	var verdictJSON *string
	if debate.Verdict != nil {
		data, err := json.Marshal(debate.Verdict)
		if err != nil {
			return fmt.Errorf("failed to marshal verdict: %w", err)
		}
		str := string(data)
		verdictJSON = &str
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT OR REPLACE INTO debates
		(id, topic, background, pro_name, con_name, status, verdict_json, failure_reason, verdict_note, created_at, updated_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		debate.ID,
		debate.Topic,
		debate.Background,
		debate.ProName,
		debate.ConName,
		debate.Status,
		verdictJSON,
		debate.FailureReason,
		debate.VerdictNote,
		debate.CreatedAt,
		debate.UpdatedAt,
		debate.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debate: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM turns WHERE debate_id = ?", debate.ID); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}

	for _, turn := range debate.Transcript {
		_, err := tx.Exec(
			"INSERT INTO turns (debate_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			debate.ID,
			turn.Seq,
			turn.Role,
			turn.Content,
			turn.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", turn.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Get retrieves a stored debate with its transcript.
func (s *SQLiteSink) Get(id string) (*core.Debate, error) {
	query := `
	SELECT id, topic, background, pro_name, con_name, status, verdict_json, failure_reason, verdict_note, created_at, updated_at, completed_at
	FROM debates
	WHERE id = ?
	`

	var debate core.Debate
	var verdictJSON sql.NullString
	var completedAt sql.NullTime

	err := s.db.QueryRow(query, id).Scan(
		&debate.ID,
		&debate.Topic,
		&debate.Background,
		&debate.ProName,
		&debate.ConName,
		&debate.Status,
		&verdictJSON,
		&debate.FailureReason,
		&debate.VerdictNote,
		&debate.CreatedAt,
		&debate.UpdatedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debate: %w", err)
	}

	if verdictJSON.Valid {
		var verdict core.Verdict
		if err := json.Unmarshal([]byte(verdictJSON.String), &verdict); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdict: %w", err)
		}
		debate.Verdict = &verdict
	}

	if completedAt.Valid {
		debate.CompletedAt = &completedAt.Time
	}

	rows, err := s.db.Query(
		"SELECT seq, role, content, created_at FROM turns WHERE debate_id = ? ORDER BY seq ASC",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn core.Turn
		if err := rows.Scan(&turn.Seq, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		debate.Transcript = append(debate.Transcript, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	return &debate, nil
}

// List returns stored debate summaries, most-recently-created first.
func (s *SQLiteSink) List(limit, offset int) ([]*core.DebateSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT d.id, d.topic, d.status, d.created_at,
		   (SELECT COUNT(*) FROM turns WHERE debate_id = d.id) as turn_count
	FROM debates d
	ORDER BY d.created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list debates: %w", err)
	}
	defer rows.Close()

	var summaries []*core.DebateSummary
	for rows.Next() {
		var summary core.DebateSummary
		err := rows.Scan(
			&summary.ID,
			&summary.Topic,
			&summary.Status,
			&summary.CreatedAt,
			&summary.TurnCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debate summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	return summaries, rows.Err()
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "podium.db"
	}
	return filepath.Join(home, ".podium", "podium.db")
}
