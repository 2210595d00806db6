// Package logging keeps a durable record of every command a player ran.
package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type CommandLog struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Command   string    `json:"command"`
	Response  string    `json:"response"`
	Rating    *int      `json:"rating,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

type CommandLogger struct {
	db  *sql.DB
	now func() time.Time
}

func NewCommandLogger(path string) (*CommandLogger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := &CommandLogger{db: db, now: time.Now}
	if err := logger.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return logger, nil
}

func (cl *CommandLogger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT NOT NULL,
		command TEXT NOT NULL,
		response TEXT NOT NULL,
		rating INTEGER,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_commands_timestamp ON commands(timestamp);
	CREATE INDEX IF NOT EXISTS idx_commands_session ON commands(session_id);
	`

	_, err := cl.db.Exec(schema)
	return err
}

func (cl *CommandLogger) Log(ctx context.Context, sessionID, command, response string) error {
	_, err := cl.db.ExecContext(ctx, `
		INSERT INTO commands (timestamp, session_id, command, response)
		VALUES (?, ?, ?, ?)
	`, cl.now().UTC(), sessionID, command, response)
	return err
}

// Recent returns up to limit entries, newest first.
func (cl *CommandLogger) Recent(ctx context.Context, limit int) ([]CommandLog, error) {
	rows, err := cl.db.QueryContext(ctx, `
		SELECT id, timestamp, session_id, command, response, rating, notes
		FROM commands
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommandLog
	for rows.Next() {
		var c CommandLog
		if err := rows.Scan(&c.ID, &c.Timestamp, &c.SessionID, &c.Command, &c.Response, &c.Rating, &c.Notes); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rate attaches a reviewer score to a logged command.
func (cl *CommandLogger) Rate(ctx context.Context, id, rating int, notes string) error {
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	res, err := cl.db.ExecContext(ctx, `
		UPDATE commands
		SET rating = ?, notes = ?
		WHERE id = ?
	`, rating, notesPtr, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("command %d not found", id)
	}
	return nil
}

func (cl *CommandLogger) Close() error {
	return cl.db.Close()
}
