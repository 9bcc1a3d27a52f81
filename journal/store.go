package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("entry not found")

// Entry is one journal record with the model outputs stored alongside it.
type Entry struct {
	ID               string          `json:"id"`
	Owner            string          `json:"owner"`
	Title            string          `json:"title"`
	Text             string          `json:"text"`
	AudioPath        string          `json:"audio_file,omitempty"`
	TextEmotions     json.RawMessage `json:"text_emotions"`
	SpeechEmotions   json.RawMessage `json:"speech_emotions"`
	CombinedEmotions json.RawMessage `json:"combined_emotions"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// MarshalJSON reports the audio attachment by file name only; the stored path
// is server-local.
func (e Entry) MarshalJSON() ([]byte, error) {
	type entry Entry
	out := entry(e)
	if out.AudioPath != "" {
		out.AudioPath = filepath.Base(out.AudioPath)
	}
	return json.Marshal(out)
}

// Store persists entries in SQLite.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// writes are serialized by sqlite anyway
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		audio_path TEXT NOT NULL DEFAULT '',
		text_emotions TEXT,
		speech_emotions TEXT,
		combined_emotions TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_owner_created ON entries(owner, created_at DESC);
	`)
	return err
}

const entryCols = `id, owner, title, text, audio_path, text_emotions, speech_emotions, combined_emotions, created_at, updated_at`

func (s *Store) Create(ctx context.Context, e *Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO entries (`+entryCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Owner, e.Title, e.Text, e.AudioPath,
		nullJSON(e.TextEmotions), nullJSON(e.SpeechEmotions), nullJSON(e.CombinedEmotions),
		stamp(e.CreatedAt), stamp(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, owner, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryCols+` FROM entries WHERE id = ? AND owner = ?`, id, owner)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns an owner's entries, newest first.
func (s *Store) List(ctx context.Context, owner string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryCols+` FROM entries WHERE owner = ? ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := []*Entry{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update rewrites the user-editable fields.
func (s *Store) Update(ctx context.Context, e *Entry) error {
	res, err := s.db.ExecContext(ctx, `UPDATE entries SET title = ?, text = ?, audio_path = ?, updated_at = ? WHERE id = ? AND owner = ?`,
		e.Title, e.Text, e.AudioPath, stamp(e.UpdatedAt), e.ID, e.Owner)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return affected(res)
}

// SaveEmotions stores the model outputs for an entry.
func (s *Store) SaveEmotions(ctx context.Context, id string, text, speech, combined json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, `UPDATE entries SET text_emotions = ?, speech_emotions = ?, combined_emotions = ? WHERE id = ?`,
		nullJSON(text), nullJSON(speech), nullJSON(combined), id)
	if err != nil {
		return fmt.Errorf("save emotions: %w", err)
	}
	return affected(res)
}

func (s *Store) Delete(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return affected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (*Entry, error) {
	var (
		e                     Entry
		txt, speech, combined sql.NullString
		created, updated      string
	)
	if err := r.Scan(&e.ID, &e.Owner, &e.Title, &e.Text, &e.AudioPath, &txt, &speech, &combined, &created, &updated); err != nil {
		return nil, err
	}
	e.TextEmotions = rawJSON(txt)
	e.SpeechEmotions = rawJSON(speech)
	e.CombinedEmotions = rawJSON(combined)
	var err error
	if e.CreatedAt, err = time.Parse(stampLayout, created); err != nil {
		return nil, fmt.Errorf("entry %s created_at: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(stampLayout, updated); err != nil {
		return nil, fmt.Errorf("entry %s updated_at: %w", e.ID, err)
	}
	return &e, nil
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// fixed width so that text ordering matches time ordering
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func stamp(t time.Time) string { return t.UTC().Format(stampLayout) }

func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func rawJSON(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}
