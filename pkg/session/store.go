// Package session is the client's local persistent storage: the signed-in
// user and token, the most recent AI generation, a history of generations,
// and completion state for roadmaps that have no backend record.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/model"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// GeneratedRoadmapKey holds the last generated roadmap. There is one slot:
// a new generation replaces the previous one.
const GeneratedRoadmapKey = "generatedRoadmap"

const (
	tokenKey = "token"
	userKey  = "user"
)

// ErrNoCachedRoadmap is returned when no generation matches the requested id.
var ErrNoCachedRoadmap = errors.New("no generated roadmap cached")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS generations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	topic      TEXT NOT NULL DEFAULT '',
	roadmap    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS progress (
	roadmap_key TEXT NOT NULL,
	node_id     TEXT NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (roadmap_key, node_id)
);
`

// Store is a SQLite-backed key/value store plus two small tables. It is safe
// for concurrent use.
type Store struct {
	db   *sql.DB
	path string

	mu    sync.RWMutex
	token string
	user  *model.User
	now   func() time.Time
}

// DefaultPath returns the session database location under the XDG data
// directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "sage", "session.db")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "sage", "session.db")
}

// Open opens or creates the store at path. ":memory:" keeps everything in
// process.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open session database: %w", err)
	}
	// One connection: serializes writers and keeps ":memory:" a single
	// database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session schema: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.loadCredentials(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) loadCredentials() error {
	tok, err := s.Get(tokenKey)
	if err != nil {
		return err
	}
	raw, err := s.Get(userKey)
	if err != nil {
		return err
	}
	var user *model.User
	if raw != "" {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			debug.Log("session: discarding unreadable user record: %v", err)
		} else {
			user = &u
		}
	}
	s.mu.Lock()
	s.token, s.user = tok, user
	s.mu.Unlock()
	return nil
}

// Get returns the value stored under key, or "" when absent.
func (s *Store) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", key, err)
	}
	return v, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// Token returns the stored access token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user, or nil.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetSession stores the token and user of a successful login.
func (s *Store) SetSession(token string, user model.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.Set(tokenKey, token); err != nil {
		return err
	}
	if err := s.Set(userKey, string(raw)); err != nil {
		return err
	}
	s.mu.Lock()
	s.token, s.user = token, &user
	s.mu.Unlock()
	return nil
}

// ClearSession forgets the token and user.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	return errors.Join(s.Delete(tokenKey), s.Delete(userKey))
}

// CacheGenerated stores r as the current generation and appends it to the
// history. A roadmap without an id gets a fresh one, which is returned.
func (s *Store) CacheGenerated(r *model.Roadmap) (string, error) {
	if r == nil {
		return "", errors.New("nil roadmap")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.AIGenerated = true
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding generated roadmap: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	if _, err := tx.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		GeneratedRoadmapKey, string(raw), now); err != nil {
		return "", fmt.Errorf("caching generated roadmap: %w", err)
	}
	topic := ""
	if r.Params != nil {
		topic = r.Params.Topic
	}
	if _, err := tx.Exec(
		`INSERT INTO generations (id, title, topic, roadmap, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, topic = excluded.topic, roadmap = excluded.roadmap`,
		r.ID, r.Title, topic, string(raw), now); err != nil {
		return "", fmt.Errorf("recording generation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	debug.Log("session: cached generation %s (%d nodes)", r.ID, len(r.Nodes))
	return r.ID, nil
}

// Generated returns the cached generation with the given id. An empty id
// returns whatever sits in the current slot. Ids no longer in the current
// slot are looked up in the history.
func (s *Store) Generated(id string) (*model.Roadmap, error) {
	raw, err := s.Get(GeneratedRoadmapKey)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		r, err := decodeRoadmap(raw)
		if err == nil && (id == "" || r.ID == id) {
			return r, nil
		}
		if err != nil {
			debug.Log("session: current generation unreadable: %v", err)
		}
	}
	if id == "" {
		return nil, ErrNoCachedRoadmap
	}

	err = s.db.QueryRow(`SELECT roadmap FROM generations WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoCachedRoadmap, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading generation %s: %w", id, err)
	}
	return decodeRoadmap(raw)
}

func decodeRoadmap(raw string) (*model.Roadmap, error) {
	var r model.Roadmap
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decoding generated roadmap: %w", err)
	}
	r.Normalize()
	return &r, nil
}

// Generation is a history entry.
type Generation struct {
	ID        string
	Title     string
	Topic     string
	CreatedAt time.Time
}

// History lists past generations, newest first.
func (s *Store) History() ([]Generation, error) {
	rows, err := s.db.Query(`SELECT id, title, topic, created_at FROM generations ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		var created int64
		if err := rows.Scan(&g.ID, &g.Title, &g.Topic, &created); err != nil {
			return nil, err
		}
		g.CreatedAt = time.Unix(0, created)
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateNodeProgress records a node's completion for a roadmap key, so
// catalog and generated roadmaps keep progress without a backend record.
func (s *Store) UpdateNodeProgress(ctx context.Context, roadmapKey, nodeID string, completed bool) error {
	var err error
	if completed {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO progress (roadmap_key, node_id, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(roadmap_key, node_id) DO UPDATE SET updated_at = excluded.updated_at`,
			roadmapKey, nodeID, s.now().UnixNano())
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM progress WHERE roadmap_key = ? AND node_id = ?`, roadmapKey, nodeID)
	}
	if err != nil {
		return fmt.Errorf("saving progress for %s/%s: %w", roadmapKey, nodeID, err)
	}
	return nil
}

// Completed returns the node ids recorded done for a roadmap key, in the
// order they were completed.
func (s *Store) Completed(roadmapKey string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT node_id FROM progress WHERE roadmap_key = ? ORDER BY updated_at, rowid`, roadmapKey)
	if err != nil {
		return nil, fmt.Errorf("reading progress for %s: %w", roadmapKey, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
