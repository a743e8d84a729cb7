package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding user documents and health records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "sahayak.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Users ---

// UpsertUser merges patch into the document for uid, creating it if absent.
// Each top-level key is written independently, so repeated or partial
// patches converge field by field (last write wins).
func (s *Store) UpsertUser(ctx context.Context, uid string, patch map[string]any) error {
	if uid == "" {
		return errors.New("upsert user: empty uid")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (uid, id, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET updated_at = excluded.updated_at`,
		uid, uuid.New().String(), now, now,
	); err != nil {
		return fmt.Errorf("upserting user %s: %w", uid, err)
	}

	for key, value := range patch {
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshalling field %q: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_fields (uid, key, value_json, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(uid, key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at`,
			uid, key, string(b), now,
		); err != nil {
			return fmt.Errorf("setting field %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// GetUser returns the document for uid, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, uid string) (UserDocument, error) {
	doc := UserDocument{UID: uid}
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM users WHERE uid = ?`, uid,
	).Scan(&doc.ID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return UserDocument{}, ErrNotFound
	}
	if err != nil {
		return UserDocument{}, err
	}
	if doc.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return UserDocument{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return UserDocument{}, fmt.Errorf("parsing updated_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value_json FROM user_fields WHERE uid = ?`, uid)
	if err != nil {
		return UserDocument{}, err
	}
	defer rows.Close()

	doc.Fields = make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return UserDocument{}, err
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return UserDocument{}, fmt.Errorf("decoding field %q: %w", key, err)
		}
		doc.Fields[key] = v
	}
	return doc, rows.Err()
}

// --- Health records ---

func (s *Store) SaveHealthRecord(ctx context.Context, r HealthRecord) error {
	medicines, err := marshalList(r.Medicines)
	if err != nil {
		return fmt.Errorf("marshalling medicines: %w", err)
	}
	tips, err := marshalList(r.Tips)
	if err != nil {
		return fmt.Errorf("marshalling tips: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO health_records (id, user_id, image_url, analysis, medicines, tips, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.ImageURL, r.Analysis, medicines, tips,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// LatestHealthRecord returns the most recently created record for userID,
// or ErrNotFound when the user has none.
func (s *Store) LatestHealthRecord(ctx context.Context, userID string) (HealthRecord, error) {
	records, err := s.ListHealthRecords(ctx, userID, 1)
	if err != nil {
		return HealthRecord{}, err
	}
	if len(records) == 0 {
		return HealthRecord{}, ErrNotFound
	}
	return records[0], nil
}

// ListHealthRecords returns up to limit records for userID, newest first.
func (s *Store) ListHealthRecords(ctx context.Context, userID string, limit int) ([]HealthRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, image_url, analysis, medicines, tips, created_at
		FROM health_records WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []HealthRecord
	for rows.Next() {
		var r HealthRecord
		var medicines, tips, createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.ImageURL, &r.Analysis, &medicines, &tips, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(medicines), &r.Medicines); err != nil {
			return nil, fmt.Errorf("decoding medicines for %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(tips), &r.Tips); err != nil {
			return nil, fmt.Errorf("decoding tips for %s: %w", r.ID, err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		results = append(results, r)
	}
	return results, rows.Err()
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	return string(b), err
}
