package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/impact"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store wraps a SQLite database holding the impact log and the stored
// evaluations. It satisfies impact.Persister.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database under dataDir and applies pending
// migrations. Pass ":memory:" for an in-memory database in tests.
func Open(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "adrpulse.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied, err := s.AppliedMigrations()
	if err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := parseMigrationVersion(name)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		content, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

func parseMigrationVersion(name string) (int, error) {
	idx := strings.Index(name, "_")
	if idx < 0 {
		return 0, fmt.Errorf("migration %s: missing version prefix", name)
	}
	var version int
	if _, err := fmt.Sscanf(name[:idx], "%d", &version); err != nil {
		return 0, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
	}
	return version, nil
}

// AppliedMigrations returns the set of migration versions already applied.
func (s *Store) AppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// SaveImpact appends one impact record to the log.
func (s *Store) SaveImpact(rec impact.ImpactRecord) error {
	var measured, expected any
	if rec.MeasuredValue != nil {
		measured = *rec.MeasuredValue
	}
	if rec.ExpectedValue != nil {
		expected = *rec.ExpectedValue
	}
	_, err := s.db.Exec(`INSERT INTO impacts
		(id, decision_id, category, polarity, severity, description, source, evidence, measured_value, expected_value, unit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DecisionID, string(rec.Category), string(rec.Polarity), string(rec.Severity),
		rec.Description, rec.Source, rec.Evidence, measured, expected, rec.Unit,
		rec.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting impact: %w", err)
	}
	return nil
}

// DeleteImpacts removes evicted records by id.
func (s *Store) DeleteImpacts(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.Exec("DELETE FROM impacts WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("deleting impacts: %w", err)
	}
	return nil
}

// LoadImpacts returns all stored impacts in insertion order.
func (s *Store) LoadImpacts() ([]impact.ImpactRecord, error) {
	rows, err := s.db.Query(`SELECT id, decision_id, category, polarity, severity, description, source, evidence,
		measured_value, expected_value, unit, created_at
		FROM impacts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying impacts: %w", err)
	}
	defer rows.Close()

	var records []impact.ImpactRecord
	for rows.Next() {
		var rec impact.ImpactRecord
		var measured, expected sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.DecisionID, &rec.Category, &rec.Polarity, &rec.Severity,
			&rec.Description, &rec.Source, &rec.Evidence, &measured, &expected, &rec.Unit, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning impact: %w", err)
		}
		if measured.Valid {
			v := measured.Float64
			rec.MeasuredValue = &v
		}
		if expected.Valid {
			v := expected.Float64
			rec.ExpectedValue = &v
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing impact timestamp: %w", err)
		}
		rec.Timestamp = ts
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveEvaluation upserts the stored evaluation for a decision.
func (s *Store) SaveEvaluation(ev impact.EffectivenessEvaluation) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshalling evaluation: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO evaluations (decision_id, payload_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(decision_id) DO UPDATE SET payload_json = excluded.payload_json, updated_at = excluded.updated_at`,
		ev.DecisionID, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting evaluation: %w", err)
	}
	return nil
}

// LoadEvaluations returns all stored evaluations.
func (s *Store) LoadEvaluations() ([]impact.EffectivenessEvaluation, error) {
	rows, err := s.db.Query("SELECT payload_json FROM evaluations")
	if err != nil {
		return nil, fmt.Errorf("querying evaluations: %w", err)
	}
	defer rows.Close()

	var evals []impact.EffectivenessEvaluation
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		var ev impact.EffectivenessEvaluation
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("unmarshalling evaluation: %w", err)
		}
		evals = append(evals, ev)
	}
	return evals, rows.Err()
}
