// Package persistence provides SQLite-based storage for combat history:
// logged outcomes, adaptive strategy weights, learning snapshots, and a
// run event log.
package persistence

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/battlemind/internal/tactics"
)

// DB wraps a SQLite connection for combat history persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS combat_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		group_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		success INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS strategy_weights (
		strategy TEXT PRIMARY KEY,
		weight REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS learning_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		entity_name TEXT NOT NULL,
		epsilon REAL NOT NULL,
		states INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_tick ON combat_outcomes(tick);
	CREATE INDEX IF NOT EXISTS idx_outcomes_group ON combat_outcomes(group_id);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveOutcomes appends combat outcomes to the database.
func (db *DB) SaveOutcomes(outcomes []tactics.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(
		"INSERT INTO combat_outcomes (tick, group_id, strategy, success) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		success := 0
		if o.Success {
			success = 1
		}
		if _, err := stmt.Exec(o.Tick, o.GroupID, string(o.Strategy), success); err != nil {
			return fmt.Errorf("insert outcome tick %d: %w", o.Tick, err)
		}
	}

	return tx.Commit()
}

// SaveWeights writes the adaptive strategy weights (full replace).
func (db *DB) SaveWeights(weights map[tactics.Strategy]float64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for strategy, weight := range weights {
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO strategy_weights (strategy, weight) VALUES (?, ?)",
			string(strategy), weight,
		)
		if err != nil {
			return fmt.Errorf("insert weight %s: %w", strategy, err)
		}
	}

	return tx.Commit()
}

// LoadWeights restores persisted strategy weights into the coordinator.
// An empty table is not an error; the coordinator keeps its defaults.
func (db *DB) LoadWeights(coord *tactics.Coordinator) error {
	rows := []struct {
		Strategy string  `db:"strategy"`
		Weight   float64 `db:"weight"`
	}{}
	if err := db.conn.Select(&rows, "SELECT strategy, weight FROM strategy_weights"); err != nil {
		return fmt.Errorf("load weights: %w", err)
	}
	for _, r := range rows {
		coord.SetWeight(tactics.Strategy(r.Strategy), r.Weight)
	}
	return nil
}

// LearningSnapshot is one persisted view of an entity's learning progress.
type LearningSnapshot struct {
	Tick       uint64  `db:"tick"`
	EntityName string  `db:"entity_name"`
	Epsilon    float64 `db:"epsilon"`
	States     int     `db:"states"`
}

// SaveSnapshots appends learning snapshots.
func (db *DB) SaveSnapshots(snapshots []LearningSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range snapshots {
		_, err := tx.Exec(
			"INSERT INTO learning_snapshots (tick, entity_name, epsilon, states) VALUES (?, ?, ?, ?)",
			s.Tick, s.EntityName, s.Epsilon, s.States,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Event is one run-level log entry.
type Event struct {
	Tick        uint64 `db:"tick"`
	Description string `db:"description"`
	Category    string `db:"category"`
}

// SaveEvents appends run events.
func (db *DB) SaveEvents(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]Event, error) {
	var events []Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair of run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

// SaveRun persists everything a finished run produced: outcomes, weights,
// and the final tick.
func (db *DB) SaveRun(tick uint64, coord *tactics.Coordinator) error {
	slog.Info("saving run", "tick", tick, "outcomes", len(coord.Outcomes()))

	if err := db.SaveOutcomes(coord.Outcomes()); err != nil {
		return fmt.Errorf("save outcomes: %w", err)
	}
	if err := db.SaveWeights(coord.Weights()); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("run saved")
	return nil
}
