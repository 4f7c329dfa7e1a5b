package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// EventStore handles persistent storage of connection-lifecycle events
// (connection_lost, connection_restored, reconnect_attempting,
// reconnect_failed) for later audit/diagnosis.
type EventStore struct {
	db        *sql.DB
	dbPath    string
	maxEvents int
}

// Event is one recorded lifecycle occurrence.
type Event struct {
	ID          int64
	Timestamp   time.Time
	Kind        string // connection_lost, connection_restored, reconnect_attempting, reconnect_failed
	SessionType string
	Phase       string
	Elapsed     time.Duration
	Downtime    time.Duration
	Attempt     int
	Delay       time.Duration
	WillRetry   bool
	ErrorText   string
}

// NewEventStore creates a new event store with a SQLite backend.
func NewEventStore(dbPath string, maxEvents int) (*EventStore, error) {
	store := &EventStore{
		dbPath:    dbPath,
		maxEvents: maxEvents,
	}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize event store: %w", err)
	}
	return store, nil
}

func (es *EventStore) initialize() error {
	if err := os.MkdirAll(filepath.Dir(es.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	if es.dbPath == "" {
		es.dbPath = "./icomwland.db"
	}

	connectionString := es.dbPath + "?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on"
	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	es.db = db

	if err := es.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := es.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Printf("Event store initialized: %s (max %d events)", es.dbPath, es.maxEvents)
	return nil
}

func (es *EventStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		kind TEXT NOT NULL,
		session_type TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL DEFAULT '',
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		downtime_ms INTEGER NOT NULL DEFAULT 0,
		attempt INTEGER NOT NULL DEFAULT 0,
		delay_ms INTEGER NOT NULL DEFAULT 0,
		will_retry BOOLEAN NOT NULL DEFAULT FALSE,
		error_text TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS event_stats (
		id INTEGER PRIMARY KEY,
		total_events INTEGER NOT NULL DEFAULT 0,
		total_lost INTEGER NOT NULL DEFAULT 0,
		total_restored INTEGER NOT NULL DEFAULT 0,
		total_reconnect_failed INTEGER NOT NULL DEFAULT 0,
		last_cleanup DATETIME,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO event_stats (id, total_events, total_lost, total_restored, total_reconnect_failed)
	VALUES (1, 0, 0, 0, 0);
	`
	_, err := es.db.Exec(schema)
	return err
}

func (es *EventStore) createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)",
		"CREATE INDEX IF NOT EXISTS idx_events_session_type ON events(session_type)",
	}
	for _, indexSQL := range indexes {
		if _, err := es.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// StoreEvent records ev and updates the running stats row in one transaction.
func (es *EventStore) StoreEvent(ev Event) error {
	tx, err := es.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO events (
			timestamp, kind, session_type, phase, elapsed_ms, downtime_ms,
			attempt, delay_ms, will_retry, error_text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.Timestamp, ev.Kind, ev.SessionType, ev.Phase,
		ev.Elapsed.Milliseconds(), ev.Downtime.Milliseconds(),
		ev.Attempt, ev.Delay.Milliseconds(), ev.WillRetry, ev.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if err := es.updateStats(tx, ev.Kind); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	if err := es.cleanupOldEvents(tx); err != nil {
		log.Printf("Warning: failed to cleanup old events: %v", err)
	}

	return tx.Commit()
}

func (es *EventStore) updateStats(tx *sql.Tx, kind string) error {
	_, err := tx.Exec(`
		UPDATE event_stats SET
			total_events = total_events + 1,
			total_lost = total_lost + CASE WHEN ? = 'connection_lost' THEN 1 ELSE 0 END,
			total_restored = total_restored + CASE WHEN ? = 'connection_restored' THEN 1 ELSE 0 END,
			total_reconnect_failed = total_reconnect_failed + CASE WHEN ? = 'reconnect_failed' THEN 1 ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, kind, kind, kind)
	return err
}

// CleanupOldEvents removes events beyond the maximum limit (exported for
// manual/periodic cleanup).
func (es *EventStore) CleanupOldEvents() error {
	tx, err := es.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := es.cleanupOldEvents(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (es *EventStore) cleanupOldEvents(tx *sql.Tx) error {
	if es.maxEvents <= 0 {
		return nil
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return err
	}
	if count <= es.maxEvents {
		return nil
	}

	deleteCount := count - es.maxEvents
	_, err := tx.Exec(`
		DELETE FROM events
		WHERE id IN (SELECT id FROM events ORDER BY timestamp ASC LIMIT ?)
	`, deleteCount)
	if err != nil {
		return err
	}

	_, err = tx.Exec("UPDATE event_stats SET last_cleanup = CURRENT_TIMESTAMP WHERE id = 1")
	return err
}

// Close closes the database connection.
func (es *EventStore) Close() error {
	if es.db != nil {
		return es.db.Close()
	}
	return nil
}
