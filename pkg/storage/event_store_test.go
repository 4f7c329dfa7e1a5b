package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestNewEventStore(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "icomwland-storage-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Store Creation", func(t *testing.T) {
		dbPath := filepath.Join(tempDir, "test.db")
		store, err := NewEventStore(dbPath, 1000)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		defer store.Close()

		if store.dbPath != dbPath {
			t.Errorf("Expected dbPath %s, got %s", dbPath, store.dbPath)
		}
		if store.maxEvents != 1000 {
			t.Errorf("Expected maxEvents 1000, got %d", store.maxEvents)
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("Expected database file to be created")
		}
	})

	t.Run("Store Creation with Nested Directory", func(t *testing.T) {
		dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
		store, err := NewEventStore(dbPath, 500)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		defer store.Close()

		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("Expected nested directory to be created")
		}
	})

	t.Run("Invalid Directory Path", func(t *testing.T) {
		dbPath := "/root/readonly/test.db"
		_, err := NewEventStore(dbPath, 1000)
		if err == nil {
			t.Error("Expected error for invalid directory path, got nil")
		}
	})
}

func TestEventStoreInitialization(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "icomwland-storage-init-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "init_test.db")
	store, err := NewEventStore(dbPath, 1000)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	t.Run("Tables Created", func(t *testing.T) {
		tables := []string{"events", "event_stats"}
		for _, table := range tables {
			var count int
			err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
			if err != nil {
				t.Errorf("Failed to check table %s: %v", table, err)
			}
			if count != 1 {
				t.Errorf("Expected table %s to exist, got count %d", table, count)
			}
		}
	})

	t.Run("Indexes Created", func(t *testing.T) {
		expectedIndexes := []string{
			"idx_events_timestamp",
			"idx_events_kind",
			"idx_events_session_type",
		}
		for _, index := range expectedIndexes {
			var count int
			err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
			if err != nil {
				t.Errorf("Failed to check index %s: %v", index, err)
			}
			if count != 1 {
				t.Errorf("Expected index %s to exist, got count %d", index, count)
			}
		}
	})

	t.Run("Stats Initialized", func(t *testing.T) {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM event_stats").Scan(&count)
		if err != nil {
			t.Errorf("Failed to check stats table: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 row in event_stats, got %d", count)
		}
	})
}

func TestStoreEvent(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "icomwland-store-event-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "store_test.db")
	store, err := NewEventStore(dbPath, 1000)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	testTime := time.Now().Truncate(time.Second)

	t.Run("Store connection_lost Event", func(t *testing.T) {
		ev := Event{
			Timestamp:   testTime,
			Kind:        "connection_lost",
			SessionType: "control",
			Phase:       "CONNECTED",
			Elapsed:     7 * time.Second,
		}
		if err := store.StoreEvent(ev); err != nil {
			t.Fatalf("Failed to store event: %v", err)
		}

		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
			t.Errorf("Failed to count events: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 event, got %d", count)
		}

		var stored Event
		var elapsedMS int64
		err = store.db.QueryRow(`
			SELECT timestamp, kind, session_type, phase, elapsed_ms
			FROM events WHERE id = 1
		`).Scan(&stored.Timestamp, &stored.Kind, &stored.SessionType, &stored.Phase, &elapsedMS)
		if err != nil {
			t.Fatalf("Failed to retrieve stored event: %v", err)
		}
		if stored.Kind != ev.Kind {
			t.Errorf("Expected kind %s, got %s", ev.Kind, stored.Kind)
		}
		if stored.SessionType != ev.SessionType {
			t.Errorf("Expected session_type %s, got %s", ev.SessionType, stored.SessionType)
		}
		if time.Duration(elapsedMS)*time.Millisecond != ev.Elapsed {
			t.Errorf("Expected elapsed %v, got %dms", ev.Elapsed, elapsedMS)
		}
	})

	t.Run("Store reconnect_failed Event", func(t *testing.T) {
		ev := Event{
			Timestamp: testTime.Add(time.Second),
			Kind:      "reconnect_failed",
			Attempt:   3,
			Delay:     4 * time.Second,
			WillRetry: true,
			ErrorText: "timed out",
		}
		if err := store.StoreEvent(ev); err != nil {
			t.Fatalf("Failed to store reconnect_failed event: %v", err)
		}

		var count int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
			t.Errorf("Failed to count events: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2 events, got %d", count)
		}
	})

	t.Run("Stats Updated", func(t *testing.T) {
		stats, err := store.GetEventStats()
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if stats.TotalEvents != 2 {
			t.Errorf("Expected total events 2, got %d", stats.TotalEvents)
		}
		if stats.TotalLost != 1 {
			t.Errorf("Expected total lost 1, got %d", stats.TotalLost)
		}
		if stats.TotalReconnectFailed != 1 {
			t.Errorf("Expected total reconnect_failed 1, got %d", stats.TotalReconnectFailed)
		}
	})
}

func TestCleanupOldEvents(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "icomwland-cleanup-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "cleanup_test.db")
	store, err := NewEventStore(dbPath, 3) // small limit for testing
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	baseTime := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ev := Event{
			Timestamp: baseTime.Add(time.Duration(i) * time.Minute),
			Kind:      "connection_lost",
		}
		if err := store.StoreEvent(ev); err != nil {
			t.Fatalf("Failed to store event %d: %v", i+1, err)
		}
	}

	t.Run("Automatic Cleanup During Store", func(t *testing.T) {
		count, err := store.GetEventCount()
		if err != nil {
			t.Fatalf("Failed to get event count: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3 events after cleanup, got %d", count)
		}
	})

	t.Run("Cleanup On Later Store", func(t *testing.T) {
		ev := Event{Timestamp: time.Now(), Kind: "connection_lost"}
		if err := store.StoreEvent(ev); err != nil {
			t.Fatalf("Failed to store additional event: %v", err)
		}
		count, err := store.GetEventCount()
		if err != nil {
			t.Fatalf("Failed to get event count: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3 events after additional store, got %d", count)
		}
	})

	t.Run("No Cleanup When Under Limit", func(t *testing.T) {
		dbPath2 := filepath.Join(tempDir, "no_cleanup_test.db")
		store2, err := NewEventStore(dbPath2, 10)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		defer store2.Close()

		for i := 0; i < 3; i++ {
			ev := Event{Timestamp: time.Now().Add(time.Duration(i) * time.Minute), Kind: "connection_lost"}
			if err := store2.StoreEvent(ev); err != nil {
				t.Fatalf("Failed to store event: %v", err)
			}
		}
		count, err := store2.GetEventCount()
		if err != nil {
			t.Fatalf("Failed to get event count: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3 events (no cleanup), got %d", count)
		}
	})
}

func TestEventStoreClose(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "icomwland-close-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "close_test.db")
	store, err := NewEventStore(dbPath, 1000)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	t.Run("Close Successfully", func(t *testing.T) {
		if err := store.Close(); err != nil {
			t.Errorf("Expected no error on close, got: %v", err)
		}
	})

	t.Run("Close Nil Database", func(t *testing.T) {
		store.db = nil
		if err := store.Close(); err != nil {
			t.Errorf("Expected no error closing nil database, got: %v", err)
		}
	})
}
