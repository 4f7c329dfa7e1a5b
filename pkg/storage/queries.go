package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// EventQuery represents query parameters for retrieving events.
type EventQuery struct {
	Limit       int
	Offset      int
	Since       *time.Time
	Until       *time.Time
	Kind        string
	SessionType string
}

// EventStats represents running lifecycle-event statistics.
type EventStats struct {
	TotalEvents          int       `json:"total_events"`
	TotalLost            int       `json:"total_lost"`
	TotalRestored        int       `json:"total_restored"`
	TotalReconnectFailed int       `json:"total_reconnect_failed"`
	LastCleanup          time.Time `json:"last_cleanup"`
}

// GetEvents retrieves events matching query, newest first.
func (es *EventStore) GetEvents(query EventQuery) ([]Event, error) {
	var args []interface{}
	var conditions []string

	sqlQuery := `
		SELECT id, timestamp, kind, session_type, phase, elapsed_ms, downtime_ms,
			   attempt, delay_ms, will_retry, error_text
		FROM events
		WHERE 1=1
	`

	if query.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.Since)
	}
	if query.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.Until)
	}
	if query.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, query.Kind)
	}
	if query.SessionType != "" {
		conditions = append(conditions, "session_type = ?")
		args = append(args, query.SessionType)
	}

	for _, condition := range conditions {
		sqlQuery += " AND " + condition
	}
	sqlQuery += " ORDER BY timestamp DESC"

	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
		if query.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, query.Offset)
		}
	}

	rows, err := es.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var elapsedMS, downtimeMS, delayMS int64
		err := rows.Scan(
			&ev.ID, &ev.Timestamp, &ev.Kind, &ev.SessionType, &ev.Phase,
			&elapsedMS, &downtimeMS, &ev.Attempt, &delayMS, &ev.WillRetry, &ev.ErrorText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		ev.Downtime = time.Duration(downtimeMS) * time.Millisecond
		ev.Delay = time.Duration(delayMS) * time.Millisecond
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetRecentEvents retrieves the most recent events.
func (es *EventStore) GetRecentEvents(limit int) ([]Event, error) {
	return es.GetEvents(EventQuery{Limit: limit})
}

// GetEventsByKind retrieves events of a specific kind.
func (es *EventStore) GetEventsByKind(kind string, limit int) ([]Event, error) {
	return es.GetEvents(EventQuery{Kind: kind, Limit: limit})
}

// GetEventStats retrieves running statistics.
func (es *EventStore) GetEventStats() (*EventStats, error) {
	var stats EventStats
	var lastCleanup sql.NullTime

	err := es.db.QueryRow(`
		SELECT total_events, total_lost, total_restored, total_reconnect_failed, last_cleanup
		FROM event_stats WHERE id = 1
	`).Scan(&stats.TotalEvents, &stats.TotalLost, &stats.TotalRestored, &stats.TotalReconnectFailed, &lastCleanup)
	if err != nil {
		return nil, fmt.Errorf("failed to get event stats: %w", err)
	}
	if lastCleanup.Valid {
		stats.LastCleanup = lastCleanup.Time
	}
	return &stats, nil
}

// GetEventCount returns the total number of stored events.
func (es *EventStore) GetEventCount() (int, error) {
	var count int
	err := es.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	return count, err
}
