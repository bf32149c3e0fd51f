package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

const createEventsTable = `CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	event_data TEXT,
	event_metadata TEXT,
	created_at TEXT NOT NULL
)`

// fixed width so created_at sorts as text
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const createEventsTypeIndex = `CREATE INDEX IF NOT EXISTS events_event_type_idx ON events (event_type, created_at)`

type sqlEventLogger struct {
	db      *sql.DB
	dialect Dialect
}

func NewSqlEventLogger(db *sql.DB, dialect Dialect) *sqlEventLogger {
	return &sqlEventLogger{
		db:      db,
		dialect: dialect,
	}
}

func (el *sqlEventLogger) EnsureSchema(ctx context.Context) error {
	if _, err := el.db.ExecContext(ctx, createEventsTable); err != nil {
		return err
	}
	_, err := el.db.ExecContext(ctx, createEventsTypeIndex)
	return err
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	statement := el.rebind(`INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES (?, ?, ?, ?, ?)`)
	_, err = el.db.ExecContext(ctx, statement, e.ID.String(), e.Type, string(jsonData), string(jsonMetadata), e.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		return err
	}

	return nil
}

// GetByType returns the events of one type, oldest first. Data comes back as
// json.RawMessage.
func (el *sqlEventLogger) GetByType(ctx context.Context, eventType string) ([]Event, error) {
	query := el.rebind(`SELECT id, event_type, event_data, event_metadata, created_at FROM events WHERE event_type = ? ORDER BY created_at`)
	return el.query(ctx, query, eventType)
}

// Recent returns up to limit events, newest first.
func (el *sqlEventLogger) Recent(ctx context.Context, limit int) ([]Event, error) {
	query := el.rebind(`SELECT id, event_type, event_data, event_metadata, created_at FROM events ORDER BY created_at DESC LIMIT ?`)
	return el.query(ctx, query, limit)
}

func (el *sqlEventLogger) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	result, err := el.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var event Event
		var jsonData, jsonMetadata sql.NullString
		var createdAt string
		if err := result.Scan(&event.ID, &event.Type, &jsonData, &jsonMetadata, &createdAt); err != nil {
			return events, err
		}
		if jsonData.Valid && jsonData.String != "null" {
			event.Data = json.RawMessage(jsonData.String)
		}
		if jsonMetadata.Valid {
			var metadata map[string]string
			if err := json.Unmarshal([]byte(jsonMetadata.String), &metadata); err != nil {
				return events, err
			}
			event.Metadata = metadata
		}
		if event.CreatedAt, err = time.Parse(createdAtLayout, createdAt); err != nil {
			return events, err
		}

		events = append(events, event)
	}

	if err := result.Err(); err != nil {
		return events, err
	}

	return events, nil
}

// rebind turns ? placeholders into $n for postgres.
func (el *sqlEventLogger) rebind(query string) string {
	if el.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
