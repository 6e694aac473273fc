// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb journals committed ledger events in sqlite so
// operators can audit what the ledger did and when. It plugs into the
// ledger as its event sink.
package eventdb

import (
	"database/sql"
	"encoding/json"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/horizonledger/horizon/ledger"
	"github.com/horizonledger/horizon/log"
)

var logger = log.WithContext("pkg", "eventdb")

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	createdAt INTEGER NOT NULL,
	name TEXT NOT NULL,
	attrs TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS event_name ON event(name);
CREATE INDEX IF NOT EXISTS event_createdAt ON event(createdAt);`

// Event is one journaled ledger event.
type Event struct {
	Seq       int64          `json:"seq"`
	CreatedAt uint64         `json:"createdAt"`
	Name      string         `json:"name"`
	Attrs     map[string]any `json:"attrs"`
}

// OrderType is the result ordering of a filter.
type OrderType string

// Orders.
const (
	ASC  OrderType = "ASC"
	DESC OrderType = "DESC"
)

// Range limits a filter to a creation-time window.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Options paginates a filter.
type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter selects journaled events.
type Filter struct {
	Name    string    `json:"name"` // empty matches every name
	Order   OrderType `json:"order"`
	Range   *Range    `json:"range"`
	Options *Options  `json:"options"`
}

// EventDB is the sqlite-backed event journal. It implements
// ledger.EventSink; emit failures are logged, never propagated into the
// operation that produced the event.
type EventDB struct {
	path      string
	db        *sql.DB
	emitFails atomic.Uint64
	now       func() uint64
}

// New opens an event db at the given path, creating the schema if needed.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &EventDB{
		path: path,
		db:   db,
		now:  func() uint64 { return uint64(time.Now().Unix()) },
	}, nil
}

// NewMem creates a memory sqlite db.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Emit journals one ledger event. Part of ledger.EventSink.
func (db *EventDB) Emit(ev ledger.Event) {
	attrs, err := json.Marshal(ev.Attrs)
	if err != nil {
		db.emitFails.Add(1)
		logger.Warn("failed to encode event", "name", ev.Name, "err", err)
		return
	}
	if _, err := db.db.Exec(
		"INSERT INTO event(createdAt, name, attrs) VALUES (?, ?, ?);",
		db.now(), ev.Name, string(attrs),
	); err != nil {
		db.emitFails.Add(1)
		logger.Warn("failed to journal event", "name", ev.Name, "err", err)
	}
}

// EmitFailures returns how many events could not be journaled.
func (db *EventDB) EmitFailures() uint64 {
	return db.emitFails.Load()
}

// Filter returns journaled events matching the filter.
func (db *EventDB) Filter(filter *Filter) ([]*Event, error) {
	if filter == nil {
		return db.query("SELECT seq, createdAt, name, attrs FROM event ORDER BY seq ASC")
	}
	var args []any
	stmt := "SELECT seq, createdAt, name, attrs FROM event WHERE 1"
	if filter.Name != "" {
		args = append(args, filter.Name)
		stmt += " AND name = ? "
	}
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND createdAt >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND createdAt <= ? "
		}
	}
	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}
	if filter.Options != nil {
		args = append(args, filter.Options.Offset, filter.Options.Limit)
		stmt += " limit ?, ? "
	}
	return db.query(stmt, args...)
}

func (db *EventDB) query(stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			ev    Event
			attrs string
		)
		if err := rows.Scan(&ev.Seq, &ev.CreatedAt, &ev.Name, &attrs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attrs), &ev.Attrs); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Path returns the db's path.
func (db *EventDB) Path() string {
	return db.path
}

// Close closes the sqlite db.
func (db *EventDB) Close() {
	db.db.Close()
}
