// Package store keeps a sqlite history of evaluations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
create table if not exists evaluations
  (
	  id integer not null primary key,
	  created_at integer not null,
	  mode text not null,
	  chart text not null,
	  mods text not null,
	  pp real not null,
	  stars real not null,
	  fields text not null
  );
create index if not exists evaluations_created on evaluations(created_at);
`

// Entry is one recorded evaluation. Fields holds the whole result as it
// was rendered.
type Entry struct {
	ID        int64
	CreatedAt time.Time
	Mode      string
	Chart     string
	Mods      string
	PP        float64
	Stars     float64
	Fields    map[string]float64
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer, sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e and returns its id. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	data, err := json.Marshal(e.Fields)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		"insert into evaluations(created_at, mode, chart, mods, pp, stars, fields) values(?, ?, ?, ?, ?, ?, ?)",
		e.CreatedAt.UnixNano(), e.Mode, e.Chart, e.Mods, e.PP, e.Stars, string(data))
	if err != nil {
		return 0, fmt.Errorf("record evaluation: %w", err)
	}
	return res.LastInsertId()
}

// List returns the newest entries first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"select id, created_at, mode, chart, mods, pp, stars, fields from evaluations order by created_at desc, id desc limit ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
			fields  string
		)
		if err := rows.Scan(&e.ID, &created, &e.Mode, &e.Chart, &e.Mods, &e.PP, &e.Stars, &fields); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, created)
		if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Best returns the highest pp entry recorded for a chart.
func (s *Store) Best(ctx context.Context, chart string) (Entry, bool, error) {
	var (
		e       Entry
		created int64
		fields  string
	)
	err := s.db.QueryRowContext(ctx,
		"select id, created_at, mode, chart, mods, pp, stars, fields from evaluations where chart = ? order by pp desc limit 1",
		chart).Scan(&e.ID, &created, &e.Mode, &e.Chart, &e.Mods, &e.PP, &e.Stars, &fields)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.CreatedAt = time.Unix(0, created)
	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}
