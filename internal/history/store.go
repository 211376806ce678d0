// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package history persists completed synthesis/optimization runs to a
// modernc.org/sqlite database, supplementing the single-file JSON artifact
// internal/synth builds with a queryable log of every run against a given
// topology. The problem-group trace of each run is stored zstd-compressed,
// since it is the one field whose size scales with search difficulty
// rather than ordering length.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/strategy"
)

// Record is one completed run, as persisted: the command identity keys of
// its ordering (internal/synth.CommandIDs' output, not full command
// bodies), its cost, iteration count, wall-clock duration, seed, and the
// problem groups the search accumulated along the way.
type Record struct {
	ID            string
	Topology      string
	Ordering      []string
	Cost          float64
	Iterations    int
	WallMS        int64
	Seed          uint64
	ProblemGroups []strategy.ProblemGroup
	CreatedAt     time.Time
}

// Store handles persistence of run records to SQLite.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the run-history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "opening history db")
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.KindInternal, "constructing zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		enc.Close()
		return nil, errors.Wrap(err, errors.KindInternal, "constructing zstd decoder")
	}

	s := &Store{db: db, enc: enc, dec: dec}
	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the store's database handle and compressor state.
func (s *Store) Close() error {
	s.dec.Close()
	s.enc.Close()
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		topology       TEXT NOT NULL,
		created_at     INTEGER NOT NULL,
		ordering       TEXT NOT NULL,   -- JSON array of command identity keys
		cost           REAL NOT NULL,
		iterations     INTEGER NOT NULL,
		wall_ms        INTEGER NOT NULL,
		seed           INTEGER NOT NULL,
		problem_groups BLOB             -- zstd-compressed JSON
	);
	CREATE INDEX IF NOT EXISTS idx_runs_topology ON runs(topology);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "creating history schema")
	}
	return nil
}

// RecordRun persists rec, compressing its problem-group trace.
func (s *Store) RecordRun(rec Record) error {
	orderingJSON, err := json.Marshal(rec.Ordering)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling ordering")
	}

	var groupsBlob []byte
	if len(rec.ProblemGroups) > 0 {
		raw, err := json.Marshal(rec.ProblemGroups)
		if err != nil {
			return errors.Wrap(err, errors.KindInternal, "marshaling problem groups")
		}
		groupsBlob = s.enc.EncodeAll(raw, nil)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, topology, created_at, ordering, cost, iterations, wall_ms, seed, problem_groups)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			topology = excluded.topology,
			created_at = excluded.created_at,
			ordering = excluded.ordering,
			cost = excluded.cost,
			iterations = excluded.iterations,
			wall_ms = excluded.wall_ms,
			seed = excluded.seed,
			problem_groups = excluded.problem_groups
	`, rec.ID, rec.Topology, rec.CreatedAt.Unix(), string(orderingJSON), rec.Cost, rec.Iterations, rec.WallMS, rec.Seed, groupsBlob)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "inserting run record")
	}
	return nil
}

// GetRun looks up a single run by id.
func (s *Store) GetRun(id string) (Record, error) {
	row := s.db.QueryRow(`
		SELECT id, topology, created_at, ordering, cost, iterations, wall_ms, seed, problem_groups
		FROM runs WHERE id = ?
	`, id)

	rec, err := s.scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, errors.Errorf(errors.KindNotFound, "no run recorded with id %q", id)
	}
	if err != nil {
		return Record{}, errors.Wrap(err, errors.KindInternal, "scanning run record")
	}
	return rec, nil
}

// ListRuns returns runs for topology (or every topology, if topology is
// empty), most recent first.
func (s *Store) ListRuns(topology string, limit, offset int) ([]Record, error) {
	query := `SELECT id, topology, created_at, ordering, cost, iterations, wall_ms, seed, problem_groups FROM runs`
	args := []any{}
	if topology != "" {
		query += " WHERE topology = ?"
		args = append(args, topology)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "querying run records")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scanning run record")
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteRun removes a single run by id.
func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "deleting run record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "checking delete result")
	}
	if n == 0 {
		return errors.Errorf(errors.KindNotFound, "no run recorded with id %q", id)
	}
	return nil
}

// Cleanup removes run records older than retention, returning the number
// deleted.
func (s *Store) Cleanup(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := s.db.Exec("DELETE FROM runs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindInternal, "cleaning up run records")
	}
	return result.RowsAffected()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRecord(row scanner) (Record, error) {
	var rec Record
	var createdAt int64
	var orderingJSON string
	var groupsBlob []byte

	if err := row.Scan(&rec.ID, &rec.Topology, &createdAt, &orderingJSON, &rec.Cost, &rec.Iterations, &rec.WallMS, &rec.Seed, &groupsBlob); err != nil {
		return Record{}, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0)

	if err := json.Unmarshal([]byte(orderingJSON), &rec.Ordering); err != nil {
		return Record{}, fmt.Errorf("unmarshaling ordering: %w", err)
	}

	if len(groupsBlob) > 0 {
		raw, err := s.dec.DecodeAll(groupsBlob, nil)
		if err != nil {
			return Record{}, fmt.Errorf("decompressing problem groups: %w", err)
		}
		if err := json.Unmarshal(raw, &rec.ProblemGroups); err != nil {
			return Record{}, fmt.Errorf("unmarshaling problem groups: %w", err)
		}
	}

	return rec, nil
}
