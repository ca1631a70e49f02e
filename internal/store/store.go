// Package store persists processing sessions — ingested reports, final
// track states and the resolved associations — to a SQLite database.
// The archive is diagnostic: the tracker itself is purely in-memory.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yogzz2023/jn3/internal/assoc"
	"github.com/yogzz2023/jn3/internal/pipeline"
)

// Store wraps the SQLite session archive.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at path and
// applies pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// WAL keeps concurrent readers cheap; foreign keys enforce the
	// session cascade.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Session is a persisted processing run.
type Session struct {
	ID          int64
	CreatedUnix int64
	Source      string
	ReportCount int
	TrackCount  int
	Degenerate  bool
}

// TrackRecord is the persisted final state of one track.
type TrackRecord struct {
	TrackIdx       int
	TrackID        string
	X, Y, Z        float64
	VX, VY, VZ     float64
	LastTime       float64
	SkippedUpdates int
}

// AssociationRecord is the persisted association outcome for one report.
type AssociationRecord struct {
	ReportIdx   int
	TrackIdx    int // assoc.Unassigned when no track claimed the report
	Probability float64
}

// SaveResult archives a pipeline result under a new session and returns
// the session ID.
func (s *Store) SaveResult(source string, res *pipeline.Result) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin session transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.Exec(
		`INSERT INTO sessions (created_unix, source, report_count, track_count, degenerate)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().Unix(), source, len(res.Reports), len(res.Tracks), res.Degenerate,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	sessionID, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get session ID: %w", err)
	}

	for i, report := range res.Reports {
		if _, err := tx.Exec(
			`INSERT INTO reports (session_id, report_idx, x, y, z, t) VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, i, report.X, report.Y, report.Z, report.Time,
		); err != nil {
			return 0, fmt.Errorf("insert report %d: %w", i, err)
		}
	}

	for i, track := range res.Tracks {
		x, y, z := track.Filter.Position()
		vx, vy, vz := track.Filter.Velocity()
		if _, err := tx.Exec(
			`INSERT INTO tracks (session_id, track_idx, track_id, x, y, z, vx, vy, vz, last_time, skipped_updates)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, i, track.ID, x, y, z, vx, vy, vz, track.Filter.LastTime(), track.SkippedUpdates,
		); err != nil {
			return 0, fmt.Errorf("insert track %s: %w", track.ID, err)
		}
	}

	for _, a := range res.Associations {
		trackIdx := sql.NullInt64{}
		if a.Track != assoc.Unassigned {
			trackIdx = sql.NullInt64{Int64: int64(a.Track), Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO associations (session_id, report_idx, track_idx, probability) VALUES (?, ?, ?, ?)`,
			sessionID, a.Report, trackIdx, a.Probability,
		); err != nil {
			return 0, fmt.Errorf("insert association for report %d: %w", a.Report, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit session: %w", err)
	}
	return sessionID, nil
}

// GetSession returns a persisted session header.
func (s *Store) GetSession(sessionID int64) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT session_id, created_unix, source, report_count, track_count, degenerate
		 FROM sessions WHERE session_id = ?`, sessionID)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.CreatedUnix, &sess.Source, &sess.ReportCount, &sess.TrackCount, &sess.Degenerate); err != nil {
		return nil, fmt.Errorf("get session %d: %w", sessionID, err)
	}
	return &sess, nil
}

// GetTracks returns the persisted tracks of a session in index order.
func (s *Store) GetTracks(sessionID int64) ([]TrackRecord, error) {
	rows, err := s.db.Query(
		`SELECT track_idx, track_id, x, y, z, vx, vy, vz, last_time, skipped_updates
		 FROM tracks WHERE session_id = ? ORDER BY track_idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query tracks for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var tracks []TrackRecord
	for rows.Next() {
		var t TrackRecord
		if err := rows.Scan(&t.TrackIdx, &t.TrackID, &t.X, &t.Y, &t.Z, &t.VX, &t.VY, &t.VZ, &t.LastTime, &t.SkippedUpdates); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetAssociations returns the persisted associations of a session in
// report order.
func (s *Store) GetAssociations(sessionID int64) ([]AssociationRecord, error) {
	rows, err := s.db.Query(
		`SELECT report_idx, track_idx, probability
		 FROM associations WHERE session_id = ? ORDER BY report_idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query associations for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	var assocs []AssociationRecord
	for rows.Next() {
		var a AssociationRecord
		var trackIdx sql.NullInt64
		if err := rows.Scan(&a.ReportIdx, &trackIdx, &a.Probability); err != nil {
			return nil, fmt.Errorf("scan association: %w", err)
		}
		a.TrackIdx = assoc.Unassigned
		if trackIdx.Valid {
			a.TrackIdx = int(trackIdx.Int64)
		}
		assocs = append(assocs, a)
	}
	return assocs, rows.Err()
}
