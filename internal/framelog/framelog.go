// Package framelog persists raw and stabilized boxes of replay sessions in SQLite.
package framelog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"log"

	"github.com/LdDl/bbox-stabilization/stabilization"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is SQLite backed frame log
type Store struct {
	db *sql.DB
}

// Session describes a single stabilization run
type Session struct {
	ID          uuid.UUID
	FrameWidth  int
	FrameHeight int
	ConfigJSON  string
}

// ObjectRecord is a raw box and its stabilized counterpart on a single frame
type ObjectRecord struct {
	FrameIndex    int
	ObjectIndex   int
	ObjectID      uint32
	Raw           stabilization.Rectangle
	Stable        stabilization.Rectangle
	PositionState stabilization.State
	SizeState     stabilization.State
}

// Open opens database at path (":memory:" is allowed) and migrates it to the latest schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open frame log")
	}
	// Single connection keeps in-memory databases alive and serializes writers
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "Can't read embedded migrations")
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "Can't create sqlite migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create migrate instance")
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateUp runs all pending migrations. Nothing to migrate is not an error.
func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed since it would close the underlying database
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "Migration up failed")
	}
	return nil
}

// MigrationVersion returns current schema version and dirty state
func (s *Store) MigrationVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// CreateSession registers a run with its frame size and configuration
func (s *Store) CreateSession(ctx context.Context, sessionID uuid.UUID, frameWidth, frameHeight int, cfg stabilization.Config) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "Can't encode configuration")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, frame_width, frame_height, config_json) VALUES (?, ?, ?, ?)`,
		sessionID.String(), frameWidth, frameHeight, string(configJSON),
	)
	if err != nil {
		return errors.Wrapf(err, "Can't create session %s", sessionID)
	}
	return nil
}

// Sessions lists registered sessions in creation order
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, frame_width, frame_height, config_json FROM sessions ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query sessions")
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var sessionID string
		if err := rows.Scan(&sessionID, &session.FrameWidth, &session.FrameHeight, &session.ConfigJSON); err != nil {
			return nil, errors.Wrap(err, "Can't scan session")
		}
		session.ID, err = uuid.Parse(sessionID)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad session identifier %q", sessionID)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// RecordObjects stores records of a session in a single transaction
func (s *Store) RecordObjects(ctx context.Context, sessionID uuid.UUID, records []ObjectRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Can't begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frame_objects (
			session_id, frame_index, object_index, object_id,
			raw_left, raw_top, raw_width, raw_height,
			stable_left, stable_top, stable_width, stable_height,
			position_state, size_state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "Can't prepare insert")
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.ExecContext(ctx,
			sessionID.String(), record.FrameIndex, record.ObjectIndex, record.ObjectID,
			record.Raw.Left, record.Raw.Top, record.Raw.Width, record.Raw.Height,
			record.Stable.Left, record.Stable.Top, record.Stable.Width, record.Stable.Height,
			record.PositionState.String(), record.SizeState.String(),
		)
		if err != nil {
			return errors.Wrapf(err, "Can't insert object %d of frame %d", record.ObjectIndex, record.FrameIndex)
		}
	}
	return errors.Wrap(tx.Commit(), "Can't commit frame objects")
}

// Objects returns records of a session ordered by frame and object index
func (s *Store) Objects(ctx context.Context, sessionID uuid.UUID) ([]ObjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame_index, object_index, object_id,
			raw_left, raw_top, raw_width, raw_height,
			stable_left, stable_top, stable_width, stable_height,
			position_state, size_state
		FROM frame_objects
		WHERE session_id = ?
		ORDER BY frame_index, object_index`, sessionID.String())
	if err != nil {
		return nil, errors.Wrap(err, "Can't query frame objects")
	}
	defer rows.Close()

	var records []ObjectRecord
	for rows.Next() {
		var record ObjectRecord
		var positionState, sizeState string
		err := rows.Scan(
			&record.FrameIndex, &record.ObjectIndex, &record.ObjectID,
			&record.Raw.Left, &record.Raw.Top, &record.Raw.Width, &record.Raw.Height,
			&record.Stable.Left, &record.Stable.Top, &record.Stable.Width, &record.Stable.Height,
			&positionState, &sizeState,
		)
		if err != nil {
			return nil, errors.Wrap(err, "Can't scan frame object")
		}
		if record.PositionState, err = stabilization.ParseState(positionState); err != nil {
			return nil, err
		}
		if record.SizeState, err = stabilization.ParseState(sizeState); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// RecordsFromFrames pairs stabilized objects with raw ones. Payload of every stabilized object
// must be the index of its raw object in raw frame. Snapshot must be taken right after stabilization.
func RecordsFromFrames(frameIndex int, raw, stabilized *stabilization.Frame, snapshot []stabilization.ObjectSnapshot) ([]ObjectRecord, error) {
	records := make([]ObjectRecord, 0, stabilized.NumObjects)
	for i, obj := range stabilized.ObjectsSlice() {
		rawIdx, ok := obj.Payload.(int)
		if !ok || rawIdx < 0 || rawIdx >= raw.NumObjects {
			return nil, errors.Errorf("frame %d: object %d has no raw counterpart (payload %v)", frameIndex, i, obj.Payload)
		}
		record := ObjectRecord{
			FrameIndex:  frameIndex,
			ObjectIndex: i,
			ObjectID:    obj.ID,
			Raw:         raw.Objects[rawIdx].Rect(),
			Stable:      obj.Rect(),
		}
		if i < len(snapshot) {
			attributes := snapshot[i].Attributes
			if len(attributes) > stabilization.PositionIndex {
				record.PositionState = attributes[stabilization.PositionIndex].State
			}
			if len(attributes) > stabilization.SizeIndex {
				record.SizeState = attributes[stabilization.SizeIndex].State
			}
		}
		records = append(records, record)
	}
	return records, nil
}
