/*
Package sqlite provides a SQLite-backed implementation of the punch
storage interfaces.

PURPOSE:
  Implements punch.LedgerStore, punch.AdminStore, and punch.SiteStore
  using SQLite. In production, the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  punch_events:       Ordered ledger of clock-in/clock-out events
  sites:              Geofence boundary records
  admin_time_changes: Audit trail for admin-originated edits

APPEND-MOSTLY ENFORCEMENT:
  The validator write path only inserts. Deletes exist solely on the
  admin override surface and always write an audit row in the same
  database transaction.

INDEXES:
  The hot paths are "latest punch for employee" and "events for
  employees in range":
  - idx_punch_events_employee_ts: both hot paths
  - idx_punch_events_site_ts:     per-site analytics
  - idx_punch_events_ts:          guard scans

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/punchclock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - punch/store.go:        Interface definitions
  - punch/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/punchclock/punch"
)

// Store implements the punch storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Punch events (ordered ledger)
	CREATE TABLE IF NOT EXISTS punch_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		injury_flag BOOLEAN,
		signature TEXT,
		admin_note TEXT,
		created_by_admin_id TEXT,
		created_at TEXT NOT NULL
	);

	-- Composite index for the two hot paths: latest-per-employee and
	-- employee range scans for analytics.
	CREATE INDEX IF NOT EXISTS idx_punch_events_employee_ts
		ON punch_events(employee_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_punch_events_site_ts
		ON punch_events(site_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_punch_events_ts
		ON punch_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_punch_events_kind
		ON punch_events(kind);

	-- Sites (geofence boundaries)
	CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		center_lat REAL NOT NULL,
		center_lng REAL NOT NULL,
		radius_meters REAL NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Audit trail for admin-originated edits
	CREATE TABLE IF NOT EXISTS admin_time_changes (
		id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT,
		event_ids TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_admin_time_changes_employee
		ON admin_time_changes(employee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER STORE (punch.LedgerStore interface)
// =============================================================================

// Append persists one event and returns it with the assigned id.
func (s *Store) Append(ctx context.Context, e punch.PunchEvent) (punch.PunchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertEvent(ctx, s.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertEvent(ctx context.Context, db execer, e punch.PunchEvent) (punch.PunchEvent, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO punch_events
		(employee_id, site_id, kind, timestamp, latitude, longitude,
		 injury_flag, signature, admin_note, created_by_admin_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := db.ExecContext(ctx, query,
		e.EmployeeID,
		e.SiteID,
		e.Kind,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		nullFloat(e.Latitude),
		nullFloat(e.Longitude),
		nullBool(e.InjuryFlag),
		nullString(e.Signature),
		nullString(e.AdminNote),
		nullString(e.CreatedByAdminID),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return e, fmt.Errorf("failed to insert punch event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return e, fmt.Errorf("failed to read event id: %w", err)
	}
	e.ID = punch.EventID(id)
	return e, nil
}

// AppendPair persists two events atomically, first then second.
func (s *Store) AppendPair(ctx context.Context, first, second punch.PunchEvent) ([]punch.PunchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	a, err := s.insertEvent(ctx, sqlTx, first)
	if err != nil {
		return nil, err
	}
	b, err := s.insertEvent(ctx, sqlTx, second)
	if err != nil {
		return nil, err
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pair: %w", err)
	}
	return []punch.PunchEvent{a, b}, nil
}

// Latest returns the most recent event for an employee, nil if none.
func (s *Store) Latest(ctx context.Context, employeeID punch.EmployeeID) (*punch.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := eventColumns + `
		FROM punch_events
		WHERE employee_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	events, err := s.queryEvents(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// LoadRange returns events for the given employees in [from, to] with a
// single query, ordered by timestamp then id.
func (s *Store) LoadRange(ctx context.Context, employeeIDs []punch.EmployeeID, from, to time.Time) ([]punch.PunchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(employeeIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(employeeIDs)), ",")

	query := eventColumns + `
		FROM punch_events
		WHERE employee_id IN (` + placeholders + `)
		  AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC
	`

	args := make([]any, 0, len(employeeIDs)+2)
	for _, id := range employeeIDs {
		args = append(args, id)
	}
	args = append(args,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
	)

	return s.queryEvents(ctx, query, args...)
}

// RecentEmployeeIDs returns distinct employees with activity since the cutoff.
func (s *Store) RecentEmployeeIDs(ctx context.Context, since time.Time) ([]punch.EmployeeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT employee_id FROM punch_events WHERE timestamp >= ? ORDER BY employee_id`,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []punch.EmployeeID
	for rows.Next() {
		var id punch.EmployeeID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const eventColumns = `
	SELECT id, employee_id, site_id, kind, timestamp, latitude, longitude,
	       injury_flag, signature, admin_note, created_by_admin_id, created_at
`

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]punch.PunchEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punch events: %w", err)
	}
	defer rows.Close()

	var events []punch.PunchEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (punch.PunchEvent, error) {
	var (
		e         punch.PunchEvent
		timestamp string
		latitude  sql.NullFloat64
		longitude sql.NullFloat64
		injury    sql.NullBool
		signature sql.NullString
		adminNote sql.NullString
		adminID   sql.NullString
		createdAt string
	)

	err := rows.Scan(
		&e.ID, &e.EmployeeID, &e.SiteID, &e.Kind, &timestamp,
		&latitude, &longitude, &injury, &signature, &adminNote, &adminID, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan punch event: %w", err)
	}

	e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if latitude.Valid {
		v := latitude.Float64
		e.Latitude = &v
	}
	if longitude.Valid {
		v := longitude.Float64
		e.Longitude = &v
	}
	if injury.Valid {
		v := injury.Bool
		e.InjuryFlag = &v
	}
	e.Signature = signature.String
	e.AdminNote = adminNote.String
	e.CreatedByAdminID = adminID.String

	return e, nil
}

// =============================================================================
// ADMIN OVERRIDES (punch.AdminStore interface)
// =============================================================================

// AdminCreatePair inserts a punch pair directly, bypassing the validator,
// and records the audit entry in the same database transaction.
func (s *Store) AdminCreatePair(ctx context.Context, clockIn, clockOut punch.PunchEvent, adminID, reason string) ([]punch.PunchEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	clockIn.CreatedByAdminID = adminID
	clockIn.AdminNote = reason
	clockOut.CreatedByAdminID = adminID
	clockOut.AdminNote = reason

	a, err := s.insertEvent(ctx, sqlTx, clockIn)
	if err != nil {
		return nil, err
	}
	b, err := s.insertEvent(ctx, sqlTx, clockOut)
	if err != nil {
		return nil, err
	}

	eventIDs := fmt.Sprintf("%d,%d", a.ID, b.ID)
	if err := s.insertAudit(ctx, sqlTx, adminID, a.EmployeeID, "create", reason, eventIDs); err != nil {
		return nil, err
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit admin pair: %w", err)
	}
	return []punch.PunchEvent{a, b}, nil
}

// AdminDeleteEvent removes a row by id and records the audit entry.
func (s *Store) AdminDeleteEvent(ctx context.Context, id punch.EventID, adminID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	var employeeID punch.EmployeeID
	err = sqlTx.QueryRowContext(ctx,
		"SELECT employee_id FROM punch_events WHERE id = ?", id,
	).Scan(&employeeID)
	if err == sql.ErrNoRows {
		return &punch.NotFoundError{Kind: "punch event", ID: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return err
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM punch_events WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete punch event: %w", err)
	}

	if err := s.insertAudit(ctx, sqlTx, adminID, employeeID, "delete", reason, fmt.Sprintf("%d", id)); err != nil {
		return err
	}

	return sqlTx.Commit()
}

func (s *Store) insertAudit(ctx context.Context, db execer, adminID string, employeeID punch.EmployeeID, action, reason, eventIDs string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO admin_time_changes (id, admin_id, employee_id, action, reason, event_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), adminID, employeeID, action, reason, eventIDs,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record admin change: %w", err)
	}
	return nil
}

// AdminChange is a stored audit entry.
type AdminChange struct {
	ID         string
	AdminID    string
	EmployeeID punch.EmployeeID
	Action     string
	Reason     string
	EventIDs   string
	CreatedAt  time.Time
}

// AdminChanges returns the audit trail for an employee, newest first.
func (s *Store) AdminChanges(ctx context.Context, employeeID punch.EmployeeID) ([]AdminChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, admin_id, employee_id, action, reason, event_ids, created_at
		FROM admin_time_changes
		WHERE employee_id = ?
		ORDER BY created_at DESC`,
		employeeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []AdminChange
	for rows.Next() {
		var c AdminChange
		var reason, eventIDs sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.AdminID, &c.EmployeeID, &c.Action, &reason, &eventIDs, &createdAt); err != nil {
			return nil, err
		}
		c.Reason = reason.String
		c.EventIDs = eventIDs.String
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// =============================================================================
// SITE STORE (punch.SiteStore interface)
// =============================================================================

// SaveSite upserts a site boundary record.
func (s *Store) SaveSite(ctx context.Context, site punch.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sites (id, center_lat, center_lng, radius_meters, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			center_lat = excluded.center_lat,
			center_lng = excluded.center_lng,
			radius_meters = excluded.radius_meters
	`

	_, err := s.db.ExecContext(ctx, query,
		site.ID, site.CenterLat, site.CenterLng, site.RadiusMeters,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// ListSites returns all site records.
func (s *Store) ListSites(ctx context.Context) ([]punch.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, center_lat, center_lng, radius_meters FROM sites ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []punch.Site
	for rows.Next() {
		var site punch.Site
		if err := rows.Scan(&site.ID, &site.CenterLat, &site.CenterLng, &site.RadiusMeters); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"punch_events", "sites", "admin_time_changes"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
