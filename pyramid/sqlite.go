package pyramid

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps tiles in an MBTiles-style SQLite database: a tiles
// table keyed by (zoom_level, tile_column, tile_row) and a metadata table.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	encoding string
	size     int
}

// OpenSQLite opens (creating if needed) the database at path and brings its
// schema up to date.
func OpenSQLite(path string, size int, encoding string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, encoding: encoding, size: size}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrateUp() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	drv, err := msqlite.WithInstance(s.db, &msqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	// m is not closed: that would close the shared *sql.DB.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// TileSize implements Store.
func (s *SQLiteStore) TileSize() int { return s.size }

// Put implements Store.
func (s *SQLiteStore) Put(a Address, t *Tile) error {
	if err := t.check(s.size); err != nil {
		return err
	}
	body, err := Encode(t, s.encoding)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)`,
		a.Z, a.X, a.Y, body)
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return ErrTileExists
	}
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(a Address) (*Tile, bool, error) {
	var body []byte
	err := s.db.QueryRow(
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		a.Z, a.X, a.Y).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	t, err := Decode(body, s.encoding, s.size)
	if err != nil {
		return nil, false, fmt.Errorf("%s %d/%d/%d: %w", s.path, a.Z, a.X, a.Y, err)
	}
	return t, true, nil
}

// SetMetadata upserts one metadata entry.
func (s *SQLiteStore) SetMetadata(name, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	return err
}

// Metadata reads one metadata entry.
func (s *SQLiteStore) Metadata(name string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return v, err == nil, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
