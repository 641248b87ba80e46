// Package bootstore implements optional SQL-backed persistence for a
// named internal/boot.Image, grounded on the teacher's DBManager
// (internal/database/db_manager.go): connect by a driver-name string,
// keep the *sql.DB behind a mutex-guarded map, dispatch Execute/Query
// through database/sql. Ion narrows DBManager's general query/exec/
// transaction surface down to the one thing a boot image actually needs:
// save/load a named snapshot (canon words, error templates) across
// process runs (SPEC_FULL §4.7). Nothing in spec.md requires this:
// boot.Default() builds an Image purely in memory, so bootstore is
// exercised only when a host explicitly asks to persist one.
//
// Unlike DBManager (which hands callers a raw Execute/Query over
// whatever SQL they supply), Store bakes its own upsert/select text, so
// it keeps one dialect per driver rather than assuming SQLite's
// placeholder style and ON CONFLICT grammar works unchanged against
// lib/pq, go-sql-driver/mysql, and go-mssqldb.
package bootstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ion/internal/boot"
)

// driverNames maps the Config.Driver string SPEC_FULL's dependency table
// names to the database/sql driver name it registers under, the same
// indirection DBManager.Connect uses ("sqlite"/"sqlite3" -> "sqlite",
// "postgres"/"postgresql" -> "postgres", "mysql" -> "mysql").
var driverNames = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"mysql":      "mysql",
	"sqlserver":  "sqlserver",
	"mssql":      "sqlserver",
}

// dialect holds the boot_images DDL/DML text for one driverNames target.
// database/sql gives every driver a single Exec/QueryRow surface, but
// placeholder syntax and upsert grammar are not portable across it
// (lib/pq wants $1..$n, go-mssqldb wants @p1..@pn and has no ON
// CONFLICT, MySQL has no ON CONFLICT either but does have ON DUPLICATE
// KEY UPDATE), so Store keeps one dialect per open connection instead of
// assuming SQLite's grammar works everywhere.
type dialect struct {
	createTable  string
	upsert       string
	selectByName string
}

var dialects = map[string]dialect{
	"sqlite": {
		createTable: `CREATE TABLE IF NOT EXISTS boot_images (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL
		)`,
		upsert: `INSERT INTO boot_images (name, data, saved_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		selectByName: `SELECT data FROM boot_images WHERE name = ?`,
	},
	"postgres": {
		createTable: `CREATE TABLE IF NOT EXISTS boot_images (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL
		)`,
		upsert: `INSERT INTO boot_images (name, data, saved_at) VALUES ($1, $2, $3)
			ON CONFLICT(name) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		selectByName: `SELECT data FROM boot_images WHERE name = $1`,
	},
	"mysql": {
		createTable: `CREATE TABLE IF NOT EXISTS boot_images (
			name VARCHAR(255) PRIMARY KEY,
			data LONGTEXT NOT NULL,
			saved_at DATETIME NOT NULL
		)`,
		upsert: `INSERT INTO boot_images (name, data, saved_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE data = VALUES(data), saved_at = VALUES(saved_at)`,
		selectByName: `SELECT data FROM boot_images WHERE name = ?`,
	},
	"sqlserver": {
		createTable: `IF NOT EXISTS (SELECT * FROM sysobjects WHERE name = 'boot_images' AND xtype = 'U')
			CREATE TABLE boot_images (
				name VARCHAR(255) PRIMARY KEY,
				data NVARCHAR(MAX) NOT NULL,
				saved_at DATETIME NOT NULL
			)`,
		upsert: `MERGE boot_images AS target
			USING (SELECT @p1 AS name, @p2 AS data, @p3 AS saved_at) AS source
			ON target.name = source.name
			WHEN MATCHED THEN UPDATE SET data = source.data, saved_at = source.saved_at
			WHEN NOT MATCHED THEN INSERT (name, data, saved_at) VALUES (source.name, source.data, source.saved_at);`,
		selectByName: `SELECT data FROM boot_images WHERE name = @p1`,
	},
}

// conn pairs an open database handle with the query text that works
// against it.
type conn struct {
	db *sql.DB
	d  dialect
}

// Store holds one open connection per id, exactly as DBManager does,
// narrowed to the boot-image save/load surface.
type Store struct {
	mu    sync.RWMutex
	conns map[string]*conn
}

func New() *Store {
	return &Store{conns: make(map[string]*conn)}
}

// Open connects id against dsn using the database named by dbType
// ("sqlite", "postgres", "mysql", "sqlserver"), creating the boot_images
// table if it does not already exist.
func (s *Store) Open(id, dbType, dsn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conns[id]; exists {
		return fmt.Errorf("bootstore: connection %q already open", id)
	}
	driverName, ok := driverNames[dbType]
	if !ok {
		return fmt.Errorf("bootstore: unsupported database type %q", dbType)
	}
	d, ok := dialects[driverName]
	if !ok {
		return fmt.Errorf("bootstore: no dialect registered for driver %q", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("bootstore: connect failed: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("bootstore: ping failed: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(d.createTable); err != nil {
		db.Close()
		return fmt.Errorf("bootstore: schema init failed: %w", err)
	}

	s.conns[id] = &conn{db: db, d: d}
	return nil
}

// Close closes and forgets connection id.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return fmt.Errorf("bootstore: connection %q not found", id)
	}
	delete(s.conns, id)
	return c.db.Close()
}

func (s *Store) conn(id string) (*conn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[id]
	if !ok {
		return nil, fmt.Errorf("bootstore: connection %q not found", id)
	}
	return c, nil
}

// imageDoc is Image's on-disk shape. The boot image's own fields
// (canon words, error templates) are serialized as plain JSON; the
// domain-grounded concern here is which SQL driver to dial, not the
// wire format of the snapshot itself, so this is the one place
// bootstore reaches for stdlib encoding rather than a pack dependency
// (see DESIGN.md).
type imageDoc struct {
	Name       string               `json:"name"`
	CanonWords []string             `json:"canon_words"`
	Templates  []boot.ErrorTemplate `json:"templates"`
}

// Save upserts img under its own Name into connection id's boot_images
// table.
func (s *Store) Save(id string, img *boot.Image) error {
	c, err := s.conn(id)
	if err != nil {
		return err
	}
	doc := imageDoc{Name: img.Name, CanonWords: img.CanonWords, Templates: img.Templates}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("bootstore: encode failed: %w", err)
	}
	_, err = c.db.Exec(c.d.upsert, img.Name, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("bootstore: save failed: %w", err)
	}
	return nil
}

// Load reads the named image back out of connection id's store.
func (s *Store) Load(id, name string) (*boot.Image, error) {
	c, err := s.conn(id)
	if err != nil {
		return nil, err
	}
	var data string
	err = c.db.QueryRow(c.d.selectByName, name).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("bootstore: load failed: %w", err)
	}
	var doc imageDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("bootstore: decode failed: %w", err)
	}
	return &boot.Image{Name: doc.Name, CanonWords: doc.CanonWords, Templates: doc.Templates}, nil
}
