// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package historydb

import (
	"database/sql"
	"os"
	"strings"
	"sync"

	// Register the sqlite3 driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

// DB is a history database backed by a single SQLite file.  It is safe for
// concurrent use.
type DB struct {
	sqldb *sql.DB
	path  string

	closeOnce sync.Once
}

// Open opens an existing history database.  ErrDbDoesNotExist is returned
// when no database exists at path.
func Open(path string) (*DB, error) {
	return openOrCreateDB(path, false)
}

// Create opens the history database at path, creating and initializing it
// when it does not exist yet.
func Create(path string) (*DB, error) {
	return openOrCreateDB(path, true)
}

// openOrCreateDB opens a database, either creating it or opening an existing
// database based on the flag.
func openOrCreateDB(path string, create bool) (*DB, error) {
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, ErrDbDoesNotExist
		}
	}

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Warnf("db open failed %v", err)
		return nil, err
	}

	// SQLite allows a single writer.  Funneling every statement through one
	// connection keeps transactions from tripping over SQLITE_BUSY.
	sqldb.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA page_size=4096;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA journal_mode=WAL;",
	}
	for _, pragma := range pragmas {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, err
		}
	}

	version, err := fetchVersion(sqldb)
	switch {
	case err == sql.ErrNoRows || isMissingTable(err):
		if !create {
			sqldb.Close()
			return nil, ErrDbDoesNotExist
		}
		if err := createDB(sqldb); err != nil {
			sqldb.Close()
			return nil, err
		}
		version = dbVersion

	case err != nil:
		sqldb.Close()
		return nil, err
	}

	if version != dbVersion {
		log.Warnf("mismatch db version: %v expected %v", version, dbVersion)
		sqldb.Close()
		return nil, VersionError{Found: version, Expected: dbVersion}
	}

	log.Debugf("Opened history database %s (version %d)", path, version)
	return &DB{sqldb: sqldb, path: path}, nil
}

// fetchVersion reads the schema version of an opened database.
func fetchVersion(sqldb *sql.DB) (int, error) {
	var version int
	err := sqldb.QueryRow("SELECT version FROM dbversion;").Scan(&version)
	return version, err
}

// isMissingTable reports whether err is the sqlite error for a query against
// a table that has not been created.
func isMissingTable(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "no such table")
}

// createDB configures the database, setting up all tables to initial state.
// All statements run in one transaction so a failed initialization leaves no
// partial schema behind.
func createDB(sqldb *sql.DB) error {
	log.Infof("Initializing new history database")

	tx, err := sqldb.Begin()
	if err != nil {
		return err
	}
	for _, stmt := range buildTables {
		if _, err := tx.Exec(stmt); err != nil {
			log.Warnf("sql table op failed %v [%v]", err, stmt)
			tx.Rollback()
			return err
		}
	}
	_, err = tx.Exec("INSERT INTO dbversion (version) VALUES (?);", dbVersion)
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

// Close cleanly shuts down the database.  It is safe to call more than once.
func (db *DB) Close() error {
	var err error
	db.closeOnce.Do(func() {
		err = db.sqldb.Close()
	})
	return err
}
