package main

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const initSQL = `CREATE TABLE IF NOT EXISTS ban (
	addr VARCHAR(64) NOT NULL,
	name VARCHAR(64) NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time INTEGER NOT NULL,
	peer INTEGER NOT NULL,
	name VARCHAR(64) NOT NULL,
	text TEXT NOT NULL
);
`

// OpenSQLite3 opens the database at path and creates missing tables.
func OpenSQLite3(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(initSQL); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
