package db

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Open connects with pool settings suited to the driver. SQLite connections
// get foreign key enforcement from the DSN so every pooled connection has it.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		dsn = SQLiteDSN(dsn)
	}
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetConnMaxLifetime(2 * time.Hour)
	}
	return conn, nil
}

// SQLiteDSN adds _foreign_keys=on unless the DSN already sets it.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}
