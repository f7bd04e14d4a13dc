//go:build sqlite_cgo

package store

// Built with -tags sqlite_cgo: the cgo SQLite binding, faster on large
// exports.
import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite3"
