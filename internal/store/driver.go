//go:build !sqlite_cgo

package store

// Pure Go SQLite; no C toolchain needed.
import (
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite"
