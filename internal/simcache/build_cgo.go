//go:build sqlite_cgo

package simcache

// Compiled with the sqlite_cgo tag. Uses the C SQLite driver:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

// dsn enables WAL and the busy timeout on every pooled connection.
func dsn(path string, busyTimeoutMs int) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		path, busyTimeoutMs)
}
