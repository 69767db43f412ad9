//go:build !sqlite_cgo

package simcache

// Compiled by default. Uses the pure Go SQLite driver, so no C toolchain
// is needed:
//
//	CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	"fmt"

	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

// dsn enables WAL and the busy timeout on every pooled connection.
func dsn(path string, busyTimeoutMs int) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busyTimeoutMs)
}
