//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
// This is used when the cgo_sqlite build tag is set.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
package sqlite

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3"
)

// dsn builds a mattn/go-sqlite3 connection string.
func dsn(path string, readOnly bool) string {
	s := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1", path, busyTimeoutMS)
	if readOnly {
		s += "&mode=ro"
	}
	return s
}
