//go:build !cgo_sqlite

package sqlite

import (
	"fmt"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

// dsn builds a modernc.org/sqlite connection string. Pragmas are applied
// to every pooled connection.
func dsn(path string, readOnly bool) string {
	s := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMS)
	if readOnly {
		s += "&mode=ro"
	}
	return s
}
