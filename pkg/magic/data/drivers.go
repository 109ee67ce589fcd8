package data

// Database drivers registered with database/sql under the names data.connect accepts.

import (
	_ "github.com/go-sql-driver/mysql" // mysql
	_ "github.com/lib/pq"              // postgres
	_ "modernc.org/sqlite"             // sqlite
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{DriverMySQL, DriverPostgres, DriverSQLite}
}

func knownDriver(name string) bool {
	switch name {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return true
	}
	return false
}
