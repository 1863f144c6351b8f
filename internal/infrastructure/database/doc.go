// Package database manages the SQLite connection backing the relay event log.
//
// It handles connection setup (WAL mode, busy timeout, restricted file
// permissions), embedded schema migrations, and health checks. Schema files
// live in the top-level migrations package and are compiled into the binary.
package database
