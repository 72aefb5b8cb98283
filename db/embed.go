// Package db provides the embedded database schemas.
package db

import _ "embed"

// Schema contains the PostgreSQL DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SQLiteSchema contains the SQLite DDL statements for all application tables.
//
//go:embed migrations/001_schema_sqlite.sql
var SQLiteSchema string
