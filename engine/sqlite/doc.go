// Package sqlite provides a QueryEngine backed by a private, in-memory SQLite database
// (https://gitlab.com/cznic/sqlite, imported as modernc.org/sqlite). Registered Tables are
// materialized into the database once, after which any number of goroutines may query it.
package sqlite
