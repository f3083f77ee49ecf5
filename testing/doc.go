// Package testing provides helpers for writing partition fixtures and collecting records in tests.
// It is typically imported as fanouttest.
package testing
