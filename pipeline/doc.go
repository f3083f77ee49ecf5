// Package pipeline runs a single partition through loading, registration, query fan-out
// and result collection.
package pipeline
