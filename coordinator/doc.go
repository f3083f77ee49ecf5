// Package coordinator runs one pipeline per partition with bounded partition-level
// parallelism, and reports on the run as a whole once every pipeline has finished.
package coordinator
