// Package file provides a PartitionLoader which reads partitions from a directory-per-partition
// layout on disk. Every recognised data file within a partition's directory is parsed, in name
// order, and appended to a single in-memory Table.
package file
