// Package memory provides a PartitionLoader over Tables held in memory, for embedding and testing.
package memory
