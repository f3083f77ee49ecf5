// Package parquet parses Parquet files into Batches. This parser uses https://github.com/parquet-go/parquet-go
// to read files, and supports flat schemas whose leaf columns are booleans, integers, floating point numbers
// or byte arrays (read as strings).
package parquet
