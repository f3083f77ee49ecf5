// Package fanout contains the core components of Fanout, an engine which loads partitioned
// columnar data into in-memory tables and runs many independent aggregate queries against
// each table concurrently, streaming every scalar result to a line-delimited output.
// This root package defines the types shared by the partition loaders, the query engine,
// the fan-out scheduler and the result sinks, and is an overview of Fanout's key concepts.
package fanout
