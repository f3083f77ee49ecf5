// Package dsv provides a parser for delimiter-separated data files, such as CSV and TSV.
// Columns are named by a header record and typed after the values seen in the first Batch.
package dsv
