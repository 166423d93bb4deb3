// Package exporter persists pricing results.
//
// The two tables of an assembly are written as UTF-8 CSV files with a BOM so
// that spreadsheet programs detect the encoding: the services table (one row
// per budget item, headers included) and the detail table (one row per
// exported parent/child pair). Numbers are written in their shortest exact
// form, so identical runs produce byte-identical files and ReadTables gives
// back the same values without recomputation.
//
// Export also saves an xlsx workbook with both tables and a JSON manifest
// carrying the run id, counts and a blake2b fingerprint of the CSVs.
package exporter
