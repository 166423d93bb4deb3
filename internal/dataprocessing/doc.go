// Package dataprocessing turns raw spreadsheet rows into normalized pricing
// inputs: leaf prices, composition blocks and the requested budget items.
//
// # Architecture
//
// Every source format is described by a Layout (sheet, rows to skip and the
// column positions it reads) and parsed by a row grammar:
//
//  1. ParsePriceSheet: SINAPI ISD/CSD code and price tables, with a
//     positional fallback scan when the canonical price column is empty
//  2. ParseAnalytic: SINAPI "Analítico" composition breakdown
//  3. ParseRegional: CDHU "Composição" sheet
//  4. ParseReport: SICRO analytic report, restricted to a required code set
//  5. ParsePO: the requested-items budget sheet
//
// The composition grammars share a Cursor state machine
// (NONE or IN_COMPOSITION) driven by pure per-row classifiers, so each
// grammar can be tested without a workbook.
//
// # Usage
//
//	rows, err := workbook.Rows(dataprocessing.ISDLayout())
//	if err != nil {
//	    return err
//	}
//	fragment := dataprocessing.ParsePriceSheet(rows, dataprocessing.ISDLayout(), logger)
//
// # Error Handling
//
// Spreadsheet cells are noisy. Numeric coercion goes through ParseLenient,
// which reports success instead of failing; unparsable values read as 0 and
// blank or "nan" cells as absent. Parsers never return errors.
package dataprocessing
