// Package shared holds helpers used across packages.
//
// testutil provides a capturing slog handler for asserting on log output
// and excelize-backed workbook fixtures shaped like the budget and cost
// library inputs. It is imported only from _test.go files.
package shared
