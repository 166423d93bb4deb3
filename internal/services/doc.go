// Package services wires the pricing pipeline to its callers.
//
// Pipeline loads the budget sheet, the cost libraries and the quotation
// database, merges them in priority order (SINAPI ISD, CSD, Analítico,
// CDHU, SICRO), solves the composition graph and assembles the output
// tables. CalculationService adds what the CLI and the viewer need on top:
// a single in-flight run, export, an atomically swapped result snapshot,
// and calculation events for websocket clients.
package services
