// Package http implements the JSON API of the budget viewer.
//
// Handlers stay thin: they parse the request, call the calculation service
// and render the result. Service errors are turned into RFC 7807 problem
// responses by the shared ErrorHandler; RegisterPricingErrors adds the
// calculation sentinels to it.
//
// Routes:
//
//	GET  /api/health               liveness and last calculation state
//	GET  /api/grid                 budget tree with totals and BDI values
//	GET  /api/items/{index}        one budget row
//	GET  /api/composition/{code}   exported breakdown of a composition
//	GET  /api/calculation          current or last run status
//	POST /api/calculation          start a run, or {"mode":"reload"}
package http
