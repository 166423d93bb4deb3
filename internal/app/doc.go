// Package app wires the pricing viewer: configuration, logging, telemetry,
// the calculation service, the websocket hub and the HTTP router.
//
// # Initialization Flow
//
//	1. Load configuration from environment and files
//	2. Initialize logging and observability
//	3. Resolve paths and ensure output directories exist
//	4. Create the websocket hub and the calculation service
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server
//
// # Routes
//
//	GET  /ws                        calculation events
//	GET  /api/health                liveness and last run state
//	GET  /api/grid                  hierarchical priced grid
//	GET  /api/items/{index}         one budget row
//	GET  /api/composition/{code}    detail rows of one composition
//	GET  /api/calculation           current run status
//	POST /api/calculation           start a run or reload exported tables
//	GET  /metrics                   Prometheus scrape endpoint
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM: in-flight requests complete, websocket
// clients are closed and telemetry providers are flushed.
//
// All initialization errors are returned to the caller. The package never
// calls os.Exit.
package app
