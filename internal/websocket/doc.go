// Package websocket pushes calculation events to connected viewers.
//
// A Hub owns the client set and fans out JSON messages of the form
// {"type", "data", "timestamp", "trace_id"}. Clients are passive: the read
// pump only keeps the connection alive.
package websocket
