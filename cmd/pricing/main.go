// Command pricing resolves unit prices for a construction budget from
// public cost libraries, exports the priced tables and serves the viewer.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
