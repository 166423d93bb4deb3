package exporter

import (
	"strconv"
	"strings"
)

// formatFloat writes the shortest representation that parses back to f
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseFloat reads a number written by formatFloat. Blank cells are 0.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
