package dataprocessing

import (
	"math"
	"strconv"
	"strings"
)

// Normalize turns a raw cell into a comparable key. Blank cells and the
// literal markers "nan"/"none" are absent; anything else is trimmed,
// upper-cased and loses a trailing ".0" left by numeric-to-text conversion.
func Normalize(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "", "NAN", "NONE":
		return "", false
	}
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return "", false
	}
	return s, true
}

// CleanCode normalizes a code and strips the "." and "-" separators some
// catalogs print inside codes.
func CleanCode(raw string) (string, bool) {
	s, ok := Normalize(raw)
	if !ok {
		return "", false
	}
	s = strings.NewReplacer(".", "", "-", "").Replace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// ParseLenient parses a numeric cell. Comma decimal separators are accepted,
// and "1.234,56" is read as 1234.56. NaN and infinities are rejected.
func ParseLenient(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseFloat is ParseLenient with failures read as 0
func ParseFloat(raw string) float64 {
	v, _ := ParseLenient(raw)
	return v
}

// isBlank reports whether a cell carries no value, counting the "nan"/"none"
// markers spreadsheets exported from dataframes leave behind.
func isBlank(raw string) bool {
	_, ok := Normalize(raw)
	return !ok
}

// cell returns the trimmed value at idx, or "" when the row is shorter
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
