package dbx

import "strings"

// Text arrays travel as comma-joined strings: written through
// string_to_array($n, ',') and read back with array_to_string(col, ',').
// Callers only store comma-free values (hashtags, uuids).
const arraySep = ","

// JoinTextArray encodes values for string_to_array. An empty slice yields ""
// which Postgres turns into an empty array.
func JoinTextArray(values []string) string {
	return strings.Join(values, arraySep)
}

// SplitTextArray decodes an array_to_string result. It never returns nil.
func SplitTextArray(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, arraySep)
}
