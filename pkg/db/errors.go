package db

import "strings"

// IsUniqueViolation reports whether the provided error references a Postgres
// unique constraint. When constraintName is given the helper looks for that
// constraint in the error text, which also covers sqlite's phrasing in tests.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
