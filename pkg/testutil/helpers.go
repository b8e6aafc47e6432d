// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"
	"strings"
	"testing"
)

// AssertClose fails the test when got is not within tolerance of want.
func AssertClose(t *testing.T, name string, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("%s = %.4f, expected %.4f (±%.4f)", name, got, want, tolerance)
	}
}

// ContainsString reports whether any element of the slice contains the
// given substring. Used for checking accumulated validation messages.
func ContainsString(messages []string, substring string) bool {
	for _, message := range messages {
		if strings.Contains(message, substring) {
			return true
		}
	}
	return false
}
