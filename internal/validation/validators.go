// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package validation rejects malformed input before any synthesis search
// starts, per the "InputError is rejected before any search starts"
// propagation policy.
package validation

import (
	"regexp"
	"strings"

	"snowcap.dev/snowcap/internal/errors"
)

var (
	// Valid identifier: alphanumeric, dash, underscore. Used for router and
	// prefix names that appear in LTL atoms and in persisted artifacts.
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	// Dangerous characters that should never appear in identifiers
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

// ValidateIdentifier validates a router or prefix identifier as used in
// topology descriptions and LTL atoms.
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.New(errors.KindInput, "identifier cannot be empty")
	}

	if !identifierRegex.MatchString(id) {
		return errors.Errorf(errors.KindInput, "invalid identifier: %s (must be alphanumeric with -_, max 64 chars)", id)
	}

	for _, char := range dangerousChars {
		if strings.Contains(id, char) {
			return errors.Errorf(errors.KindInput, "identifier contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateRouterID checks that id indexes into a network of numRouters
// routers.
func ValidateRouterID(id, numRouters int) error {
	if id < 0 || id >= numRouters {
		return errors.Errorf(errors.KindInput, "unknown router id %d (network has %d routers)", id, numRouters)
	}
	return nil
}

// ValidatePrefix checks that a prefix tag is non-negative.
func ValidatePrefix(p int) error {
	if p < 0 {
		return errors.Errorf(errors.KindInput, "invalid prefix tag %d: must be non-negative", p)
	}
	return nil
}

// ValidateWaypointRegex compiles a waypoint regex used by the LTL `path`
// atom, rejecting malformed patterns at compile time rather than at
// evaluation time.
func ValidateWaypointRegex(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, errors.New(errors.KindInput, "waypoint regex cannot be empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindInput, "invalid waypoint regex %q", pattern)
	}
	return re, nil
}

// ValidateIGPWeight rejects non-positive link weights (spec: "a positive
// IGP weight").
func ValidateIGPWeight(w int) error {
	if w <= 0 {
		return errors.Errorf(errors.KindInput, "IGP link weight must be positive, got %d", w)
	}
	return nil
}

// SanitizeString removes dangerous characters from a string (for safe
// inclusion in logs and persisted artifacts).
func SanitizeString(s string) string {
	for _, char := range dangerousChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
