// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateIdentifier(t *testing.T) {
	require.NoError(t, ValidateIdentifier("R1"))
	require.NoError(t, ValidateIdentifier("rr-client_1"))
	require.Error(t, ValidateIdentifier(""))
	require.Error(t, ValidateIdentifier("R1; rm -rf /"))
	require.Error(t, ValidateIdentifier("R1 R2"))
}

func TestValidateRouterID(t *testing.T) {
	require.NoError(t, ValidateRouterID(0, 3))
	require.NoError(t, ValidateRouterID(2, 3))
	require.Error(t, ValidateRouterID(3, 3))
	require.Error(t, ValidateRouterID(-1, 3))
}

func TestValidatePrefix(t *testing.T) {
	require.NoError(t, ValidatePrefix(0))
	require.Error(t, ValidatePrefix(-1))
}

func TestValidateWaypointRegex(t *testing.T) {
	re, err := ValidateWaypointRegex(".*R2.*")
	require.NoError(t, err)
	require.True(t, re.MatchString("R1,R2,R3"))

	_, err = ValidateWaypointRegex("(unterminated")
	require.Error(t, err)

	_, err = ValidateWaypointRegex("")
	require.Error(t, err)
}

func TestValidateIGPWeight(t *testing.T) {
	require.NoError(t, ValidateIGPWeight(1))
	require.Error(t, ValidateIGPWeight(0))
	require.Error(t, ValidateIGPWeight(-5))
}
