// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ident

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKeyIsStableForEqualValues(t *testing.T) {
	type expr struct {
		A, B   int
		Weight int
	}

	k1, err := NewKey(KindInsert, expr{A: 0, B: 1, Weight: 5})
	require.NoError(t, err)
	k2, err := NewKey(KindInsert, expr{A: 0, B: 1, Weight: 5})
	require.NoError(t, err)

	require.Equal(t, k1, k2)
	require.Equal(t, k1.String(), k2.String())
}

func TestNewKeyDiffersOnValueOrKind(t *testing.T) {
	type expr struct{ A, B int }

	base, err := NewKey(KindInsert, expr{A: 0, B: 1})
	require.NoError(t, err)

	diffValue, err := NewKey(KindInsert, expr{A: 0, B: 2})
	require.NoError(t, err)
	require.NotEqual(t, base, diffValue)

	diffKind, err := NewKey(KindRemove, expr{A: 0, B: 1})
	require.NoError(t, err)
	require.NotEqual(t, base, diffKind)
}

func TestKeyStringFormat(t *testing.T) {
	k, err := NewKey(KindUpdate, 42)
	require.NoError(t, err)
	require.Regexp(t, `^update:[0-9a-f]{16}$`, k.String())
}
