// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ident computes the stable command-identity keys used to undo a
// previously applied atomic configuration command and to render the
// persisted JSON artifact's ordering as portable (kind, expression-hash)
// strings: command identity is preserved across runs via a stable key
// format of (kind, expression-hash).
package ident

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// Kind is the variant half of a command identity key. Defined with the
// same underlying type as config.CommandKind so callers can convert
// directly between the two without an intermediate switch.
type Kind string

const (
	KindInsert Kind = "insert"
	KindRemove Kind = "remove"
	KindUpdate Kind = "update"
)

// Key identifies one atomic command: its kind plus a structural hash of
// the value that determines its effect (an expression for insert/remove,
// an old/new pair for update). Two commands with the same kind and the
// same expression value hash to the same Key, which is what lets
// Network.UndoCommand find the undo log entry a later ApplyCommand call
// for "the same command" created earlier.
type Key struct {
	kind Kind
	hash uint64
}

// NewKey hashes value with hashstructure and pairs the result with kind.
// value may be any Go value reachable from a config.Expr or a
// config.Command's old/new fields — structs, slices, maps, and the
// primitive types those are built from.
func NewKey(kind Kind, value any) (Key, error) {
	h, err := hashstructure.Hash(value, hashstructure.FormatV2, nil)
	if err != nil {
		return Key{}, fmt.Errorf("hashing %s identity: %w", kind, err)
	}
	return Key{kind: kind, hash: h}, nil
}

// String renders the key as "kind:hash" in lowercase hex, the format the
// persisted JSON artifact's ordering list stores per command.
func (k Key) String() string {
	return fmt.Sprintf("%s:%016x", k.kind, k.hash)
}
