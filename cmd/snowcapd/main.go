// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command snowcapd synthesizes a safe ordering of a BGP/IGP reconfiguration
// campaign. Its default "run" subcommand loads an initial and target
// topology, compiles a hard-policy LTL formula, searches for a valid
// ordering, and emits the persisted JSON artifact. Its "serve" subcommand
// instead exposes the same search over HTTP, for longer-running embedding.
// Its "tui" subcommand watches a running "serve" instance's tracked runs
// live in a terminal.
package main

import (
	"fmt"
	"os"

	"snowcap.dev/snowcap/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	subcmd := "run"
	if len(args) > 0 && !flagLike(args[0]) {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "run":
		return runOnce(args)
	case "serve":
		return serve(args)
	case "tui":
		return runTUI(args)
	default:
		fmt.Fprintf(os.Stderr, "snowcapd: unknown subcommand %q (want \"run\", \"serve\", or \"tui\")\n", subcmd)
		return 2
	}
}

func flagLike(s string) bool {
	return len(s) > 0 && s[0] == '-'
}

func newLogger(levelName string) *logging.Logger {
	level := logging.LevelInfo
	switch levelName {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(logging.Config{Level: level, Output: os.Stderr, Prefix: "snowcapd"})
}
