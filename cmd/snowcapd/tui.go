// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"snowcap.dev/snowcap/internal/tui"
)

// runTUI connects to a snowcapd serve instance and watches its tracked
// runs live: status, iteration count, problem groups accumulated, and
// (for an optimize run) current best cost.
func runTUI(args []string) int {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:7777", "base URL of a running `snowcapd serve`")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	backend := tui.NewRemoteBackend(*addr)
	program := tea.NewProgram(tui.NewModel(backend), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "snowcapd tui: %v\n", err)
		return 2
	}
	return 0
}
