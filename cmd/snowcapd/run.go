// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"snowcap.dev/snowcap/internal/config"
	"snowcap.dev/snowcap/internal/cost"
	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/logging"
	"snowcap.dev/snowcap/internal/ltl"
	"snowcap.dev/snowcap/internal/network"
	"snowcap.dev/snowcap/internal/strategy"
	"snowcap.dev/snowcap/internal/synth"
)

func runOnce(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	before := fs.String("before", "", "path to the initial topology (HCL)")
	after := fs.String("after", "", "path to the target topology (HCL)")
	hardPolicy := fs.String("hard-policy", "", "LTL formula every intermediate forwarding state must satisfy")
	softPolicy := fs.String("soft-policy", "none", "soft cost function to minimize: none|traffic_shift")
	mode := fs.String("mode", "synthesize", "synthesize|synthesize_parallel|optimize")
	workers := fs.Int("workers", 4, "worker count for synthesize_parallel")
	maxIterations := fs.Int("max-iterations", 0, "0 means unbounded")
	deadline := fs.Duration("deadline", 0, "0 means unbounded")
	out := fs.String("out", "", "write the JSON artifact here instead of stdout")
	watch := fs.Bool("watch", false, "re-synthesize whenever -before or -after changes")
	logLevel := fs.String("log-level", "info", "debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := newLogger(*logLevel)

	if *before == "" || *after == "" || *hardPolicy == "" {
		fmt.Fprintln(os.Stderr, "snowcapd run: -before, -after, and -hard-policy are required")
		return 2
	}

	params := runParams{
		before:        *before,
		after:         *after,
		hardPolicy:    *hardPolicy,
		softPolicy:    *softPolicy,
		mode:          *mode,
		workers:       *workers,
		maxIterations: *maxIterations,
		deadline:      *deadline,
		out:           *out,
	}

	if !*watch {
		return execute(params, logger)
	}
	return watchAndExecute(params, logger)
}

type runParams struct {
	before, after, hardPolicy, softPolicy, mode string
	workers, maxIterations                      int
	deadline                                    time.Duration
	out                                         string
}

func execute(p runParams, logger *logging.Logger) int {
	res, err := synthesizeFromFiles(p)
	if err != nil {
		logger.Error("run failed", "error", err)
		return synth.ExitCode(err)
	}

	artifact, err := synth.BuildArtifact(res)
	if err != nil {
		logger.Error("building artifact", "error", err)
		return synth.ExitCode(err)
	}

	if err := writeArtifact(artifact, p.out); err != nil {
		logger.Error("writing artifact", "error", err)
		return 2
	}
	return 0
}

func synthesizeFromFiles(p runParams) (synth.Result, error) {
	beforeCfg, numBefore, err := config.LoadTopology(p.before)
	if err != nil {
		return synth.Result{}, errors.Wrap(err, errors.KindInput, "loading before topology")
	}
	afterCfg, numAfter, err := config.LoadTopology(p.after)
	if err != nil {
		return synth.Result{}, errors.Wrap(err, errors.KindInput, "loading after topology")
	}
	numRouters := numBefore
	if numAfter > numRouters {
		numRouters = numAfter
	}

	formula, err := ltl.Compile(p.hardPolicy)
	if err != nil {
		return synth.Result{}, errors.Wrap(err, errors.KindInput, "compiling hard policy")
	}

	net, err := network.BuildFromConfig(numRouters, beforeCfg)
	if err != nil {
		return synth.Result{}, err
	}
	delta := config.Diff(beforeCfg, afterCfg)

	budget := strategy.Budget{MaxIterations: p.maxIterations}
	if p.deadline > 0 {
		budget.Deadline = time.Now().Add(p.deadline)
	}

	switch p.mode {
	case "synthesize_parallel":
		return synth.SynthesizeParallel(net, formula, delta, p.workers, budget, nil, nil)
	case "optimize":
		softFn, err := softPolicyFunc(p.softPolicy)
		if err != nil {
			return synth.Result{}, err
		}
		return synth.Optimize(net, formula, delta, softFn, budget, nil, nil)
	default:
		return synth.Synthesize(net, formula, delta, budget, nil, nil)
	}
}

func softPolicyFunc(name string) (cost.Func, error) {
	switch name {
	case "", "none":
		return cost.TrafficShiftCost{}, nil
	case "traffic_shift":
		return cost.TrafficShiftCost{}, nil
	default:
		return nil, errors.Errorf(errors.KindInput, "unknown soft policy %q", name)
	}
}

func writeArtifact(a synth.Artifact, path string) error {
	body, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling artifact")
	}
	body = append(body, '\n')

	if path == "" {
		_, err := os.Stdout.Write(body)
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

// watchAndExecute runs the search once immediately, then again every time
// -before or -after is written to, until interrupted. fsnotify watches the
// containing directories rather than the files directly since editors
// commonly replace a file (rename-over-write) rather than truncate it in
// place, which a direct file watch would miss.
func watchAndExecute(p runParams, logger *logging.Logger) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("starting file watcher", "error", err)
		return 2
	}
	defer watcher.Close()

	for _, dir := range watchDirs(p.before, p.after) {
		if err := watcher.Add(dir); err != nil {
			logger.Error("watching directory", "dir", dir, "error", err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := execute(p, logger)
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return code
		case event, ok := <-watcher.Events:
			if !ok {
				return code
			}
			if !relevantEvent(event, p.before, p.after) {
				continue
			}
			debounce.Reset(100 * time.Millisecond)
		case <-debounce.C:
			logger.Info("topology change detected, re-synthesizing")
			code = execute(p, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return code
			}
			logger.Error("file watcher error", "error", err)
		}
	}
}

func watchDirs(paths ...string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		dir := dirOf(p)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func relevantEvent(event fsnotify.Event, paths ...string) bool {
	for _, p := range paths {
		if event.Name == p {
			return true
		}
	}
	return false
}
