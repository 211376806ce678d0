// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"snowcap.dev/snowcap/internal/errors"
	"snowcap.dev/snowcap/internal/synth"
)

const runTestBefore = `
routers = 2

static_route {
  router   = 0
  prefix   = 0
  next_hop = 1
}

bgp_session {
  a    = 0
  b    = 1
  kind = "ebgp"
}

announce {
  router  = 1
  prefix  = 0
  as_path = [65001]
}
`

const runTestAfter = `
routers = 2

bgp_session {
  a    = 0
  b    = 1
  kind = "ebgp"
}

announce {
  router  = 1
  prefix  = 0
  as_path = [65001]
}
`

func writeTopologies(t *testing.T) (before, after string) {
	t.Helper()
	dir := t.TempDir()
	before = filepath.Join(dir, "before.hcl")
	after = filepath.Join(dir, "after.hcl")
	require.NoError(t, os.WriteFile(before, []byte(runTestBefore), 0o644))
	require.NoError(t, os.WriteFile(after, []byte(runTestAfter), 0o644))
	return before, after
}

func TestSynthesizeFromFilesFindsAnOrdering(t *testing.T) {
	before, after := writeTopologies(t)

	res, err := synthesizeFromFiles(runParams{
		before:        before,
		after:         after,
		hardPolicy:    "G reach(0,0)",
		mode:          "synthesize",
		maxIterations: 50,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Ordering)
}

func TestSynthesizeFromFilesRejectsBadPolicy(t *testing.T) {
	before, after := writeTopologies(t)

	_, err := synthesizeFromFiles(runParams{before: before, after: after, hardPolicy: "((( nope"})
	require.Error(t, err)
	require.Equal(t, errors.KindInput, errors.GetKind(err))
}

func TestSynthesizeFromFilesRejectsMissingFile(t *testing.T) {
	_, after := writeTopologies(t)

	_, err := synthesizeFromFiles(runParams{before: "/nonexistent/path.hcl", after: after, hardPolicy: "G reach(0,0)"})
	require.Error(t, err)
	require.Equal(t, errors.KindInput, errors.GetKind(err))
}

func TestWriteArtifactToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.json")
	before, after := writeTopologies(t)

	res, err := synthesizeFromFiles(runParams{before: before, after: after, hardPolicy: "G reach(0,0)", maxIterations: 50})
	require.NoError(t, err)
	artifact, err := synth.BuildArtifact(res)
	require.NoError(t, err)

	require.NoError(t, writeArtifact(artifact, path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Contains(t, decoded, "ordering")
	require.Contains(t, decoded, "cost")
	require.Contains(t, decoded, "seed")
}

func TestWatchDirsDeduplicatesSharedDirectory(t *testing.T) {
	dirs := watchDirs("/a/b/before.hcl", "/a/b/after.hcl")
	require.Equal(t, []string{"/a/b"}, dirs)
}

func TestWatchDirsKeepsDistinctDirectories(t *testing.T) {
	dirs := watchDirs("/a/before.hcl", "/b/after.hcl")
	require.ElementsMatch(t, []string{"/a", "/b"}, dirs)
}

func TestRelevantEventMatchesWatchedPaths(t *testing.T) {
	require.True(t, relevantEvent(fsnotify.Event{Name: "/a/before.hcl"}, "/a/before.hcl", "/a/after.hcl"))
	require.False(t, relevantEvent(fsnotify.Event{Name: "/a/other.hcl"}, "/a/before.hcl", "/a/after.hcl"))
}

func TestSoftPolicyFuncRejectsUnknownName(t *testing.T) {
	_, err := softPolicyFunc("bogus")
	require.Error(t, err)
	require.Equal(t, errors.KindInput, errors.GetKind(err))
}
