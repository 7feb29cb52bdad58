package surface

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeWatcherAppliesValidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probes.yaml")
	require.NoError(t, DefaultProbes().Save(path))

	var mu sync.Mutex
	var got *ProbeSet
	pw, err := NewProbeWatcher(path, func(ps ProbeSet) {
		mu.Lock()
		defer mu.Unlock()
		got = &ps
	})
	require.NoError(t, err)
	require.NoError(t, pw.Start(context.Background()))
	defer pw.Stop()

	updated := DefaultProbes()
	updated.Radio.Candidates = "label.updated-radio"
	require.NoError(t, updated.Save(path))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil && got.Radio.Candidates == "label.updated-radio"
	}, 5*time.Second, 25*time.Millisecond, "reload should reach the apply callback")

	assert.GreaterOrEqual(t, pw.Stats().ReloadsApplied, 1)
}

func TestProbeWatcherRejectsBrokenReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probes.yaml")
	require.NoError(t, DefaultProbes().Save(path))

	var mu sync.Mutex
	applied := 0
	pw, err := NewProbeWatcher(path, func(ProbeSet) {
		mu.Lock()
		defer mu.Unlock()
		applied++
	})
	require.NoError(t, err)
	require.NoError(t, pw.Start(context.Background()))
	defer pw.Stop()

	require.NoError(t, os.WriteFile(path, []byte("radio:\n  candidates: \"\"\n"), 0644))

	require.Eventually(t, func() bool {
		return pw.Stats().ReloadsRejected >= 1
	}, 5*time.Second, 25*time.Millisecond, "broken file should be rejected")

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, applied, "rejected reload must not reach the apply callback")
}

func TestProbeWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probes.yaml")
	require.NoError(t, DefaultProbes().Save(path))

	pw, err := NewProbeWatcher(path, func(ProbeSet) {
		t.Error("apply should not fire for sibling files")
	})
	require.NoError(t, err)
	require.NoError(t, pw.Start(context.Background()))
	defer pw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("x: 1\n"), 0644))

	time.Sleep(600 * time.Millisecond)
	assert.Zero(t, pw.Stats().Events)
}

func TestProbeWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.yaml")
	require.NoError(t, DefaultProbes().Save(path))

	pw, err := NewProbeWatcher(path, func(ProbeSet) {})
	require.NoError(t, err)
	require.NoError(t, pw.Start(context.Background()))

	pw.Stop()
	pw.Stop()
}
