//go:build integration

package surface_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// fixturePage wires plain DOM handlers the way the real site does: state
// changes only happen when the synthetic events arrive with the right
// shape, so a passing test means the dispatch actually landed.
const fixturePage = `
<html>
<body>
	<button id="btn1">Choice A</button>
	<div id="click-log"></div>

	<input id="inp1" type="text" />
	<div id="typed"></div>

	<div id="tile1" draggable="true">mammal</div>
	<div id="slot1"></div>

	<script>
		const btn = document.getElementById('btn1');
		btn.addEventListener('click', () => {
			btn.classList.add('chosen');
			document.getElementById('click-log').textContent = 'clicked';
		});

		const inp = document.getElementById('inp1');
		inp.addEventListener('input', () => {
			document.getElementById('typed').textContent = inp.value;
		});

		// The drop only counts when both legs carry the same DataTransfer,
		// which is what the page's drag bookkeeping checks in production.
		const tile = document.getElementById('tile1');
		const slot = document.getElementById('slot1');
		let session = null;
		tile.addEventListener('dragstart', (e) => { session = e.dataTransfer; });
		slot.addEventListener('dragover', (e) => e.preventDefault());
		slot.addEventListener('drop', (e) => {
			if (session !== null && e.dataTransfer === session) {
				slot.appendChild(tile);
				slot.classList.add('filled');
			}
		});
	</script>
</body>
</html>`

func serveFixture(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintln(w, fixturePage)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func openFixture(t *testing.T, ctx context.Context, url string) *surface.Live {
	t.Helper()
	live := surface.NewLive(surface.LiveOptions{Headless: true})
	require.NoError(t, live.Connect(ctx), "Failed to launch browser")
	t.Cleanup(func() {
		if err := live.Close(); err != nil {
			t.Logf("Close error: %v", err)
		}
	})
	require.NoError(t, live.Open(ctx, url), "Failed to open fixture page")
	return live
}

func findOne(t *testing.T, ctx context.Context, live *surface.Live, selector string) surface.Node {
	t.Helper()
	nodes, err := live.Find(ctx, nil, selector)
	require.NoError(t, err)
	require.Len(t, nodes, 1, "expected exactly one %q", selector)
	return nodes[0]
}

func TestLive_Activate_Integration(t *testing.T) {
	ts := serveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	live := openFixture(t, ctx, ts.URL)

	// 1. Fire a synthetic click on the button
	btn := findOne(t, ctx, live, "#btn1")
	require.NoError(t, live.Activate(ctx, btn), "Failed to activate button")

	// 2. The page's own click handler must have run
	require.Eventually(t, func() bool {
		chosen, err := btn.HasClass(ctx, "chosen")
		if err != nil || !chosen {
			return false
		}
		logs, err := live.Find(ctx, nil, "#click-log")
		if err != nil || len(logs) != 1 {
			return false
		}
		text, err := logs[0].Text(ctx)
		return err == nil && text == "clicked"
	}, 10*time.Second, 100*time.Millisecond, "click handler never observed the synthetic click")
}

func TestLive_CommitText_Integration(t *testing.T) {
	ts := serveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	live := openFixture(t, ctx, ts.URL)

	// 1. Commit text into the input
	inp := findOne(t, ctx, live, "#inp1")
	require.NoError(t, live.CommitText(ctx, inp, "aardvark"), "Failed to commit text")

	// 2. The input handler mirrors the value, proving the input event fired
	// after the value landed
	require.Eventually(t, func() bool {
		typed, err := live.Find(ctx, nil, "#typed")
		if err != nil || len(typed) != 1 {
			return false
		}
		text, err := typed[0].Text(ctx)
		return err == nil && text == "aardvark"
	}, 10*time.Second, 100*time.Millisecond, "input handler never saw the committed value")
}

func TestLive_Transfer_Integration(t *testing.T) {
	ts := serveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	live := openFixture(t, ctx, ts.URL)

	// 1. Drag the tile into the slot
	tile := findOne(t, ctx, live, "#tile1")
	slot := findOne(t, ctx, live, "#slot1")
	require.NoError(t, live.Transfer(ctx, tile, slot), "Failed to transfer tile")

	// 2. The drop handler re-parents the tile only when dragstart and drop
	// shared one DataTransfer, so a filled slot proves the full handshake
	require.Eventually(t, func() bool {
		filled, err := slot.HasClass(ctx, "filled")
		if err != nil || !filled {
			return false
		}
		inside, err := live.Find(ctx, slot, "#tile1")
		return err == nil && len(inside) == 1
	}, 10*time.Second, 100*time.Millisecond, "drop handler never accepted the drag handshake")
}
