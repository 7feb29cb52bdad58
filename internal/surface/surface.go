// Package surface abstracts the zyBooks lesson DOM behind a small probe
// contract so the solving engine never touches a browser API directly.
// Two implementations exist: Live (a go-rod driven Chrome page) and
// Snapshot (a read-only parse of a saved lesson page). The write side is
// deliberately fire-and-forget: simulated input is dispatched and the
// engine observes the outcome separately by polling the read side.
package surface

import (
	"context"
	"errors"
)

var (
	// ErrStale reports that a node was detached from the page between
	// discovery and use. Callers recover by re-scanning; it is never fatal.
	ErrStale = errors.New("node is no longer attached to the surface")

	// ErrMissingProbe reports that structure the probe set expects is absent
	// for a task instance. The instance is skipped, not the run.
	ErrMissingProbe = errors.New("expected structure not found on the surface")

	// ErrReadOnly is returned by write operations on snapshot surfaces.
	ErrReadOnly = errors.New("surface is read-only")
)

// Node is a handle to one element of the surface. Handles are cheap and
// plentiful: every scan produces fresh ones, and none survive a page
// mutation reliably. Any method may return ErrStale.
type Node interface {
	// Key returns a stable identity for de-duplication: the element id when
	// the page assigns one, otherwise a structural path. Two discoveries of
	// the same logical element share a Key even when the handles differ.
	Key() string

	// Text returns the rendered text content, whitespace-trimmed.
	Text(ctx context.Context) (string, error)

	// HasClass reports whether the element currently carries the CSS class.
	HasClass(ctx context.Context, name string) (bool, error)

	// Visible reports whether the element is rendered and displayed.
	Visible(ctx context.Context) (bool, error)

	// Attr returns the value of an attribute and whether it is present.
	Attr(ctx context.Context, name string) (string, bool, error)
}

// Surface is the full read/write contract. Find never waits: zero matches is
// a valid answer, and the poll-verify loop above this layer supplies all
// retry behavior. The three write calls are the entire input vocabulary the
// engine needs: activation, text commit, and the paired drag-transfer
// handshake.
type Surface interface {
	// Find returns every node under scope matching the CSS selector, in
	// document order. A nil scope searches the whole document.
	Find(ctx context.Context, scope Node, selector string) ([]Node, error)

	// Activate simulates selecting or clicking the node.
	Activate(ctx context.Context, n Node) error

	// CommitText focuses the node, replaces its value with text, and fires
	// the input events the page's handlers listen for.
	CommitText(ctx context.Context, n Node, text string) error

	// Transfer simulates dragging src onto dst as one handshake: a
	// transfer-initiation event on src carrying a shared transfer medium,
	// then completion events on dst referencing the same medium. Dispatching
	// either leg alone leaves the page's drag bookkeeping inconsistent, so
	// the whole handshake is issued as a unit.
	Transfer(ctx context.Context, src, dst Node) error
}

// First returns the first match for selector under scope, or ErrMissingProbe
// when there is none.
func First(ctx context.Context, s Surface, scope Node, selector string) (Node, error) {
	nodes, err := s.Find(ctx, scope, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrMissingProbe
	}
	return nodes[0], nil
}
