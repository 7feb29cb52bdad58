// Package surfacetest provides a scripted in-memory Surface for exercising
// solvers without a browser. Nodes are registered against literal selector
// strings, actions are recorded in a journal, and an optional AfterAction
// hook lets a test play the page's side of the protocol: flip feedback
// classes, fill the chevron, detach nodes mid-flight.
package surfacetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// Action is one recorded write against the fake.
type Action struct {
	Kind string // "activate", "commit", "transfer"
	Key  string // acted-on node (transfer: source)
	Dst  string // transfer destination
	Text string // committed text
	Seq  int    // 1-based global sequence number
}

// Fake implements surface.Surface. Selector matching is exact-string: a
// node is returned by Find only for selectors it was registered with,
// which keeps tests independent of real CSS.
type Fake struct {
	mu      sync.Mutex
	nodes   map[string]*FakeNode
	order   []*FakeNode
	journal []Action

	// AfterAction, when set, runs synchronously after each recorded write,
	// with the fake's lock released. Tests use it to script reactions.
	AfterAction func(Action)
}

// New creates an empty fake surface.
func New() *Fake {
	return &Fake{nodes: make(map[string]*FakeNode)}
}

// Opt configures a node at registration.
type Opt func(*FakeNode)

// Sel registers the node under the given literal selectors.
func Sel(selectors ...string) Opt {
	return func(n *FakeNode) { n.selectors = append(n.selectors, selectors...) }
}

// Text sets the node's text content.
func Text(t string) Opt {
	return func(n *FakeNode) { n.text = t }
}

// Classes sets initial CSS classes.
func Classes(cs ...string) Opt {
	return func(n *FakeNode) {
		for _, c := range cs {
			n.classes[c] = true
		}
	}
}

// Attr sets an attribute.
func Attr(k, v string) Opt {
	return func(n *FakeNode) { n.attrs[k] = v }
}

// Hidden registers the node invisible.
func Hidden() Opt {
	return func(n *FakeNode) { n.visible = false }
}

// Add registers a node at the document root. Keys must be unique; reusing
// one panics, since that is always a test bug.
func (f *Fake) Add(key string, opts ...Opt) *FakeNode {
	return f.AddUnder("", key, opts...)
}

// AddUnder registers a node as a descendant of parentKey ("" for root).
func (f *Fake) AddUnder(parentKey, key string, opts ...Opt) *FakeNode {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.nodes[key]; exists {
		panic(fmt.Sprintf("surfacetest: duplicate node key %q", key))
	}
	var parent *FakeNode
	if parentKey != "" {
		parent = f.nodes[parentKey]
		if parent == nil {
			panic(fmt.Sprintf("surfacetest: unknown parent key %q", parentKey))
		}
	}
	n := &FakeNode{
		f:       f,
		key:     key,
		parent:  parent,
		visible: true,
		classes: make(map[string]bool),
		attrs:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(n)
	}
	f.nodes[key] = n
	f.order = append(f.order, n)
	return n
}

// Node returns a registered node, panicking on unknown keys.
func (f *Fake) Node(key string) *FakeNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.nodes[key]
	if n == nil {
		panic(fmt.Sprintf("surfacetest: unknown node key %q", key))
	}
	return n
}

// Journal returns a copy of all recorded actions in order.
func (f *Fake) Journal() []Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Action, len(f.journal))
	copy(out, f.journal)
	return out
}

// Actions counts recorded actions of one kind against one node key.
func (f *Fake) Actions(kind, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.journal {
		if a.Kind == kind && a.Key == key {
			count++
		}
	}
	return count
}

// Activations counts activate actions against key.
func (f *Fake) Activations(key string) int { return f.Actions("activate", key) }

// ActionCount returns the total number of recorded writes.
func (f *Fake) ActionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.journal)
}

func (f *Fake) record(a Action) Action {
	f.mu.Lock()
	a.Seq = len(f.journal) + 1
	f.journal = append(f.journal, a)
	hook := f.AfterAction
	f.mu.Unlock()
	if hook != nil {
		hook(a)
	}
	return a
}

// Find implements surface.Surface.
func (f *Fake) Find(ctx context.Context, scope surface.Node, selector string) ([]surface.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var under *FakeNode
	if scope != nil {
		fn, ok := scope.(*FakeNode)
		if !ok {
			return nil, fmt.Errorf("scope node is not from this surface")
		}
		if fn.isGone() {
			return nil, fmt.Errorf("%w: %s", surface.ErrStale, fn.key)
		}
		under = fn
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []surface.Node
	for _, n := range f.order {
		if n.gone || !n.hasSelector(selector) {
			continue
		}
		if under != nil && !n.isDescendantOf(under) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Activate implements surface.Surface.
func (f *Fake) Activate(ctx context.Context, n surface.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := f.own(n)
	if err != nil {
		return err
	}
	if fn.FailActivate != nil {
		return fn.FailActivate
	}
	f.record(Action{Kind: "activate", Key: fn.key})
	return nil
}

// CommitText implements surface.Surface.
func (f *Fake) CommitText(ctx context.Context, n surface.Node, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn, err := f.own(n)
	if err != nil {
		return err
	}
	if fn.FailCommit != nil {
		return fn.FailCommit
	}
	f.mu.Lock()
	fn.text = text
	fn.attrs["value"] = text
	f.mu.Unlock()
	f.record(Action{Kind: "commit", Key: fn.key, Text: text})
	return nil
}

// Transfer implements surface.Surface. The source node is re-parented
// under the destination, so occupant queries scoped to the destination see
// it afterward, mirroring how the real page moves a dragged tile.
func (f *Fake) Transfer(ctx context.Context, src, dst surface.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fsrc, err := f.own(src)
	if err != nil {
		return err
	}
	fdst, err := f.own(dst)
	if err != nil {
		return err
	}
	f.mu.Lock()
	fsrc.parent = fdst
	f.mu.Unlock()
	f.record(Action{Kind: "transfer", Key: fsrc.key, Dst: fdst.key})
	return nil
}

func (f *Fake) own(n surface.Node) (*FakeNode, error) {
	fn, ok := n.(*FakeNode)
	if !ok {
		return nil, fmt.Errorf("node is not from this surface")
	}
	if fn.isGone() {
		return nil, fmt.Errorf("%w: %s", surface.ErrStale, fn.key)
	}
	return fn, nil
}

// FakeNode implements surface.Node with scriptable state.
type FakeNode struct {
	f         *Fake
	key       string
	parent    *FakeNode
	selectors []string
	text      string
	attrs     map[string]string
	classes   map[string]bool
	visible   bool
	gone      bool

	// visibleSeq and classSeq, when non-empty, supply the next answers to
	// Visible and HasClass one call at a time before the steady state
	// applies. They script flicker, e.g. feedback that vanishes between
	// the first and second confirmation poll.
	visibleSeq []bool
	classSeq   map[string][]bool

	// FailActivate and FailCommit, when set, are returned by the
	// corresponding write instead of recording it.
	FailActivate error
	FailCommit   error
}

func (n *FakeNode) hasSelector(sel string) bool {
	for _, s := range n.selectors {
		if s == sel {
			return true
		}
	}
	return false
}

func (n *FakeNode) isDescendantOf(ancestor *FakeNode) bool {
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

func (n *FakeNode) isGone() bool {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	return n.gone
}

// Key implements surface.Node.
func (n *FakeNode) Key() string { return n.key }

// Text implements surface.Node.
func (n *FakeNode) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	if n.gone {
		return "", fmt.Errorf("%w: %s", surface.ErrStale, n.key)
	}
	return n.text, nil
}

// HasClass implements surface.Node.
func (n *FakeNode) HasClass(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	if n.gone {
		return false, fmt.Errorf("%w: %s", surface.ErrStale, n.key)
	}
	if seq := n.classSeq[name]; len(seq) > 0 {
		v := seq[0]
		n.classSeq[name] = seq[1:]
		return v, nil
	}
	return n.classes[name], nil
}

// Visible implements surface.Node.
func (n *FakeNode) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	if n.gone {
		return false, fmt.Errorf("%w: %s", surface.ErrStale, n.key)
	}
	if len(n.visibleSeq) > 0 {
		v := n.visibleSeq[0]
		n.visibleSeq = n.visibleSeq[1:]
		return v, nil
	}
	return n.visible, nil
}

// Attr implements surface.Node.
func (n *FakeNode) Attr(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	if n.gone {
		return "", false, fmt.Errorf("%w: %s", surface.ErrStale, n.key)
	}
	v, ok := n.attrs[name]
	return v, ok, nil
}

// SetVisible changes the node's steady visibility.
func (n *FakeNode) SetVisible(v bool) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	n.visible = v
}

// ScriptVisible queues one-shot answers for upcoming Visible calls.
func (n *FakeNode) ScriptVisible(seq ...bool) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	n.visibleSeq = append(n.visibleSeq, seq...)
}

// AddClass adds a CSS class.
func (n *FakeNode) AddClass(name string) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	n.classes[name] = true
}

// RemoveClass removes a CSS class.
func (n *FakeNode) RemoveClass(name string) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	delete(n.classes, name)
}

// ScriptClass queues one-shot answers for upcoming HasClass(name) calls.
func (n *FakeNode) ScriptClass(name string, seq ...bool) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	if n.classSeq == nil {
		n.classSeq = make(map[string][]bool)
	}
	n.classSeq[name] = append(n.classSeq[name], seq...)
}

// SetText changes the node's text content.
func (n *FakeNode) SetText(t string) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	n.text = t
}

// Detach marks the node stale: Find stops returning it and every method
// fails with surface.ErrStale, the way a re-rendered page kills handles.
func (n *FakeNode) Detach() {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	n.gone = true
}

// Reparent moves the node under a new parent ("" for root). Tests use it
// to put a dragged tile back in the bank when scripting a reset.
func (n *FakeNode) Reparent(parentKey string) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	if parentKey == "" {
		n.parent = nil
		return
	}
	p := n.f.nodes[parentKey]
	if p == nil {
		panic(fmt.Sprintf("surfacetest: unknown parent key %q", parentKey))
	}
	n.parent = p
}
