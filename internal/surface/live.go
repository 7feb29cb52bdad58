package surface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// LiveOptions holds the browser knobs for a live surface.
type LiveOptions struct {
	// DebuggerURL attaches to an already-running Chrome (the usual path:
	// the user is logged in to zyBooks there). Empty launches a fresh one.
	DebuggerURL string
	// Bin is the Chrome binary for launches. Empty lets the launcher look
	// one up.
	Bin string
	// ExtraFlags are raw Chrome flags, "name" or "name=value".
	ExtraFlags []string
	Headless   bool
	// UserDataDir preserves the zyBooks login across launches.
	UserDataDir       string
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
}

func (o LiveOptions) navigationTimeout() time.Duration {
	if o.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return o.NavigationTimeout
}

// Live is the rod-backed Surface for a real lesson page. All writes are
// dispatched as synthetic DOM events inside the page, the same input the
// site's own handlers receive from a user, so no trusted-input plumbing is
// involved and elements behind overlays still receive their events.
type Live struct {
	opts LiveOptions

	mu         sync.RWMutex
	browser    *rod.Browser
	page       *rod.Page
	controlURL string
}

// NewLive creates an unconnected live surface.
func NewLive(opts LiveOptions) *Live {
	if opts.ViewportWidth == 0 {
		opts.ViewportWidth = 1920
	}
	if opts.ViewportHeight == 0 {
		opts.ViewportHeight = 1080
	}
	return &Live{opts: opts}
}

// Connect attaches to the configured debugger URL or launches Chrome.
// Calling it on a healthy connection is a no-op.
func (l *Live) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.browser != nil {
		if _, err := l.browser.Version(); err == nil {
			return nil
		}
		_ = l.browser.Close()
		l.browser = nil
		l.page = nil
		l.controlURL = ""
	}

	controlURL := l.opts.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(l.opts.Headless)
		if l.opts.Bin != "" {
			launch = launch.Bin(l.opts.Bin)
		}
		if l.opts.UserDataDir != "" {
			launch = launch.UserDataDir(l.opts.UserDataDir)
		}
		for _, rawFlag := range l.opts.ExtraFlags {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("failed to launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}

	l.browser = browser
	l.controlURL = controlURL
	return nil
}

// ControlURL returns the WebSocket debugger URL of the connected browser.
func (l *Live) ControlURL() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.controlURL
}

// Open points the surface at a lesson. With a URL it opens a new page and
// navigates; with an empty URL it adopts the browser's active page, which
// is how a user hands over a lesson they already have on screen.
func (l *Live) Open(ctx context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.browser == nil {
		return errors.New("browser not connected")
	}

	if url == "" {
		pages, err := l.browser.Pages()
		if err != nil {
			return fmt.Errorf("failed to list pages: %w", err)
		}
		if len(pages) == 0 {
			return errors.New("no open pages to adopt")
		}
		l.page = pages.First()
		return nil
	}

	page, err := l.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             l.opts.ViewportWidth,
		Height:            l.opts.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}
	if err := page.Context(ctx).Timeout(l.opts.navigationTimeout()).WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	l.page = page
	return nil
}

// Close shuts the browser down. Attached browsers are left running; only
// the connection is dropped.
func (l *Live) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if l.browser != nil {
		if l.opts.DebuggerURL == "" {
			err = l.browser.Close()
		}
		l.browser = nil
	}
	l.page = nil
	l.controlURL = ""
	return err
}

func (l *Live) currentPage() (*rod.Page, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.page == nil {
		return nil, errors.New("no page open")
	}
	return l.page, nil
}

// Find implements Surface. It evaluates the selector immediately and
// returns whatever is attached right now; retry lives in the caller.
func (l *Live) Find(ctx context.Context, scope Node, selector string) ([]Node, error) {
	var els rod.Elements
	var err error
	if scope == nil {
		page, perr := l.currentPage()
		if perr != nil {
			return nil, perr
		}
		els, err = page.Context(ctx).Elements(selector)
	} else {
		ln, ok := scope.(*liveNode)
		if !ok {
			return nil, fmt.Errorf("scope node is not from this surface")
		}
		els, err = ln.el.Context(ctx).Elements(selector)
	}
	if err != nil {
		return nil, mapLiveErr(err)
	}

	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		key, kerr := liveKey(ctx, el)
		if kerr != nil {
			return nil, mapLiveErr(kerr)
		}
		nodes = append(nodes, &liveNode{el: el, key: key})
	}
	return nodes, nil
}

// Activate implements Surface by firing a synthetic click on the node.
func (l *Live) Activate(ctx context.Context, n Node) error {
	ln, err := asLiveNode(n)
	if err != nil {
		return err
	}
	_, err = ln.el.Context(ctx).Eval(`() => {
		this.scrollIntoView({ block: 'center', behavior: 'instant' });
		this.click();
	}`)
	return mapLiveErr(err)
}

// CommitText implements Surface. The value is written through the
// prototype setter so framework-managed inputs see the change, then the
// input and change events their handlers subscribe to are dispatched.
func (l *Live) CommitText(ctx context.Context, n Node, text string) error {
	ln, err := asLiveNode(n)
	if err != nil {
		return err
	}
	_, err = ln.el.Context(ctx).Eval(`(text) => {
		this.focus();
		const proto = this.tagName === 'TEXTAREA'
			? window.HTMLTextAreaElement.prototype
			: window.HTMLInputElement.prototype;
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) {
			desc.set.call(this, text);
		} else {
			this.value = text;
		}
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
		this.blur();
	}`, text)
	return mapLiveErr(err)
}

// Transfer implements Surface. Both legs of the drag handshake run in one
// evaluation sharing one DataTransfer, so the page's drag bookkeeping sees
// a complete gesture even if the solve is cancelled right after.
func (l *Live) Transfer(ctx context.Context, src, dst Node) error {
	srcNode, err := asLiveNode(src)
	if err != nil {
		return err
	}
	dstNode, err := asLiveNode(dst)
	if err != nil {
		return err
	}
	page, err := l.currentPage()
	if err != nil {
		return err
	}
	_, err = page.Context(ctx).Evaluate(rod.Eval(`(src, dst) => {
		const dt = new DataTransfer();
		const fire = (el, type) => {
			const ev = new DragEvent(type, { bubbles: true, cancelable: true });
			Object.defineProperty(ev, 'dataTransfer', { value: dt });
			el.dispatchEvent(ev);
		};
		src.scrollIntoView({ block: 'center', behavior: 'instant' });
		fire(src, 'dragstart');
		fire(dst, 'dragenter');
		fire(dst, 'dragover');
		fire(dst, 'drop');
		fire(src, 'dragend');
	}`, srcNode.el.Object, dstNode.el.Object))
	return mapLiveErr(err)
}

// liveNode wraps a rod element handle.
type liveNode struct {
	el  *rod.Element
	key string
}

func asLiveNode(n Node) (*liveNode, error) {
	ln, ok := n.(*liveNode)
	if !ok {
		return nil, fmt.Errorf("node is not from this surface")
	}
	return ln, nil
}

func (n *liveNode) Key() string { return n.key }

func (n *liveNode) Text(ctx context.Context) (string, error) {
	text, err := n.el.Context(ctx).Text()
	if err != nil {
		return "", mapLiveErr(err)
	}
	return strings.TrimSpace(text), nil
}

func (n *liveNode) HasClass(ctx context.Context, name string) (bool, error) {
	res, err := n.el.Context(ctx).Eval(`(c) => this.classList.contains(c)`, name)
	if err != nil {
		return false, mapLiveErr(err)
	}
	return res.Value.Bool(), nil
}

func (n *liveNode) Visible(ctx context.Context) (bool, error) {
	visible, err := n.el.Context(ctx).Visible()
	if err != nil {
		return false, mapLiveErr(err)
	}
	return visible, nil
}

func (n *liveNode) Attr(ctx context.Context, name string) (string, bool, error) {
	val, err := n.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, mapLiveErr(err)
	}
	if val == nil {
		return "", false, nil
	}
	return *val, true, nil
}

// liveKey derives the de-duplication key: the element id when the page
// assigns one, otherwise a short structural path anchored at the nearest
// ancestor with an id.
func liveKey(ctx context.Context, el *rod.Element) (string, error) {
	res, err := el.Context(ctx).Eval(`() => {
		if (this.id) return '#' + this.id;
		const path = [];
		let node = this;
		while (node && node.nodeType === 1) {
			const parent = node.parentElement;
			if (!parent) {
				path.unshift(node.tagName.toLowerCase());
				break;
			}
			const idx = Array.prototype.indexOf.call(parent.children, node);
			path.unshift(node.tagName.toLowerCase() + ':' + idx);
			if (parent.id) {
				path.unshift('#' + parent.id);
				break;
			}
			node = parent;
		}
		return path.join('>');
	}`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// mapLiveErr folds the ways a rod handle dies mid-use into ErrStale so the
// layer above can treat them uniformly as "re-scan and retry".
func mapLiveErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, marker := range []string{
		"Could not find node",
		"Cannot find context",
		"Object couldn't be returned by value",
		"Session with given id not found",
		"detached",
		"Node is detached",
	} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
	}
	return err
}
