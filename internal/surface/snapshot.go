package surface

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// Snapshot is a read-only Surface over a parsed HTML document, typically a
// lesson page saved from the browser. It lets `zysolver scan` classify and
// de-duplicate tasks offline and gives tests a cheap real-markup surface.
// All write operations return ErrReadOnly.
type Snapshot struct {
	root *html.Node
}

// NewSnapshot parses a document from r.
func NewSnapshot(r io.Reader) (*Snapshot, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Snapshot{root: root}, nil
}

// OpenSnapshot parses a document from a file.
func OpenSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return NewSnapshot(f)
}

// Find implements Surface.
func (s *Snapshot) Find(ctx context.Context, scope Node, selector string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := s.root
	if scope != nil {
		sn, ok := scope.(*snapshotNode)
		if !ok {
			return nil, fmt.Errorf("scope node is not from this surface")
		}
		root = sn.n
	}
	sel, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	var nodes []Node
	walkElements(root, func(n *html.Node) {
		if n == root {
			return
		}
		if sel.matches(n, root) {
			nodes = append(nodes, &snapshotNode{n: n, key: snapshotKey(n)})
		}
	})
	return nodes, nil
}

// Activate implements Surface.
func (s *Snapshot) Activate(ctx context.Context, n Node) error { return ErrReadOnly }

// CommitText implements Surface.
func (s *Snapshot) CommitText(ctx context.Context, n Node, text string) error { return ErrReadOnly }

// Transfer implements Surface.
func (s *Snapshot) Transfer(ctx context.Context, src, dst Node) error { return ErrReadOnly }

type snapshotNode struct {
	n   *html.Node
	key string
}

func (n *snapshotNode) Key() string { return n.key }

func (n *snapshotNode) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(h *html.Node) {
		if h.Type == html.TextNode {
			b.WriteString(h.Data)
		}
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n.n)
	return strings.Join(strings.Fields(b.String()), " "), nil
}

func (n *snapshotNode) HasClass(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return hasClass(n.n, name), nil
}

// Visible approximates rendering: snapshots carry no layout, so only the
// hidden attribute and inline display:none count as invisible.
func (n *snapshotNode) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, hidden := attrValue(n.n, "hidden"); hidden {
		return false, nil
	}
	if style, ok := attrValue(n.n, "style"); ok {
		compact := strings.ReplaceAll(style, " ", "")
		if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
			return false, nil
		}
	}
	return true, nil
}

func (n *snapshotNode) Attr(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	val, ok := attrValue(n.n, name)
	return val, ok, nil
}

func walkElements(root *html.Node, visit func(*html.Node)) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			visit(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, name string) bool {
	classes, ok := attrValue(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

func snapshotKey(n *html.Node) string {
	if id, ok := attrValue(n, "id"); ok && id != "" {
		return "#" + id
	}
	var path []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; {
		parent := cur.Parent
		if parent == nil || parent.Type != html.ElementNode {
			path = append([]string{cur.Data}, path...)
			break
		}
		idx := 0
		for sib := parent.FirstChild; sib != nil && sib != cur; sib = sib.NextSibling {
			if sib.Type == html.ElementNode {
				idx++
			}
		}
		path = append([]string{fmt.Sprintf("%s:%d", cur.Data, idx)}, path...)
		if id, ok := attrValue(parent, "id"); ok && id != "" {
			path = append([]string{"#" + id}, path...)
			break
		}
		cur = parent
	}
	return strings.Join(path, ">")
}

// The selector grammar below covers what the probe set uses: selector
// lists ("a, b"), descendant chains ("a b"), and compounds made of a tag,
// ids, classes, and [attr] / [attr=value] tests. Anything fancier belongs
// in the live surface, where the browser evaluates it.

type selectorList []selectorChain

type selectorChain []compound

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrTest
}

type attrTest struct {
	key      string
	value    string
	hasValue bool
}

func parseSelector(s string) (selectorList, error) {
	var list selectorList
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty selector in %q", s)
		}
		if strings.ContainsAny(part, "+~>") {
			return nil, fmt.Errorf("unsupported combinator in %q", part)
		}
		var chain selectorChain
		for _, token := range strings.Fields(part) {
			c, err := parseCompound(token)
			if err != nil {
				return nil, err
			}
			chain = append(chain, c)
		}
		list = append(list, chain)
	}
	return list, nil
}

func parseCompound(token string) (compound, error) {
	var c compound
	rest := token
	for rest != "" {
		switch rest[0] {
		case '.':
			name, tail := readIdent(rest[1:])
			if name == "" {
				return c, fmt.Errorf("bad class in %q", token)
			}
			c.classes = append(c.classes, name)
			rest = tail
		case '#':
			name, tail := readIdent(rest[1:])
			if name == "" {
				return c, fmt.Errorf("bad id in %q", token)
			}
			c.id = name
			rest = tail
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute in %q", token)
			}
			body := rest[1:end]
			key, val, hasVal := strings.Cut(body, "=")
			key = strings.TrimSpace(key)
			if key == "" {
				return c, fmt.Errorf("bad attribute in %q", token)
			}
			val = strings.Trim(strings.TrimSpace(val), `"'`)
			c.attrs = append(c.attrs, attrTest{key: key, value: val, hasValue: hasVal})
			rest = rest[end+1:]
		default:
			name, tail := readIdent(rest)
			if name == "" {
				return c, fmt.Errorf("bad tag in %q", token)
			}
			c.tag = strings.ToLower(name)
			rest = tail
		}
	}
	return c, nil
}

func readIdent(s string) (ident, rest string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '#', '[':
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func (list selectorList) matches(n *html.Node, root *html.Node) bool {
	for _, chain := range list {
		if chain.matches(n, root) {
			return true
		}
	}
	return false
}

// matches checks the last compound against n, then walks ancestors toward
// root looking for the remaining compounds in order.
func (chain selectorChain) matches(n *html.Node, root *html.Node) bool {
	if len(chain) == 0 {
		return false
	}
	if !chain[len(chain)-1].matches(n) {
		return false
	}
	remaining := chain[:len(chain)-1]
	cur := n.Parent
	for len(remaining) > 0 {
		if cur == nil {
			return false
		}
		if cur.Type == html.ElementNode && remaining[len(remaining)-1].matches(cur) {
			remaining = remaining[:len(remaining)-1]
		}
		if cur == root {
			break
		}
		cur = cur.Parent
	}
	return len(remaining) == 0
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != strings.ToLower(n.Data) {
		return false
	}
	if c.id != "" {
		id, ok := attrValue(n, "id")
		if !ok || id != c.id {
			return false
		}
	}
	for _, class := range c.classes {
		if !hasClass(n, class) {
			return false
		}
	}
	for _, at := range c.attrs {
		val, ok := attrValue(n, at.key)
		if !ok {
			return false
		}
		if at.hasValue && val != at.value {
			return false
		}
	}
	return true
}
