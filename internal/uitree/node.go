// Package uitree parses uiautomator hierarchy dumps into domain.UiNode trees.
package uitree

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// ErrNoBounds is returned when a node without usable bounds is activated.
var ErrNoBounds = errors.New("node has no tappable bounds")

// Tapper performs a tap at screen coordinates.
type Tapper interface {
	Tap(ctx context.Context, x, y int) error
}

// xmlNode mirrors one <node> element of a uiautomator dump.
type xmlNode struct {
	Text        string    `xml:"text,attr"`
	ResourceID  string    `xml:"resource-id,attr"`
	Class       string    `xml:"class,attr"`
	Package     string    `xml:"package,attr"`
	ContentDesc string    `xml:"content-desc,attr"`
	Clickable   string    `xml:"clickable,attr"`
	Enabled     string    `xml:"enabled,attr"`
	Bounds      string    `xml:"bounds,attr"`
	Nodes       []xmlNode `xml:"node"`
}

type xmlHierarchy struct {
	XMLName xml.Name  `xml:"hierarchy"`
	Nodes   []xmlNode `xml:"node"`
}

// Bounds is a node rectangle in screen pixels.
type Bounds struct {
	X1, Y1, X2, Y2 int
}

var boundsPattern = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// ParseBounds parses the "[x1,y1][x2,y2]" form used by uiautomator.
func ParseBounds(s string) (Bounds, error) {
	m := boundsPattern.FindStringSubmatch(s)
	if len(m) != 5 {
		return Bounds{}, fmt.Errorf("invalid bounds format: %q", s)
	}
	var v [4]int
	for i := range v {
		v[i], _ = strconv.Atoi(m[i+1])
	}
	return Bounds{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

// Center returns the center point of the bounds.
func (b Bounds) Center() (int, int) {
	return b.X1 + (b.X2-b.X1)/2, b.Y1 + (b.Y2-b.Y1)/2
}

// Empty reports whether the rectangle has no area.
func (b Bounds) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Node is a parsed snapshot node. It implements domain.UiNode.
type Node struct {
	resourceID  string
	text        string
	contentDesc string
	className   string
	pkg         string
	enabled     bool
	clickable   bool
	bounds      Bounds
	boundsOK    bool
	children    []*Node
	tapper      Tapper
}

func (n *Node) ResourceID() string  { return n.resourceID }
func (n *Node) Text() string        { return n.text }
func (n *Node) ContentDesc() string { return n.contentDesc }
func (n *Node) ClassName() string   { return n.className }
func (n *Node) Package() string     { return n.pkg }
func (n *Node) Enabled() bool       { return n.enabled }
func (n *Node) Clickable() bool     { return n.clickable }
func (n *Node) Bounds() Bounds      { return n.bounds }

// IsNil lets callers holding a domain.UiNode detect a typed nil.
func (n *Node) IsNil() bool { return n == nil }

// Children returns the child nodes in document order.
func (n *Node) Children() []domain.UiNode {
	out := make([]domain.UiNode, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// Activate taps the center of the node.
func (n *Node) Activate(ctx context.Context) error {
	if n.tapper == nil {
		return errors.New("node is detached from a device")
	}
	if !n.boundsOK || n.bounds.Empty() {
		return ErrNoBounds
	}
	x, y := n.bounds.Center()
	return n.tapper.Tap(ctx, x, y)
}

// Walk visits n and its descendants in pre-order until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Parse builds a tree from a uiautomator dump. Activating any node taps
// through tapper. A dump with several top-level nodes gets a synthetic root.
func Parse(data []byte, tapper Tapper) (*Node, error) {
	cleaned := Clean(string(data))
	if cleaned == "" {
		return nil, errors.New("empty hierarchy dump")
	}

	var h xmlHierarchy
	if err := xml.Unmarshal([]byte(cleaned), &h); err != nil {
		return nil, fmt.Errorf("failed to parse UI XML (length: %d): %w", len(cleaned), err)
	}
	if len(h.Nodes) == 0 {
		return nil, errors.New("hierarchy has no nodes")
	}

	if len(h.Nodes) == 1 {
		return build(h.Nodes[0], tapper), nil
	}
	root := &Node{
		className: "android.view.View",
		pkg:       h.Nodes[0].Package,
		tapper:    tapper,
	}
	for _, x := range h.Nodes {
		root.children = append(root.children, build(x, tapper))
	}
	return root, nil
}

// Clean trims adb noise around the XML document and repairs bare
// ampersands that some devices leave unescaped.
func Clean(raw string) string {
	start := strings.Index(raw, "<?xml")
	if start == -1 {
		start = strings.Index(raw, "<hierarchy")
	}
	if start == -1 {
		return ""
	}
	raw = raw[start:]
	if end := strings.LastIndex(raw, ">"); end != -1 {
		raw = raw[:end+1]
	}

	raw = strings.ReplaceAll(raw, "&", "&amp;")
	for _, entity := range []string{"amp;", "lt;", "gt;", "quot;", "apos;", "#"} {
		raw = strings.ReplaceAll(raw, "&amp;"+entity, "&"+entity)
	}
	return raw
}

func build(x xmlNode, tapper Tapper) *Node {
	n := &Node{
		resourceID:  x.ResourceID,
		text:        x.Text,
		contentDesc: x.ContentDesc,
		className:   x.Class,
		pkg:         x.Package,
		enabled:     x.Enabled == "true",
		clickable:   x.Clickable == "true",
		tapper:      tapper,
	}
	if b, err := ParseBounds(x.Bounds); err == nil {
		n.bounds = b
		n.boundsOK = true
	}
	for _, c := range x.Nodes {
		n.children = append(n.children, build(c, tapper))
	}
	return n
}

// Ensure Node implements domain.UiNode.
var _ domain.UiNode = (*Node)(nil)
