package controls

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-viewstate"
)

// DefaultPathSeparator joins the values of a ValuePath.
const DefaultPathSeparator = "/"

// ErrNoPopulator is returned by Populate when no node up the tree has a
// Populator.
var ErrNoPopulator = errors.New("controls: no tree populator")

// TreePopulator adds the children of a populate-on-demand node.
type TreePopulator func(ctx context.Context, node *TreeNode) error

// TreeNode is one node of a tree. Its properties live in a bag; its children
// are positional slots of its saved state, so children added while tracking
// are recreated by LoadState.
type TreeNode struct {
	bag      *viewstate.Bag
	parent   *TreeNode
	children []*TreeNode
	tracking bool

	// PathSeparator is read from the root node.
	PathSeparator string

	// Populator, Expanded and Collapsed are looked up from the node towards
	// the root; the nearest non-nil one is used.
	Populator TreePopulator
	Expanded  func(*TreeNode)
	Collapsed func(*TreeNode)
}

// NewTreeNode returns a detached node.
func NewTreeNode(text, value string) *TreeNode {
	n := &TreeNode{bag: viewstate.NewBag(viewstate.WithName("treenode"))}
	if text != "" {
		n.bag.Set("Text", text)
	}
	if value != "" {
		n.bag.Set("Value", value)
	}
	return n
}

// Text falls back to Value and Value to Text.
func (n *TreeNode) Text() string {
	if v := viewstate.Value(n.bag, "Text", ""); v != "" {
		return v
	}
	return viewstate.Value(n.bag, "Value", "")
}

func (n *TreeNode) SetText(v string) { n.bag.Set("Text", v) }

func (n *TreeNode) Value() string {
	if v := viewstate.Value(n.bag, "Value", ""); v != "" {
		return v
	}
	return viewstate.Value(n.bag, "Text", "")
}

func (n *TreeNode) SetValue(v string) { n.bag.Set("Value", v) }

func (n *TreeNode) ToolTip() string            { return viewstate.Value(n.bag, "ToolTip", "") }
func (n *TreeNode) SetToolTip(v string)        { n.bag.Set("ToolTip", v) }
func (n *TreeNode) NavigateURL() string        { return viewstate.Value(n.bag, "NavigateURL", "") }
func (n *TreeNode) SetNavigateURL(v string)    { n.bag.Set("NavigateURL", v) }
func (n *TreeNode) Checked() bool              { return viewstate.Value(n.bag, "Checked", false) }
func (n *TreeNode) SetChecked(v bool)          { n.bag.Set("Checked", v) }
func (n *TreeNode) Selected() bool             { return viewstate.Value(n.bag, "Selected", false) }
func (n *TreeNode) SetSelected(v bool)         { n.bag.Set("Selected", v) }
func (n *TreeNode) PopulateOnDemand() bool     { return viewstate.Value(n.bag, "PopulateOnDemand", false) }
func (n *TreeNode) SetPopulateOnDemand(v bool) { n.bag.Set("PopulateOnDemand", v) }
func (n *TreeNode) Populated() bool            { return viewstate.Value(n.bag, "Populated", false) }

// IsExpanded reports the expansion state; known is false until Expand,
// Collapse or SetExpanded ran.
func (n *TreeNode) IsExpanded() (expanded, known bool) {
	raw, ok := n.bag.Get("Expanded")
	if !ok {
		return false, false
	}
	expanded, ok = raw.(bool)
	return expanded, ok
}

func (n *TreeNode) SetExpanded(v bool) { n.bag.Set("Expanded", v) }

// Parent returns the parent node, or nil for a root.
func (n *TreeNode) Parent() *TreeNode { return n.parent }

// ChildNodes returns the children in order.
func (n *TreeNode) ChildNodes() []*TreeNode { return slices.Clone(n.children) }

// Depth is 0 for a root.
func (n *TreeNode) Depth() int {
	depth := 0
	for p := n.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// AddChild appends child. A child added to a tracking node starts tracking
// with every entry dirty, so it is saved in full.
func (n *TreeNode) AddChild(child *TreeNode) *TreeNode {
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	if n.tracking {
		child.TrackState()
		child.setDirty()
	}
	return child
}

// RemoveChild detaches child. Removals are not carried by saved state.
func (n *TreeNode) RemoveChild(child *TreeNode) bool {
	i := slices.Index(n.children, child)
	if i < 0 {
		return false
	}
	n.children = slices.Delete(n.children, i, i+1)
	child.parent = nil
	return true
}

func (n *TreeNode) setDirty() {
	n.bag.SetDirty(true)
	for _, child := range n.children {
		child.setDirty()
	}
}

func (n *TreeNode) root() *TreeNode {
	root := n
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// ValuePath joins the values from the root down to n.
func (n *TreeNode) ValuePath() string {
	sep := n.root().PathSeparator
	if sep == "" {
		sep = DefaultPathSeparator
	}
	var parts []string
	for node := n; node != nil; node = node.parent {
		parts = append(parts, node.Value())
	}
	slices.Reverse(parts)
	return strings.Join(parts, sep)
}

// FindNode returns the node below or at n whose ValuePath is path.
func (n *TreeNode) FindNode(path string) *TreeNode {
	if n.ValuePath() == path {
		return n
	}
	for _, child := range n.children {
		if found := child.FindNode(path); found != nil {
			return found
		}
	}
	return nil
}

func (n *TreeNode) populator() TreePopulator {
	for node := n; node != nil; node = node.parent {
		if node.Populator != nil {
			return node.Populator
		}
	}
	return nil
}

func (n *TreeNode) expandedHook() func(*TreeNode) {
	for node := n; node != nil; node = node.parent {
		if node.Expanded != nil {
			return node.Expanded
		}
	}
	return nil
}

func (n *TreeNode) collapsedHook() func(*TreeNode) {
	for node := n; node != nil; node = node.parent {
		if node.Collapsed != nil {
			return node.Collapsed
		}
	}
	return nil
}

// Populate runs the populator once; later calls are no-ops.
func (n *TreeNode) Populate(ctx context.Context) error {
	if n.Populated() {
		return nil
	}
	populate := n.populator()
	if populate == nil {
		return ErrNoPopulator
	}
	if err := populate(ctx, n); err != nil {
		return err
	}
	n.bag.Set("Populated", true)
	return nil
}

// Expand populates a populate-on-demand node first, then expands it.
func (n *TreeNode) Expand(ctx context.Context) error {
	if n.PopulateOnDemand() {
		if err := n.Populate(ctx); err != nil {
			return err
		}
	}
	n.SetExpanded(true)
	if hook := n.expandedHook(); hook != nil {
		hook(n)
	}
	return nil
}

func (n *TreeNode) Collapse() {
	n.SetExpanded(false)
	if hook := n.collapsedHook(); hook != nil {
		hook(n)
	}
}

// ToggleExpand collapses an expanded node and expands any other.
func (n *TreeNode) ToggleExpand(ctx context.Context) error {
	if expanded, _ := n.IsExpanded(); expanded {
		n.Collapse()
		return nil
	}
	return n.Expand(ctx)
}

// ExpandAll expands n and every node below it.
func (n *TreeNode) ExpandAll(ctx context.Context) error {
	if err := n.Expand(ctx); err != nil {
		return err
	}
	for _, child := range n.children {
		if err := child.ExpandAll(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (n *TreeNode) composite() *viewstate.Composite {
	c := viewstate.NewComposite(n.bag, viewstate.WithName("treenode"))
	for i, child := range n.children {
		c.MustRegister(strconv.Itoa(i), child)
	}
	return c
}

func (n *TreeNode) TrackState() {
	n.tracking = true
	n.bag.TrackState()
	for _, child := range n.children {
		child.TrackState()
	}
}

func (n *TreeNode) IsTrackingState() bool { return n.tracking }

// SaveState saves the node's dirty properties plus one slot per child.
func (n *TreeNode) SaveState() (*viewstate.Snapshot, error) {
	return n.composite().SaveState()
}

// LoadState creates the children missing for the saved slots, then loads.
func (n *TreeNode) LoadState(snap *viewstate.Snapshot) error {
	if snap == nil {
		return nil
	}
	for len(n.children) < len(snap.Slots) {
		child := &TreeNode{bag: viewstate.NewBag(viewstate.WithName("treenode"))}
		child.parent = n
		n.children = append(n.children, child)
		if n.tracking {
			child.TrackState()
		}
	}
	return n.composite().LoadState(snap)
}
