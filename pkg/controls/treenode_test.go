package controls

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *TreeNode {
	root := NewTreeNode("Catalog", "catalog")
	books := root.AddChild(NewTreeNode("Books", "books"))
	books.AddChild(NewTreeNode("", "fiction"))
	root.AddChild(NewTreeNode("Music", ""))
	return root
}

func TestTreeNodeValuePath(t *testing.T) {
	root := sampleTree()
	fiction := root.FindNode("catalog/books/fiction")
	require.NotNil(t, fiction)
	assert.Equal(t, "fiction", fiction.Text())
	assert.Equal(t, 2, fiction.Depth())

	music := root.ChildNodes()[1]
	assert.Equal(t, "Music", music.Value())
	assert.Equal(t, "catalog/Music", music.ValuePath())

	root.PathSeparator = "|"
	assert.Equal(t, "catalog|books|fiction", fiction.ValuePath())
	assert.Nil(t, root.FindNode("catalog/books"))
}

func TestTreeNodeExpandTriState(t *testing.T) {
	node := NewTreeNode("n", "n")
	_, known := node.IsExpanded()
	assert.False(t, known)

	var events []string
	node.Expanded = func(n *TreeNode) { events = append(events, "expanded "+n.Value()) }
	node.Collapsed = func(n *TreeNode) { events = append(events, "collapsed "+n.Value()) }

	require.NoError(t, node.ToggleExpand(context.Background()))
	expanded, known := node.IsExpanded()
	assert.True(t, known)
	assert.True(t, expanded)

	require.NoError(t, node.ToggleExpand(context.Background()))
	expanded, _ = node.IsExpanded()
	assert.False(t, expanded)
	assert.Equal(t, []string{"expanded n", "collapsed n"}, events)
}

func TestTreeNodePopulateOnDemand(t *testing.T) {
	root := NewTreeNode("Root", "root")
	calls := 0
	root.Populator = func(_ context.Context, node *TreeNode) error {
		calls++
		for i := 0; i < 2; i++ {
			node.AddChild(NewTreeNode("", fmt.Sprintf("%s-%d", node.Value(), i)))
		}
		return nil
	}
	lazy := root.AddChild(NewTreeNode("Lazy", "lazy"))
	lazy.SetPopulateOnDemand(true)

	require.NoError(t, lazy.Expand(context.Background()))
	require.NoError(t, lazy.Expand(context.Background()))
	assert.Equal(t, 1, calls)
	assert.True(t, lazy.Populated())
	require.Len(t, lazy.ChildNodes(), 2)
	assert.Equal(t, "root/lazy/lazy-1", lazy.ChildNodes()[1].ValuePath())
}

func TestTreeNodePopulateErrors(t *testing.T) {
	node := NewTreeNode("x", "x")
	node.SetPopulateOnDemand(true)
	require.ErrorIs(t, node.Expand(context.Background()), ErrNoPopulator)
	_, known := node.IsExpanded()
	assert.False(t, known)

	boom := errors.New("boom")
	node.Populator = func(context.Context, *TreeNode) error { return boom }
	require.ErrorIs(t, node.Populate(context.Background()), boom)
	assert.False(t, node.Populated())
}

func TestTreeNodeStateRebuildsPopulatedChildren(t *testing.T) {
	root := sampleTree()
	root.TrackState()
	root.Populator = func(_ context.Context, node *TreeNode) error {
		node.AddChild(NewTreeNode("Jazz", "jazz"))
		return nil
	}
	music := root.ChildNodes()[1]
	music.SetPopulateOnDemand(true)
	require.NoError(t, music.Expand(context.Background()))
	root.FindNode("catalog/books/fiction").SetChecked(true)

	restored := sampleTree()
	snap := roundTrip(t, root, restored)
	require.Len(t, snap.Slots, 2)
	assert.Empty(t, snap.Entries)

	jazz := restored.FindNode("catalog/Music/jazz")
	require.NotNil(t, jazz)
	assert.Equal(t, "Jazz", jazz.Text())
	restoredMusic := restored.ChildNodes()[1]
	assert.True(t, restoredMusic.Populated())
	expanded, known := restoredMusic.IsExpanded()
	assert.True(t, known && expanded)
	assert.True(t, restored.FindNode("catalog/books/fiction").Checked())
}

func TestTreeNodeLoadRejectsMissingDeclaredChildren(t *testing.T) {
	root := sampleTree()
	root.TrackState()
	root.SetToolTip("top")
	snap, err := root.SaveState()
	require.NoError(t, err)

	bare := NewTreeNode("Catalog", "catalog")
	bare.AddChild(NewTreeNode("Books", "books"))
	bare.AddChild(NewTreeNode("Music", ""))
	bare.AddChild(NewTreeNode("Extra", "extra"))
	assert.Error(t, bare.LoadState(snap))
}
