package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/appscope/appscope/pkg/tree"
)

func newTestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(nil))
}

func appFixture() *tree.Node {
	root := tree.NewLeaf(tree.CategoryApplication, "Billing")
	root.ObjectID = "obj-1"

	owners := tree.NewLazy(tree.CategoryOwners, "Owners")
	owners.ObjectID = "obj-1"
	secrets := tree.NewLazy(tree.CategoryPasswordCredentials, "Client Secrets")
	secrets.ObjectID = "obj-1"

	root.SetChildren([]*tree.Node{owners, secrets})
	return root
}

func TestTreeViewFlattensCollapsedRoots(t *testing.T) {
	v := NewTreeView(newTestTheme())
	v.SetSize(80, 24)
	v.SetRoots([]*tree.Node{appFixture()})

	if got := v.RowCount(); got != 1 {
		t.Fatalf("collapsed view shows %d rows, want 1", got)
	}
	if v.Selected().Label != "Billing" {
		t.Errorf("selected = %q, want Billing", v.Selected().Label)
	}
}

func TestTreeViewExpandShowsChildren(t *testing.T) {
	v := NewTreeView(newTestTheme())
	v.SetSize(80, 24)
	v.SetRoots([]*tree.Node{appFixture()})

	if pending := v.ToggleExpand(); pending != nil {
		t.Errorf("expanding a resolved node returned %v for resolution", pending)
	}
	if got := v.RowCount(); got != 3 {
		t.Fatalf("expanded view shows %d rows, want 3", got)
	}

	v.MoveDown()
	if v.Selected().Category != tree.CategoryOwners {
		t.Errorf("second row = %v, want owners container", v.Selected().Category)
	}
}

func TestTreeViewExpandUnresolvedRequestsResolution(t *testing.T) {
	v := NewTreeView(newTestTheme())
	v.SetSize(80, 24)
	v.SetRoots([]*tree.Node{appFixture()})
	v.ToggleExpand()
	v.MoveDown() // owners, unresolved

	pending := v.ToggleExpand()
	if pending == nil || pending.Category != tree.CategoryOwners {
		t.Fatalf("expanding an unresolved container returned %v, want the owners node", pending)
	}
}

func TestTreeViewCursorSurvivesRebuild(t *testing.T) {
	v := NewTreeView(newTestTheme())
	v.SetSize(80, 24)
	v.SetRoots([]*tree.Node{appFixture()})
	v.ToggleExpand()
	v.MoveDown()
	v.MoveDown() // secrets container

	// Wholesale replacement with fresh node allocations.
	v.SetRoots([]*tree.Node{appFixture()})

	sel := v.Selected()
	if sel == nil || sel.Category != tree.CategoryPasswordCredentials {
		t.Errorf("cursor after rebuild = %v, want the secrets container", sel)
	}
	if got := v.RowCount(); got != 3 {
		t.Errorf("expansion state lost across rebuild: %d rows, want 3", got)
	}
}

func TestTreeViewCollapseOrJumpToParent(t *testing.T) {
	v := NewTreeView(newTestTheme())
	v.SetSize(80, 24)
	v.SetRoots([]*tree.Node{appFixture()})
	v.ToggleExpand()
	v.MoveDown() // owners

	v.CollapseOrJumpToParent()
	if v.Selected().Category != tree.CategoryApplication {
		t.Errorf("leaf collapse should jump to parent, got %v", v.Selected().Category)
	}

	v.CollapseOrJumpToParent()
	if got := v.RowCount(); got != 1 {
		t.Errorf("collapsing the root left %d rows, want 1", got)
	}
}

func TestTreeViewRendersVisibleWindow(t *testing.T) {
	var roots []*tree.Node
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		n := tree.NewLeaf(tree.CategoryApplication, name)
		n.ObjectID = name
		roots = append(roots, n)
	}
	v := NewTreeView(newTestTheme())
	v.SetSize(80, 2)
	v.SetRoots(roots)
	v.JumpToBottom()

	out := v.View()
	if strings.Contains(out, "Alpha") {
		t.Error("scrolled-off row still rendered")
	}
	if !strings.Contains(out, "Gamma") {
		t.Error("cursor row not rendered")
	}
}

func TestTruncateLabel(t *testing.T) {
	tests := []struct {
		label string
		max   int
		want  string
	}{
		{"short", 20, "short"},
		{"a long application name", 10, "a long ap…"},
		{"日本語のアプリ", 8, "日本語…"},
		{"x", 1, "…"},
	}
	for _, tt := range tests {
		if got := truncateLabel(tt.label, tt.max); got != tt.want {
			t.Errorf("truncateLabel(%q, %d) = %q, want %q", tt.label, tt.max, got, tt.want)
		}
	}
}
