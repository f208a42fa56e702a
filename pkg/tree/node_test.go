package tree

import "testing"

func TestChildStateTransitions(t *testing.T) {
	n := NewLazy(CategoryOwners, "Owners")
	if got := n.ChildState(); got != ChildrenUnresolved {
		t.Fatalf("new lazy node state = %v, want unresolved", got)
	}
	if n.Children() != nil {
		t.Error("unresolved node leaked a child slice")
	}

	if !n.MarkLoading() {
		t.Fatal("MarkLoading refused an unresolved node")
	}
	if got := n.ChildState(); got != ChildrenLoading {
		t.Fatalf("state after MarkLoading = %v, want loading", got)
	}
	if n.Children() != nil {
		t.Error("loading node leaked a child slice")
	}
	if n.MarkLoading() {
		t.Error("MarkLoading admitted a second caller on a loading node")
	}
	if got := n.Icon(); got != IconSpinner {
		t.Errorf("loading icon = %q, want spinner", got)
	}

	n.ResetUnresolved()
	if got := n.ChildState(); got != ChildrenUnresolved {
		t.Fatalf("state after ResetUnresolved = %v, want unresolved", got)
	}

	n.MarkLoading()
	n.SetChildren([]*Node{NewLeaf(CategoryOwner, "alice")})
	if got := n.ChildState(); got != ChildrenResolved {
		t.Fatalf("state after SetChildren = %v, want resolved", got)
	}
	if len(n.Children()) != 1 {
		t.Errorf("got %d children, want 1", len(n.Children()))
	}
	if got := n.Icon(); got != n.BaseIcon() {
		t.Errorf("icon after SetChildren = %q, want base %q", got, n.BaseIcon())
	}

	// Resolved nodes don't regress.
	if n.MarkLoading() {
		t.Error("MarkLoading admitted a resolved node")
	}
	if got := n.ChildState(); got != ChildrenResolved {
		t.Errorf("MarkLoading regressed a resolved node to %v", got)
	}
}

func TestSetChildrenNilResolvesEmpty(t *testing.T) {
	n := NewLazy(CategoryAppRoles, "App Roles")
	n.SetChildren(nil)

	if got := n.ChildState(); got != ChildrenResolved {
		t.Fatalf("state = %v, want resolved", got)
	}
	if children := n.Children(); children == nil || len(children) != 0 {
		t.Errorf("children = %v, want non-nil empty slice", children)
	}
}

func TestLeafStartsResolved(t *testing.T) {
	n := NewLeaf(CategoryCopy, "Client ID: x")
	if got := n.ChildState(); got != ChildrenResolved {
		t.Errorf("leaf state = %v, want resolved", got)
	}
}

func TestFindDescendantByCategory(t *testing.T) {
	root := NewLeaf(CategoryApplication, "app")
	owners := NewLazy(CategoryOwners, "Owners")
	secrets := NewLazy(CategoryPasswordCredentials, "Client Secrets")
	root.SetChildren([]*Node{owners, secrets})

	if got := root.FindDescendantByCategory(CategoryPasswordCredentials); got != secrets {
		t.Errorf("found %v, want the secrets container", got)
	}
	if got := root.FindDescendantByCategory(CategoryApplication); got != root {
		t.Error("search should include the node itself")
	}
	if got := root.FindDescendantByCategory(CategoryAppRoles); got != nil {
		t.Errorf("found %v for absent category, want nil", got)
	}

	var nilNode *Node
	if got := nilNode.FindDescendantByCategory(CategoryOwners); got != nil {
		t.Error("nil receiver should return nil")
	}
}

func TestCategoryStrings(t *testing.T) {
	if got := CategoryApplicationDeleted.String(); got != "APPLICATION-DELETED" {
		t.Errorf("String() = %q", got)
	}
	if got := Category(9999).String(); got != "UNKNOWN" {
		t.Errorf("out-of-range String() = %q, want UNKNOWN", got)
	}
}

func TestDefaultIconsAssigned(t *testing.T) {
	for c := CategoryApplication; c <= CategoryEmpty; c++ {
		n := NewLeaf(c, "x")
		if n.Icon() == "" {
			t.Errorf("category %v has no default icon", c)
		}
		if n.Icon() != n.BaseIcon() {
			t.Errorf("category %v: Icon %q != BaseIcon %q at construction", c, n.Icon(), n.BaseIcon())
		}
	}
}
