package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/appscope/appscope/pkg/tree"
)

// treeRow is one visible line of the tree: a node plus its position in the
// rendered hierarchy.
type treeRow struct {
	node   *tree.Node
	depth  int
	parent *treeRow
}

// TreeView renders the engine's root array as a scrollable indented list.
// Expand state is keyed by a stable node key so it survives the wholesale
// root replacement a rebuild performs.
type TreeView struct {
	theme Theme

	roots    []*tree.Node
	flatList []*treeRow
	cursor   int
	offset   int
	width    int
	height   int

	expanded map[string]bool
}

// NewTreeView creates an empty tree view.
func NewTreeView(theme Theme) TreeView {
	return TreeView{
		theme:    theme,
		expanded: make(map[string]bool),
	}
}

// stableKey identifies a node across rebuilds. Pointer identity is useless
// here: every rebuild allocates fresh nodes.
func stableKey(n *tree.Node) string {
	return n.ObjectID + "|" + n.Category.String() + "|" + n.Value + "|" + n.KeyID + "|" + n.UserID
}

// SetSize updates the drawable area.
func (v *TreeView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.clampScroll()
}

// SetRoots replaces the displayed tree, preserving cursor position by key
// when the previously selected node still exists.
func (v *TreeView) SetRoots(roots []*tree.Node) {
	var selectedKey string
	if sel := v.Selected(); sel != nil {
		selectedKey = stableKey(sel)
	}

	v.roots = roots
	v.rebuildFlatList()

	if selectedKey != "" {
		for i, row := range v.flatList {
			if stableKey(row.node) == selectedKey {
				v.cursor = i
				break
			}
		}
	}
	v.clampScroll()
}

// Selected returns the node under the cursor, nil for an empty view.
func (v *TreeView) Selected() *tree.Node {
	if v.cursor >= 0 && v.cursor < len(v.flatList) {
		return v.flatList[v.cursor].node
	}
	return nil
}

// RowCount returns the number of visible rows.
func (v *TreeView) RowCount() int {
	return len(v.flatList)
}

// MoveDown moves the cursor one row down.
func (v *TreeView) MoveDown() {
	if v.cursor < len(v.flatList)-1 {
		v.cursor++
	}
	v.clampScroll()
}

// MoveUp moves the cursor one row up.
func (v *TreeView) MoveUp() {
	if v.cursor > 0 {
		v.cursor--
	}
	v.clampScroll()
}

// PageDown moves the cursor half a screen down.
func (v *TreeView) PageDown() {
	step := v.height / 2
	if step < 1 {
		step = 5
	}
	v.cursor += step
	if v.cursor >= len(v.flatList) {
		v.cursor = len(v.flatList) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.clampScroll()
}

// PageUp moves the cursor half a screen up.
func (v *TreeView) PageUp() {
	step := v.height / 2
	if step < 1 {
		step = 5
	}
	v.cursor -= step
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.clampScroll()
}

// JumpToTop moves the cursor to the first row.
func (v *TreeView) JumpToTop() {
	v.cursor = 0
	v.clampScroll()
}

// JumpToBottom moves the cursor to the last row.
func (v *TreeView) JumpToBottom() {
	if len(v.flatList) > 0 {
		v.cursor = len(v.flatList) - 1
	}
	v.clampScroll()
}

// ToggleExpand flips the selected node's expansion. When expanding a node
// whose children are not materialized yet it returns that node so the
// caller can kick off resolution; otherwise it returns nil.
func (v *TreeView) ToggleExpand() *tree.Node {
	sel := v.Selected()
	if sel == nil || !expandable(sel) {
		return nil
	}

	key := stableKey(sel)
	if v.expanded[key] {
		v.expanded[key] = false
		v.rebuildFlatList()
		return nil
	}
	v.expanded[key] = true
	v.rebuildFlatList()

	if sel.ChildState() == tree.ChildrenUnresolved {
		return sel
	}
	return nil
}

// CollapseOrJumpToParent collapses an expanded node, or moves to the parent
// row when the node is already collapsed or a leaf.
func (v *TreeView) CollapseOrJumpToParent() {
	if v.cursor < 0 || v.cursor >= len(v.flatList) {
		return
	}
	row := v.flatList[v.cursor]
	key := stableKey(row.node)

	if expandable(row.node) && v.expanded[key] {
		v.expanded[key] = false
		v.rebuildFlatList()
		v.clampScroll()
		return
	}
	if row.parent == nil {
		return
	}
	for i, r := range v.flatList {
		if r == row.parent {
			v.cursor = i
			break
		}
	}
	v.clampScroll()
}

// expandable reports whether a node can ever show children: anything not
// known to be an empty leaf.
func expandable(n *tree.Node) bool {
	if n.ChildState() != tree.ChildrenResolved {
		return true
	}
	return len(n.Children()) > 0
}

func (v *TreeView) rebuildFlatList() {
	v.flatList = v.flatList[:0]
	for _, root := range v.roots {
		v.appendVisible(root, 0, nil)
	}
	if v.cursor >= len(v.flatList) {
		v.cursor = len(v.flatList) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

func (v *TreeView) appendVisible(node *tree.Node, depth int, parent *treeRow) {
	row := &treeRow{node: node, depth: depth, parent: parent}
	v.flatList = append(v.flatList, row)

	if !v.expanded[stableKey(node)] {
		return
	}
	for _, child := range node.Children() {
		v.appendVisible(child, depth+1, row)
	}
}

func (v *TreeView) clampScroll() {
	visible := v.height
	if visible <= 0 {
		visible = 20
	}
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

// View renders the visible window of rows.
func (v *TreeView) View() string {
	if len(v.flatList) == 0 {
		return v.theme.Renderer.NewStyle().Foreground(v.theme.Muted).Render("Nothing to show.")
	}

	visible := v.height
	if visible <= 0 {
		visible = 20
	}
	end := v.offset + visible
	if end > len(v.flatList) {
		end = len(v.flatList)
	}

	var sb strings.Builder
	for i := v.offset; i < end; i++ {
		line := v.renderRow(v.flatList[i])
		if i == v.cursor {
			line = v.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (v *TreeView) renderRow(row *treeRow) string {
	r := v.theme.Renderer
	var sb strings.Builder

	prefix := strings.Repeat("  ", row.depth)
	sb.WriteString(r.NewStyle().Foreground(v.theme.Muted).Render(prefix))

	sb.WriteString(r.NewStyle().Foreground(v.theme.Secondary).Render(v.expandIndicator(row.node)))
	sb.WriteString(" ")

	glyph, color := v.theme.IconGlyph(row.node.Icon())
	sb.WriteString(r.NewStyle().Foreground(color).Render(glyph))
	sb.WriteString(" ")

	label := row.node.Label
	maxLabel := v.width - lipgloss.Width(prefix) - 6
	if maxLabel < 16 {
		maxLabel = 16
	}
	sb.WriteString(truncateLabel(label, maxLabel))

	return sb.String()
}

func (v *TreeView) expandIndicator(n *tree.Node) string {
	switch n.ChildState() {
	case tree.ChildrenLoading:
		return "⋯"
	case tree.ChildrenUnresolved:
		return "▸"
	}
	if len(n.Children()) == 0 {
		return "•"
	}
	if v.expanded[stableKey(n)] {
		return "▾"
	}
	return "▸"
}

// truncateLabel trims a label to maxWidth display cells with an ellipsis,
// counting wide runes correctly.
func truncateLabel(label string, maxWidth int) string {
	if maxWidth <= 1 {
		return "…"
	}
	if runewidth.StringWidth(label) <= maxWidth {
		return label
	}
	return runewidth.Truncate(label, maxWidth-1, "") + "…"
}
