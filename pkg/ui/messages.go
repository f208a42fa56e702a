package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/appscope/appscope/pkg/tree"
)

// TreeChangedMsg tells the view to re-render. Node is nil for whole-tree
// changes and scoped to a subtree otherwise.
type TreeChangedMsg struct {
	Node *tree.Node
}

// BusyShowMsg and BusyHideMsg carry busy-indicator lifecycle into the view.
type BusyShowMsg struct {
	ID      int
	Message string
}

type BusyHideMsg struct {
	ID int
}

// InfoMsg and ErrorMsg are one-line toasts.
type InfoMsg string

type ErrorMsg string

// AskMsg opens a modal choice overlay. The reply channel receives the
// chosen option, or "" when the overlay is dismissed. Buffered by the
// sender so the view never blocks answering.
type AskMsg struct {
	Message string
	Choices []string
	Reply   chan<- string
}

// DocsMsg opens the documentation overlay with raw markdown.
type DocsMsg struct {
	Markdown string
}

// Bridge adapts a running bubbletea program to the engine's callback
// surfaces. Engine goroutines call these; everything funnels through
// program.Send, which is safe from any goroutine.
type Bridge struct {
	program *tea.Program
}

// NewBridge wraps the program.
func NewBridge(p *tea.Program) *Bridge {
	return &Bridge{program: p}
}

// TreeChanged implements tree.Notifier.
func (b *Bridge) TreeChanged(node *tree.Node) {
	b.program.Send(TreeChangedMsg{Node: node})
}

// Info implements tree.Prompter.
func (b *Bridge) Info(message string) {
	b.program.Send(InfoMsg(message))
}

// Error implements tree.Prompter.
func (b *Bridge) Error(message string) {
	b.program.Send(ErrorMsg(message))
}

// Ask implements tree.Prompter. Blocks until the operator answers or ctx
// ends.
func (b *Bridge) Ask(ctx context.Context, message string, choices ...string) string {
	reply := make(chan string, 1)
	b.program.Send(AskMsg{Message: message, Choices: choices, Reply: reply})
	select {
	case choice := <-reply:
		return choice
	case <-ctx.Done():
		return ""
	}
}

// BusyIndicator returns a tracker whose show/hide callbacks feed the view.
func (b *Bridge) BusyIndicator() tree.BusyIndicator {
	return tree.NewBusyTracker(
		func(id int, message string) { b.program.Send(BusyShowMsg{ID: id, Message: message}) },
		func(id int) { b.program.Send(BusyHideMsg{ID: id}) },
	)
}

// OpenDocs returns the engine's documentation hook, rendering the topic
// into the in-app overlay.
func (b *Bridge) OpenDocs() func(topic string) {
	return func(topic string) {
		b.program.Send(DocsMsg{Markdown: docsForTopic(topic)})
	}
}

var _ tree.Notifier = (*Bridge)(nil)
var _ tree.Prompter = (*Bridge)(nil)
