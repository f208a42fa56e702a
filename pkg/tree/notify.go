package tree

import "context"

// Notifier receives tree-changed events. A nil node means the whole tree
// must re-render; a non-nil node scopes the re-render to that subtree.
type Notifier interface {
	TreeChanged(node *Node)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(node *Node)

func (f NotifierFunc) TreeChanged(node *Node) { f(node) }

// NopNotifier discards events.
var NopNotifier Notifier = NotifierFunc(func(*Node) {})

// Prompter is the dialog/toast surface the engine talks to. Implementations
// must be safe to call from engine goroutines; Ask blocks until the
// operator answers or ctx is done, returning the chosen option or "" when
// dismissed.
type Prompter interface {
	Info(message string)
	Error(message string)
	Ask(ctx context.Context, message string, choices ...string) string
}

// NopPrompter swallows messages and dismisses every prompt.
type NopPrompter struct{}

func (NopPrompter) Info(string)                                   {}
func (NopPrompter) Error(string)                                  {}
func (NopPrompter) Ask(context.Context, string, ...string) string { return "" }
