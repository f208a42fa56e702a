package tree

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/appscope/appscope/pkg/config"
	"github.com/appscope/appscope/pkg/directory"
)

// TreeState is the top-level state of the rendered tree. Initialising,
// Authenticating, SignIn and Empty are single-node trees; Applications is
// the only populated state.
type TreeState int

const (
	StateInitialising TreeState = iota
	StateAuthenticating
	StateSignIn
	StateApplications
	StateEmpty
)

func (s TreeState) String() string {
	switch s {
	case StateInitialising:
		return "initialising"
	case StateAuthenticating:
		return "authenticating"
	case StateSignIn:
		return "sign-in"
	case StateApplications:
		return "applications"
	case StateEmpty:
		return "empty"
	}
	return "unknown"
}

// rebuildState is the single-flight guard, modeled as an explicit value
// rather than a boolean so new entry points can't accidentally re-enter.
type rebuildState int

const (
	rebuildIdle rebuildState = iota
	rebuildRunning
)

// SettingsStore is the slice of config.Store the engine needs: read the
// current settings and apply advisory resolutions.
type SettingsStore interface {
	Get() config.Settings
	SetUseEventualConsistency(bool) error
	SetSuppressCountAdvisory(bool) error
}

// ListingCache persists the last known listing for instant first paint.
// Optional; all calls are best-effort.
type ListingCache interface {
	Replace(apps []directory.AppSummary, fetchedAt time.Time) error
	Count() (int, error)
}

// Options configures an Engine. Client and Settings are required; the
// rest default to no-ops.
type Options struct {
	Client   directory.Client
	Settings SettingsStore
	Tokens   directory.TokenSource // optional, drives the AUTHENTICATING banner
	Busy     BusyIndicator
	Notifier Notifier
	Prompter Prompter
	Cache    ListingCache
	Logger   zerolog.Logger

	// SignInCommand is the external CLI the operator runs to sign in,
	// shown in the SIGN-IN node and recovery messages.
	SignInCommand string

	// OpenDocs is invoked when the operator asks to open documentation
	// from a conflict dialog. Receives a topic slug.
	OpenDocs func(topic string)

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine owns the root node array and keeps it synchronized with remote
// state. All exported methods are safe for concurrent use; the root array
// is only ever replaced wholesale, never patched in place.
type Engine struct {
	client   directory.Client
	settings SettingsStore
	tokens   directory.TokenSource
	busy     BusyIndicator
	notifier Notifier
	prompter Prompter
	cache    ListingCache
	log      zerolog.Logger
	now      func() time.Time

	signInCommand string
	openDocs      func(topic string)

	mu           sync.Mutex
	rebuild      rebuildState
	roots        []*Node
	state        TreeState
	filter       string
	initAttempts int
}

// NewEngine builds an engine in the INITIALISING state.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		client:        opts.Client,
		settings:      opts.Settings,
		tokens:        opts.Tokens,
		busy:          opts.Busy,
		notifier:      opts.Notifier,
		prompter:      opts.Prompter,
		cache:         opts.Cache,
		log:           opts.Logger,
		now:           opts.Now,
		signInCommand: opts.SignInCommand,
		openDocs:      opts.OpenDocs,
		state:         StateInitialising,
	}
	if e.busy == nil {
		e.busy = NopBusy{}
	}
	if e.notifier == nil {
		e.notifier = NopNotifier
	}
	if e.prompter == nil {
		e.prompter = NopPrompter{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.signInCommand == "" {
		e.signInCommand = "appscope login"
	}
	e.roots = []*Node{e.initialisingNode()}
	return e
}

// Bind attaches the interactive surfaces after construction. The TUI needs
// the engine to build its model and the engine needs the running program
// for callbacks; Bind breaks that cycle. Call before Initialize.
func (e *Engine) Bind(notifier Notifier, prompter Prompter, busy BusyIndicator, openDocs func(topic string)) {
	if notifier != nil {
		e.notifier = notifier
	}
	if prompter != nil {
		e.prompter = prompter
	}
	if busy != nil {
		e.busy = busy
	}
	if openDocs != nil {
		e.openDocs = openDocs
	}
}

// Roots returns the current root node array. The returned slice must be
// treated as read-only; it is replaced wholesale by the next rebuild.
func (e *Engine) Roots() []*Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roots
}

// State returns the current top-level tree state.
func (e *Engine) State() TreeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Filter returns the active filter text ("" when unfiltered).
func (e *Engine) Filter() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// IsTreeEmpty reports whether the tree is in the single-EMPTY-node state.
func (e *Engine) IsTreeEmpty() bool {
	return e.State() == StateEmpty
}

// NotifyNodeChanged fires a change event scoped to node (nil = whole
// tree). Mutation services call this after out-of-band edits that don't
// warrant a full rebuild.
func (e *Engine) NotifyNodeChanged(node *Node) {
	e.notifier.TreeChanged(node)
}

// ApplicationParent returns the root application node holding objectID, or
// nil when no such application is shown.
func (e *Engine) ApplicationParent(objectID string) *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, root := range e.roots {
		switch root.Category {
		case CategoryApplication, CategoryApplicationDeleted:
			if root.ObjectID == objectID {
				return root
			}
		}
	}
	return nil
}

// TriggerRebuild is the refresh entry point for mutation services. The
// release function is the caller's busy handle; it is released on every
// path, including the single-flight drop. An optional target state hints
// what the caller expects the tree to become (unused beyond logging; the
// rebuild decides the real state).
func (e *Engine) TriggerRebuild(ctx context.Context, release func(), target ...TreeState) {
	if len(target) > 0 {
		e.log.Debug().Stringer("target", target[0]).Msg("rebuild requested")
	}
	e.Rebuild(ctx, release)
}

// Initialize drives INITIALISING → AUTHENTICATING → first rebuild. A
// credential-unavailable hiccup is retried once silently; a second failure
// lands on SIGN-IN without an error dialog, since a missing credential is
// not the same event as losing an established session.
func (e *Engine) Initialize(ctx context.Context) {
	e.replaceRoots(StateInitialising, []*Node{e.initialisingNode()})

	if e.tokens != nil {
		tok, err := e.tokens.Token()
		if err != nil {
			e.mu.Lock()
			attempts := e.initAttempts
			e.initAttempts++
			e.mu.Unlock()

			if directory.IsCredentialUnavailable(err) && attempts == 0 {
				e.log.Debug().Err(err).Msg("credentials unavailable, retrying initialization")
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				e.Initialize(ctx)
				return
			}
			e.log.Info().Err(err).Msg("no credentials, waiting for sign-in")
			e.replaceRoots(StateSignIn, []*Node{e.signInNode()})
			return
		}

		label := "Authenticating…"
		if id, err := directory.PeekIdentity(tok); err == nil && id.UPN != "" {
			label = fmt.Sprintf("Authenticating as %s…", id.UPN)
		}
		auth := NewLeaf(CategoryAuthenticating, label)
		e.replaceRoots(StateAuthenticating, []*Node{auth})
	}

	e.mu.Lock()
	e.initAttempts = 0
	e.mu.Unlock()

	e.Rebuild(ctx, nil)
}

// replaceRoots swaps the root array wholesale and fires an unscoped change
// event. This is the only way roots ever change.
func (e *Engine) replaceRoots(state TreeState, roots []*Node) {
	e.mu.Lock()
	e.state = state
	e.roots = roots
	e.mu.Unlock()
	e.notifier.TreeChanged(nil)
}

func (e *Engine) initialisingNode() *Node {
	label := "Loading applications…"
	if e.cache != nil {
		if n, err := e.cache.Count(); err == nil && n > 0 {
			label = fmt.Sprintf("Loading applications… (%d cached)", n)
		}
	}
	return NewLeaf(CategoryInitialising, label)
}

func (e *Engine) signInNode() *Node {
	n := NewLeaf(CategorySignIn, fmt.Sprintf("Sign in to your tenant (%s)…", e.signInCommand))
	n.Value = e.signInCommand
	return n
}

func (e *Engine) emptyNode() *Node {
	e.mu.Lock()
	filter := e.filter
	e.mu.Unlock()
	if filter != "" {
		return NewLeaf(CategoryEmpty, "No applications match the filter")
	}
	return NewLeaf(CategoryEmpty, "No applications found")
}
