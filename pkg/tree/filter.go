package tree

import (
	"context"
	"fmt"
	"strings"
)

// EscapeFilterValue doubles single quotes so operator input cannot break out
// of the predicate's string literal.
func EscapeFilterValue(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// FilterPredicate builds the server-side prefix predicate for a filter
// string.
func FilterPredicate(filter string) string {
	return fmt.Sprintf("startswith(displayName, '%s')", EscapeFilterValue(filter))
}

// ApplyFilter sets the display-name prefix filter and rebuilds. An empty
// filter clears. Filtering requires the eventually consistent query path;
// when it is off the operator gets an explanation instead of a broken
// query. No-op while a rebuild is in flight or when nothing would change.
func (e *Engine) ApplyFilter(ctx context.Context, filter string) {
	filter = strings.TrimSpace(filter)

	e.mu.Lock()
	if e.rebuild == rebuildRunning {
		e.mu.Unlock()
		e.log.Debug().Msg("rebuild in flight, ignoring filter change")
		return
	}
	unchanged := e.filter == filter
	emptyTree := e.state == StateEmpty && e.filter == ""
	e.mu.Unlock()

	if unchanged || emptyTree {
		return
	}

	if filter != "" && !e.settings.Get().UseEventualConsistency {
		e.prompter.Error("Filtering requires eventually consistent queries. Enable use_eventual_consistency in settings to filter.")
		return
	}

	e.mu.Lock()
	e.filter = filter
	e.mu.Unlock()

	message := "Filtering applications…"
	if filter == "" {
		message = "Loading applications…"
	}
	e.Rebuild(ctx, e.busy.Begin(message))
}
