package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/appscope/appscope/pkg/directory"
)

// recoverFrom is the single funnel for remote failures. node is the subtree
// the failing operation was working on (nil for whole-tree operations); its
// icon is restored and a scoped change event fired no matter how the error
// classifies.
func (e *Engine) recoverFrom(ctx context.Context, err error, node *Node) {
	if err == nil {
		return
	}
	defer func() {
		if node != nil {
			node.RestoreIcon()
			e.notifier.TreeChanged(node)
		}
	}()

	derr := directory.AsError(err)
	code := derr.Code
	if code == directory.CodeGeneric {
		code = classifyMessage(derr.Message, e.signInCommand)
	}

	e.log.Warn().Err(err).Str("code", string(code)).Msg("remote operation failed")

	switch code {
	case directory.CodeAuthenticationRequired:
		// Everything in flight is now doomed; drop the indicators along
		// with the tree.
		e.busy.Clear()
		e.replaceRoots(StateSignIn, []*Node{e.signInNode()})
		e.prompter.Info(fmt.Sprintf("Your session has expired. Sign in again with %q.", e.signInCommand))

	case directory.CodeCredentialUnavailable:
		e.log.Debug().Msg("credentials briefly unavailable, reinitializing")
		e.Initialize(ctx)

	case directory.CodeConflict:
		const openDocs = "Open documentation"
		choice := e.prompter.Ask(ctx,
			"The change conflicts with the application's sign-in audience restrictions. The documentation explains which values each audience allows.",
			openDocs, "Close")
		if choice == openDocs && e.openDocs != nil {
			e.openDocs("sign-in-audience")
		}

	case directory.CodeThrottled:
		e.prompter.Error("The directory service is throttling requests. Wait a moment and try again.")

	case directory.CodeNotFound:
		e.prompter.Info("The object no longer exists. Refreshing.")
		go e.Rebuild(ctx, nil)

	default:
		e.busy.Clear()
		e.prompter.Error(derr.Message)
	}
}

// Authentication-loss markers seen in message text when the client boundary
// could not classify the failure structurally.
var authMessageMarkers = []string{
	"InvalidAuthenticationToken",
	"token is expired",
	"Access token has expired",
}

// classifyMessage is the substring fallback for failures that arrive as
// CodeGeneric, e.g. wrapped transport errors that lost their status code.
func classifyMessage(message, signInCommand string) directory.Code {
	for _, marker := range authMessageMarkers {
		if strings.Contains(message, marker) {
			return directory.CodeAuthenticationRequired
		}
	}
	if signInCommand != "" && strings.Contains(message, signInCommand) {
		return directory.CodeAuthenticationRequired
	}
	if strings.Contains(message, "signInAudience") {
		return directory.CodeConflict
	}
	return directory.CodeGeneric
}
