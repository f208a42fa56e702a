package tree

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/appscope/appscope/pkg/config"
	"github.com/appscope/appscope/pkg/directory"
)

// detailFetchLimit caps concurrent per-application detail fetches during a
// rebuild.
const detailFetchLimit = 8

// Rebuild re-lists applications and replaces the root array wholesale.
// release is the caller's busy handle (nil when the engine should acquire
// its own); it is released on every exit path. Concurrent calls collapse
// into the in-flight rebuild: the late caller's handle is released and
// nothing else happens.
func (e *Engine) Rebuild(ctx context.Context, release func()) {
	e.mu.Lock()
	if e.rebuild == rebuildRunning {
		e.mu.Unlock()
		e.log.Debug().Msg("rebuild already running, dropping request")
		if release != nil {
			release()
		}
		return
	}
	e.rebuild = rebuildRunning
	filter := e.filter
	e.mu.Unlock()

	if release == nil {
		release = e.busy.Begin("Loading applications…")
	}

	settings := e.settings.Get()

	// finish implements the fixed completion order: swap roots, fire the
	// change event, release the busy handle, then clear the guard.
	finish := func(state TreeState, roots []*Node) {
		e.replaceRoots(state, roots)
		release()
		e.mu.Lock()
		e.rebuild = rebuildIdle
		e.mu.Unlock()
	}
	abort := func(err error) {
		release()
		e.mu.Lock()
		e.rebuild = rebuildIdle
		e.mu.Unlock()
		e.recoverFrom(ctx, err, nil)
	}

	// The advisory describes the unfiltered population, so it is skipped
	// while a filter is active.
	if filter == "" && settings.ShowApplicationCountWarning && !settings.SuppressCountAdvisory {
		if err := e.adviseCount(ctx, settings); err != nil {
			abort(err)
			return
		}
	}

	opts := directory.ListOptions{
		Eventual: settings.UseEventualConsistency,
	}
	if filter != "" {
		opts.Filter = FilterPredicate(filter)
	}
	if settings.UseEventualConsistency && settings.MaximumQueryApps > 0 {
		opts.Top = settings.MaximumQueryApps
	}

	var (
		summaries []directory.AppSummary
		err       error
	)
	if settings.ShowOwnedApplicationsOnly {
		summaries, err = e.client.ListOwned(ctx, opts)
	} else {
		summaries, err = e.client.ListAll(ctx, opts)
	}
	if err != nil {
		abort(err)
		return
	}

	if !settings.UseEventualConsistency {
		sortSummaries(summaries)
	}
	if settings.MaximumApplicationsShown > 0 && len(summaries) > settings.MaximumApplicationsShown {
		summaries = summaries[:settings.MaximumApplicationsShown]
	}

	roots, buildErr := e.buildAppNodes(ctx, summaries)

	if settings.ShowDeletedApplications {
		deleted, derr := e.client.ListDeleted(ctx, opts)
		if derr != nil {
			e.log.Warn().Err(derr).Msg("listing deleted applications failed")
		} else {
			for i, d := range deleted {
				roots = append(roots, deletedAppNode(d, len(summaries)+i))
			}
		}
	}

	if e.cache != nil {
		if cerr := e.cache.Replace(summaries, e.now()); cerr != nil {
			e.log.Warn().Err(cerr).Msg("listing cache update failed")
		}
	}

	if len(roots) == 0 {
		finish(StateEmpty, []*Node{e.emptyNode()})
	} else {
		finish(StateApplications, roots)
	}

	// A partial failure surfaces once, after the built portion is already
	// on screen.
	if buildErr != nil {
		e.recoverFrom(ctx, buildErr, nil)
	}
}

// adviseCount fetches the total and runs the count advisory. A count
// failure is returned so the rebuild aborts through recovery; the prompt
// itself runs on its own goroutine so a slow operator never stalls the
// rebuild.
func (e *Engine) adviseCount(ctx context.Context, settings config.Settings) error {
	opts := directory.ListOptions{Eventual: true}
	var (
		total int
		err   error
	)
	if settings.ShowOwnedApplicationsOnly {
		total, err = e.client.CountOwned(ctx, opts)
	} else {
		total, err = e.client.CountAll(ctx, opts)
	}
	if err != nil {
		return err
	}

	advice := Advise(total, settings.UseEventualConsistency)
	if advice == AdviceNone {
		return nil
	}

	var message string
	switch advice {
	case AdviceDisableEventual:
		message = fmt.Sprintf(
			"Your tenant has %d applications. Disabling eventually consistent queries gives fresher results at this size. Disable them?",
			total)
	case AdviceEnableEventual:
		message = fmt.Sprintf(
			"Your tenant has %d applications. Enabling eventually consistent queries makes listing and filtering much faster at this size. Enable them?",
			total)
	}

	go func() {
		choice := e.prompter.Ask(ctx, message, ChoiceYes, ChoiceNo, ChoiceDontShow)
		switch ResolutionFromChoice(choice) {
		case ResolutionAccept:
			enable := advice == AdviceEnableEventual
			if err := e.settings.SetUseEventualConsistency(enable); err != nil {
				e.prompter.Error(fmt.Sprintf("Saving settings failed: %v", err))
				return
			}
			e.Rebuild(ctx, nil)
		case ResolutionSuppress:
			if err := e.settings.SetSuppressCountAdvisory(true); err != nil {
				e.prompter.Error(fmt.Sprintf("Saving settings failed: %v", err))
			}
		case ResolutionDecline:
		}
	}()
	return nil
}

// buildAppNodes fetches the detail projection for each listed application
// concurrently and assembles root nodes in listing order. Applications
// deleted between listing and fetch drop out silently; the first other
// failure is returned alongside whatever was built.
func (e *Engine) buildAppNodes(ctx context.Context, summaries []directory.AppSummary) ([]*Node, error) {
	nodes := make([]*Node, len(summaries))
	errs := make([]error, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchLimit)
	for i, s := range summaries {
		g.Go(func() error {
			app, err := e.client.GetPartial(gctx, s.ObjectID, directory.ProjectionFields, true)
			if err != nil {
				if directory.IsNotFound(err) {
					e.log.Debug().Str("id", s.ObjectID).Msg("application vanished during rebuild")
					return nil
				}
				errs[i] = err
				return nil
			}
			nodes[i] = buildApplicationNode(app, i)
			return nil
		})
	}
	g.Wait()

	roots := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			roots = append(roots, n)
		}
	}
	for _, err := range errs {
		if err != nil {
			return roots, err
		}
	}
	return roots, nil
}

// buildApplicationNode assembles the fixed subtree under one application:
// copyable identity leaves first, then the collection containers. Containers
// whose remote collection is empty materialize as resolved empty nodes so
// expansion never issues a pointless fetch.
func buildApplicationNode(app *directory.Application, order int) *Node {
	root := NewLeaf(CategoryApplication, app.DisplayName)
	root.ObjectID = app.ObjectID
	root.AppID = app.AppID
	root.Order = order

	children := []*Node{
		copyNode(fmt.Sprintf("Client ID: %s", app.AppID), app.AppID),
	}

	appIDURI := "Not set"
	uriValue := ""
	if len(app.IdentifierURIs) > 0 {
		appIDURI = app.IdentifierURIs[0]
		uriValue = app.IdentifierURIs[0]
	}
	children = append(children, copyNode(fmt.Sprintf("App ID URI: %s", appIDURI), uriValue))
	children = append(children, copyNode(fmt.Sprintf("Sign-in audience: %s", app.SignInAudience), app.SignInAudience))
	if app.Web != nil && app.Web.LogoutURL != "" {
		children = append(children, copyNode(fmt.Sprintf("Logout URL: %s", app.Web.LogoutURL), app.Web.LogoutURL))
	}

	children = append(children,
		container(CategoryWebRedirect, "Web Redirect URIs", app.ObjectID,
			app.Web != nil && len(app.Web.RedirectURIs) > 0),
		container(CategorySPARedirect, "SPA Redirect URIs", app.ObjectID,
			app.SPA != nil && len(app.SPA.RedirectURIs) > 0),
		container(CategoryPublicRedirect, "Mobile/Desktop Redirect URIs", app.ObjectID,
			app.PublicClient != nil && len(app.PublicClient.RedirectURIs) > 0),
		container(CategoryPasswordCredentials, "Client Secrets", app.ObjectID,
			len(app.PasswordCredentials) > 0),
		container(CategoryCertificateCredentials, "Certificates", app.ObjectID,
			len(app.KeyCredentials) > 0),
		container(CategoryAPIPermissions, "API Permissions", app.ObjectID,
			len(app.RequiredResourceAccess) > 0),
		container(CategoryExposedAPIPermissions, "Exposed API Permissions", app.ObjectID,
			app.API != nil && len(app.API.OAuth2PermissionScopes) > 0),
		container(CategoryAppRoles, "App Roles", app.ObjectID,
			len(app.AppRoles) > 0),
	)

	children = append(children, container(CategoryOwners, "Owners", app.ObjectID,
		len(app.Owners) > 0))

	root.SetChildren(children)
	return root
}

func copyNode(label, value string) *Node {
	n := NewLeaf(CategoryCopy, label)
	n.Value = value
	return n
}

func container(category Category, label, objectID string, hasChildren bool) *Node {
	var n *Node
	if hasChildren {
		n = NewLazy(category, label)
	} else {
		n = NewLeaf(category, label)
		n.SetChildren(nil)
	}
	n.ObjectID = objectID
	return n
}

func deletedAppNode(s directory.AppSummary, order int) *Node {
	label := s.DisplayName + " (deleted)"
	if s.DeletedDateTime != nil {
		label = fmt.Sprintf("%s (deleted %s)", s.DisplayName, s.DeletedDateTime.Format("2006-01-02"))
	}
	n := NewLeaf(CategoryApplicationDeleted, label)
	n.ObjectID = s.ObjectID
	n.AppID = s.AppID
	n.Order = order
	return n
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// sortKey lowercases and strips combining marks so "Électron" sorts next to
// "Electron". Mirrors the server-side ordering used on the eventually
// consistent path.
func sortKey(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func sortSummaries(summaries []directory.AppSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return sortKey(summaries[i].DisplayName) < sortKey(summaries[j].DisplayName)
	})
}
