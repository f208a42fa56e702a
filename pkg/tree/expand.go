package tree

import (
	"context"
	"fmt"

	"github.com/appscope/appscope/pkg/directory"
)

// ResolveChildren materializes the children of a lazy container. It is a
// no-op for resolved or already-loading nodes; MarkLoading is the single
// admission point, so two concurrent expansions of the same node fetch once.
// A failed resolution returns the node to unresolved so the next expansion
// retries, then hands the error to recovery; ResolveChildren itself never
// returns an error to the host.
func (e *Engine) ResolveChildren(ctx context.Context, node *Node) {
	if node == nil || !node.MarkLoading() {
		return
	}

	release := e.busy.Begin(fmt.Sprintf("Loading %s…", node.Label))
	defer release()

	children, err := e.resolve(ctx, node)
	if err != nil {
		node.ResetUnresolved()
		e.recoverFrom(ctx, err, node)
		return
	}

	// A rebuild may have replaced the roots while the fetch was in flight.
	// Resolving the stale node is harmless since nothing renders it, but
	// the change event must only fire for a subtree the current roots can
	// still reach.
	node.SetChildren(children)
	if e.isReachable(node) {
		e.notifier.TreeChanged(node)
	}
}

func (e *Engine) isReachable(node *Node) bool {
	e.mu.Lock()
	roots := e.roots
	e.mu.Unlock()
	for _, root := range roots {
		if containsNode(root, node) {
			return true
		}
	}
	return false
}

func containsNode(root, target *Node) bool {
	if root == target {
		return true
	}
	for _, child := range root.childSnapshot() {
		if containsNode(child, target) {
			return true
		}
	}
	return false
}

// resolve dispatches on the container category. The switch is exhaustive
// over lazily resolvable categories; anything else is a wiring bug worth
// surfacing loudly in logs rather than a silent empty set.
func (e *Engine) resolve(ctx context.Context, node *Node) ([]*Node, error) {
	switch node.Category {
	case CategoryOwners:
		return e.resolveOwners(ctx, node.ObjectID)
	case CategoryWebRedirect:
		return e.resolveRedirects(ctx, node.ObjectID, directory.FieldWeb, CategoryWebRedirectURI)
	case CategorySPARedirect:
		return e.resolveRedirects(ctx, node.ObjectID, directory.FieldSPA, CategorySPARedirectURI)
	case CategoryPublicRedirect:
		return e.resolveRedirects(ctx, node.ObjectID, directory.FieldPublicClient, CategoryPublicRedirectURI)
	case CategoryPasswordCredentials:
		return e.resolvePasswords(ctx, node.ObjectID)
	case CategoryCertificateCredentials:
		return e.resolveCertificates(ctx, node.ObjectID)
	case CategoryAPIPermissions:
		return e.resolveAPIPermissions(ctx, node.ObjectID)
	case CategoryExposedAPIPermissions:
		return e.resolveExposedScopes(ctx, node.ObjectID)
	case CategoryAppRoles:
		return e.resolveAppRoles(ctx, node.ObjectID)
	default:
		e.log.Error().Stringer("category", node.Category).Msg("no resolver for category")
		return []*Node{}, nil
	}
}

func (e *Engine) resolveOwners(ctx context.Context, objectID string) ([]*Node, error) {
	owners, err := e.client.GetOwners(ctx, objectID)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(owners))
	for i, u := range owners {
		n := NewLeaf(CategoryOwner, u.Label())
		n.ObjectID = objectID
		n.UserID = u.ObjectID
		n.Value = u.Label()
		n.Order = i
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (e *Engine) resolveRedirects(ctx context.Context, objectID, field string, leaf Category) ([]*Node, error) {
	app, err := e.client.GetPartial(ctx, objectID, []string{field}, false)
	if err != nil {
		return nil, err
	}

	var uris []string
	switch field {
	case directory.FieldWeb:
		if app.Web != nil {
			uris = app.Web.RedirectURIs
		}
	case directory.FieldSPA:
		if app.SPA != nil {
			uris = app.SPA.RedirectURIs
		}
	case directory.FieldPublicClient:
		if app.PublicClient != nil {
			uris = app.PublicClient.RedirectURIs
		}
	}

	nodes := make([]*Node, 0, len(uris))
	for i, uri := range uris {
		n := NewLeaf(leaf, uri)
		n.ObjectID = objectID
		n.Value = uri
		n.Order = i
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (e *Engine) resolvePasswords(ctx context.Context, objectID string) ([]*Node, error) {
	app, err := e.client.GetPartial(ctx, objectID, []string{directory.FieldPasswordCredentials}, false)
	if err != nil {
		return nil, err
	}
	now := e.now()

	nodes := make([]*Node, 0, len(app.PasswordCredentials))
	for i, cred := range app.PasswordCredentials {
		name := cred.DisplayName
		if name == "" {
			name = cred.Hint + "…"
		}
		health := ClassifyCredential(cred.EndDateTime, now)
		label := fmt.Sprintf("%s, expires %s%s", name, cred.EndDateTime.Format("2006-01-02"), health.Suffix())

		n := NewLeaf(CategoryPassword, label)
		n.ObjectID = objectID
		n.KeyID = cred.KeyID
		n.Value = cred.KeyID
		n.Order = i
		n.SetIcon(credentialIcon(health, n.BaseIcon()))
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (e *Engine) resolveCertificates(ctx context.Context, objectID string) ([]*Node, error) {
	app, err := e.client.GetPartial(ctx, objectID, []string{directory.FieldKeyCredentials}, false)
	if err != nil {
		return nil, err
	}
	now := e.now()

	nodes := make([]*Node, 0, len(app.KeyCredentials))
	for i, cred := range app.KeyCredentials {
		name := cred.DisplayName
		if name == "" {
			name = cred.KeyID
		}
		health := ClassifyCredential(cred.EndDateTime, now)
		label := fmt.Sprintf("%s, expires %s%s", name, cred.EndDateTime.Format("2006-01-02"), health.Suffix())

		n := NewLeaf(CategoryCertificate, label)
		n.ObjectID = objectID
		n.KeyID = cred.KeyID
		n.Value = cred.KeyID
		n.Order = i
		n.SetIcon(credentialIcon(health, n.BaseIcon()))
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// resolveAPIPermissions materializes one node per resource application, each
// with its permission leaves resolved eagerly: the data is already in hand
// and another fetch could not add anything.
func (e *Engine) resolveAPIPermissions(ctx context.Context, objectID string) ([]*Node, error) {
	app, err := e.client.GetPartial(ctx, objectID, []string{directory.FieldRequiredResourceAccess}, false)
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(app.RequiredResourceAccess))
	for i, rra := range app.RequiredResourceAccess {
		parent := NewLeaf(CategoryAPIPermissionApp, rra.ResourceAppID)
		parent.ObjectID = objectID
		parent.ResourceAppID = rra.ResourceAppID
		parent.Order = i

		leaves := make([]*Node, 0, len(rra.ResourceAccess))
		for j, access := range rra.ResourceAccess {
			leaf := NewLeaf(CategoryAPIPermissionScope, fmt.Sprintf("%s (%s)", access.ID, access.Type))
			leaf.ObjectID = objectID
			leaf.ResourceAppID = rra.ResourceAppID
			leaf.ResourceScopeID = access.ID
			leaf.Value = access.Type
			leaf.Order = j
			leaves = append(leaves, leaf)
		}
		parent.SetChildren(leaves)
		nodes = append(nodes, parent)
	}
	return nodes, nil
}

func (e *Engine) resolveExposedScopes(ctx context.Context, objectID string) ([]*Node, error) {
	app, err := e.client.GetPartial(ctx, objectID, []string{directory.FieldAPI}, false)
	if err != nil {
		return nil, err
	}

	var scopes []directory.PermissionScope
	if app.API != nil {
		scopes = app.API.OAuth2PermissionScopes
	}

	nodes := make([]*Node, 0, len(scopes))
	for i, scope := range scopes {
		category := CategoryScopeDisabled
		suffix := " (disabled)"
		if scope.IsEnabled {
			category = CategoryScopeEnabled
			suffix = ""
		}
		n := NewLeaf(category, scope.Value+suffix)
		n.ObjectID = objectID
		n.ResourceScopeID = scope.ID
		n.Value = scope.Value
		n.Enabled = scope.IsEnabled
		n.Order = i
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (e *Engine) resolveAppRoles(ctx context.Context, objectID string) ([]*Node, error) {
	app, err := e.client.GetPartial(ctx, objectID, []string{directory.FieldAppRoles}, false)
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(app.AppRoles))
	for i, role := range app.AppRoles {
		name := role.DisplayName
		if name == "" {
			name = role.Value
		}
		category := CategoryRoleDisabled
		suffix := " (disabled)"
		if role.IsEnabled {
			category = CategoryRoleEnabled
			suffix = ""
		}
		n := NewLeaf(category, name+suffix)
		n.ObjectID = objectID
		n.ResourceScopeID = role.ID
		n.Value = role.Value
		n.Enabled = role.IsEnabled
		n.Order = i
		nodes = append(nodes, n)
	}
	return nodes, nil
}
