// Package tree implements the hierarchical tree synchronization engine:
// root rebuilds from remote listings, on-demand subtree resolution, the
// single-flight rebuild guard, filtering, the count advisory, and error
// recovery.
package tree

import "sync"

// Category is the closed set of node kinds. It drives the eager-vs-lazy
// child policy, resolver dispatch, and rendering. Switches over Category at
// construction and dispatch sites enumerate every case on purpose; adding a
// category means visiting each of them.
type Category int

const (
	CategoryUnknown Category = iota

	// Application-level nodes.
	CategoryApplication
	CategoryApplicationDeleted

	// Copyable value leaves under an application (client id, app id URI,
	// audience, logout URL).
	CategoryCopy

	// Container categories with lazily resolved children.
	CategoryOwners
	CategoryWebRedirect
	CategorySPARedirect
	CategoryPublicRedirect
	CategoryPasswordCredentials
	CategoryCertificateCredentials
	CategoryAPIPermissions
	CategoryExposedAPIPermissions
	CategoryAppRoles

	// Leaves produced by the resolvers.
	CategoryOwner
	CategoryWebRedirectURI
	CategorySPARedirectURI
	CategoryPublicRedirectURI
	CategoryPassword
	CategoryCertificate
	CategoryAPIPermissionApp
	CategoryAPIPermissionScope
	CategoryScopeEnabled
	CategoryScopeDisabled
	CategoryRoleEnabled
	CategoryRoleDisabled

	// Single-node transient tree states.
	CategorySignIn
	CategoryInitialising
	CategoryAuthenticating
	CategoryEmpty
)

var categoryNames = map[Category]string{
	CategoryUnknown:                "UNKNOWN",
	CategoryApplication:            "APPLICATION",
	CategoryApplicationDeleted:     "APPLICATION-DELETED",
	CategoryCopy:                   "COPY",
	CategoryOwners:                 "OWNERS",
	CategoryWebRedirect:            "WEB-REDIRECT",
	CategorySPARedirect:            "SPA-REDIRECT",
	CategoryPublicRedirect:         "NATIVE-REDIRECT",
	CategoryPasswordCredentials:    "PASSWORD-CREDENTIALS",
	CategoryCertificateCredentials: "CERTIFICATE-CREDENTIALS",
	CategoryAPIPermissions:         "API-PERMISSIONS",
	CategoryExposedAPIPermissions:  "EXPOSED-API-PERMISSIONS",
	CategoryAppRoles:               "APP-ROLES",
	CategoryOwner:                  "OWNER",
	CategoryWebRedirectURI:         "WEB-REDIRECT-URI",
	CategorySPARedirectURI:         "SPA-REDIRECT-URI",
	CategoryPublicRedirectURI:      "NATIVE-REDIRECT-URI",
	CategoryPassword:               "PASSWORD",
	CategoryCertificate:            "CERTIFICATE",
	CategoryAPIPermissionApp:       "API-PERMISSIONS-APP",
	CategoryAPIPermissionScope:     "API-PERMISSIONS-SCOPE",
	CategoryScopeEnabled:           "SCOPE-ENABLED",
	CategoryScopeDisabled:          "SCOPE-DISABLED",
	CategoryRoleEnabled:            "ROLE-ENABLED",
	CategoryRoleDisabled:           "ROLE-DISABLED",
	CategorySignIn:                 "SIGN-IN",
	CategoryInitialising:           "INITIALISING",
	CategoryAuthenticating:         "AUTHENTICATING",
	CategoryEmpty:                  "EMPTY",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// ChildState is the explicit three-state lazy-children union. A node is
// never "a bit resolved": Children() is meaningful only in
// ChildrenResolved.
type ChildState int

const (
	// ChildrenUnresolved marks a lazy subtree the host must resolve on
	// expansion.
	ChildrenUnresolved ChildState = iota
	// ChildrenLoading marks a resolution in flight.
	ChildrenLoading
	// ChildrenResolved marks a materialized (possibly empty) child set.
	ChildrenResolved
)

// Icon is a presentation marker interpreted by the host view.
type Icon string

const (
	IconApp         Icon = "app"
	IconAppDeleted  Icon = "app-deleted"
	IconCopy        Icon = "copy"
	IconFolder      Icon = "folder"
	IconOwner       Icon = "person"
	IconURI         Icon = "link"
	IconPassword    Icon = "key"
	IconCertificate Icon = "certificate"
	IconScope       Icon = "scope"
	IconRole        Icon = "role"
	IconWarning     Icon = "warning"
	IconError       Icon = "error"
	IconSpinner     Icon = "spinner"
	IconSignIn      Icon = "sign-in"
	IconEmpty       Icon = "empty"
)

// Node is the unit of the tree. Foreign reference fields (ObjectID, AppID,
// …) point into the remote domain; they are lookup keys, not ownership.
//
// The identity and payload fields are written once at construction and read
// freely afterwards. Child state and icons change while a node is rendered,
// so they live behind the node mutex: resolution runs off the event loop and
// the view reads the same nodes concurrently.
type Node struct {
	Label    string
	Category Category

	ObjectID        string
	AppID           string
	ResourceAppID   string
	ResourceScopeID string
	UserID          string
	KeyID           string

	// Value is the category-specific payload: a URI, a GUID, a scope
	// name. Used for display and as the mutation key.
	Value string

	// Order is the stable sort key captured from the listing index at
	// construction time, independent of detail-fetch completion order.
	Order int

	// Enabled is the toggle state for scopes and roles.
	Enabled bool

	mu         sync.Mutex
	icon       Icon
	baseIcon   Icon
	childState ChildState
	children   []*Node
}

// NewLeaf returns a node with no children (resolved, empty).
func NewLeaf(category Category, label string) *Node {
	icon := defaultIcon(category)
	return &Node{Label: label, Category: category, childState: ChildrenResolved, icon: icon, baseIcon: icon}
}

// NewLazy returns a node whose children exist remotely but have not been
// fetched.
func NewLazy(category Category, label string) *Node {
	icon := defaultIcon(category)
	return &Node{Label: label, Category: category, childState: ChildrenUnresolved, icon: icon, baseIcon: icon}
}

func defaultIcon(c Category) Icon {
	switch c {
	case CategoryApplication:
		return IconApp
	case CategoryApplicationDeleted:
		return IconAppDeleted
	case CategoryCopy:
		return IconCopy
	case CategoryOwner:
		return IconOwner
	case CategoryWebRedirectURI, CategorySPARedirectURI, CategoryPublicRedirectURI:
		return IconURI
	case CategoryPassword:
		return IconPassword
	case CategoryCertificate:
		return IconCertificate
	case CategoryAPIPermissionScope, CategoryScopeEnabled, CategoryScopeDisabled:
		return IconScope
	case CategoryRoleEnabled, CategoryRoleDisabled:
		return IconRole
	case CategorySignIn:
		return IconSignIn
	case CategoryInitialising, CategoryAuthenticating:
		return IconSpinner
	case CategoryEmpty:
		return IconEmpty
	case CategoryOwners, CategoryWebRedirect, CategorySPARedirect, CategoryPublicRedirect,
		CategoryPasswordCredentials, CategoryCertificateCredentials,
		CategoryAPIPermissions, CategoryExposedAPIPermissions, CategoryAppRoles,
		CategoryAPIPermissionApp:
		return IconFolder
	case CategoryUnknown:
		return ""
	}
	return ""
}

// ChildState returns the lazy-children state.
func (n *Node) ChildState() ChildState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.childState
}

// Children returns the materialized child slice. Nil unless resolved. The
// slice is replaced wholesale on every transition, never appended to, so
// callers may iterate it without holding anything.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.childState != ChildrenResolved {
		return nil
	}
	return n.children
}

// childSnapshot returns the current child slice regardless of state, for
// traversal.
func (n *Node) childSnapshot() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.children
}

// SetChildren materializes the child set, transitioning to ChildrenResolved
// and dropping any transient icon. Passing nil resolves to an empty child
// set.
func (n *Node) SetChildren(children []*Node) {
	if children == nil {
		children = []*Node{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children = children
	n.childState = ChildrenResolved
	n.icon = n.baseIcon
}

// MarkLoading attempts the unresolved to loading transition, switching the
// icon to the spinner, and reports whether it happened. Resolved and
// already-loading nodes are left alone, so exactly one caller wins admission
// for a given resolution.
func (n *Node) MarkLoading() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.childState != ChildrenUnresolved {
		return false
	}
	n.childState = ChildrenLoading
	n.icon = IconSpinner
	return true
}

// ResetUnresolved returns a loading node to ChildrenUnresolved after a
// failed resolution, so the next expansion retries.
func (n *Node) ResetUnresolved() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.childState == ChildrenLoading {
		n.childState = ChildrenUnresolved
		n.children = nil
	}
}

// Icon returns the current presentation marker.
func (n *Node) Icon() Icon {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.icon
}

// BaseIcon returns the marker RestoreIcon falls back to.
func (n *Node) BaseIcon() Icon {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.baseIcon
}

// SetIcon replaces both the current and the base icon. Used at construction
// when the default for the category is not the right marker.
func (n *Node) SetIcon(icon Icon) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.icon = icon
	n.baseIcon = icon
}

// RestoreIcon drops a transient marker, returning to the base icon.
func (n *Node) RestoreIcon() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.icon = n.baseIcon
}

// FindDescendantByCategory returns the first descendant (depth-first,
// including n itself) with the given category, or nil.
func (n *Node) FindDescendantByCategory(category Category) *Node {
	if n == nil {
		return nil
	}
	if n.Category == category {
		return n
	}
	for _, child := range n.childSnapshot() {
		if found := child.FindDescendantByCategory(category); found != nil {
			return found
		}
	}
	return nil
}
