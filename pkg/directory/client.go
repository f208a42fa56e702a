package directory

import (
	"context"
	"time"
)

// Field names accepted by Client.GetPartial. Each lazy tree category fetches
// exactly the field(s) it needs.
const (
	FieldDisplayName            = "displayName"
	FieldAppID                  = "appId"
	FieldSignInAudience         = "signInAudience"
	FieldIdentifierURIs         = "identifierUris"
	FieldWeb                    = "web"
	FieldSPA                    = "spa"
	FieldPublicClient           = "publicClient"
	FieldAPI                    = "api"
	FieldPasswordCredentials    = "passwordCredentials"
	FieldKeyCredentials         = "keyCredentials"
	FieldRequiredResourceAccess = "requiredResourceAccess"
	FieldAppRoles               = "appRoles"
)

// ProjectionFields is the fixed field set the tree builder requests for every
// application when rebuilding the root level. It covers everything needed to
// decide which child categories exist without fetching nested contents.
var ProjectionFields = []string{
	"id",
	FieldDisplayName,
	FieldAppID,
	FieldSignInAudience,
	FieldIdentifierURIs,
	FieldWeb,
	FieldSPA,
	FieldPublicClient,
	FieldAPI,
	FieldPasswordCredentials,
	FieldKeyCredentials,
	FieldRequiredResourceAccess,
	FieldAppRoles,
}

// ListOptions adjusts how listings and counts are issued.
type ListOptions struct {
	// Filter is a server-side predicate, e.g.
	// startswith(displayName, 'x'). Valid only with Eventual set.
	Filter string

	// Eventual selects the eventually-consistent query path, which is the
	// only path supporting server-side filtering, counting and ordering.
	Eventual bool

	// Top caps the number of objects returned by one listing. Zero means
	// the server default.
	Top int
}

// Client is the remote directory surface the tree engine depends on. All
// failures are (or wrap) *Error; implementations never panic across this
// boundary.
type Client interface {
	// CountOwned returns the number of applications owned by the signed-in
	// user, CountAll the number visible in the tenant.
	CountOwned(ctx context.Context, opts ListOptions) (int, error)
	CountAll(ctx context.Context, opts ListOptions) (int, error)

	// Listings return the id+displayName projection only.
	ListOwned(ctx context.Context, opts ListOptions) ([]AppSummary, error)
	ListAll(ctx context.Context, opts ListOptions) ([]AppSummary, error)
	ListDeleted(ctx context.Context, opts ListOptions) ([]AppSummary, error)

	// GetPartial fetches one application restricted to the given fields,
	// optionally expanding the owners relationship.
	GetPartial(ctx context.Context, objectID string, fields []string, expandOwners bool) (*Application, error)

	// GetOwners fetches the owner users of one application.
	GetOwners(ctx context.Context, objectID string) ([]User, error)

	// Update applies a sparse patch to one application.
	Update(ctx context.Context, objectID string, patch map[string]any) error

	// Credential and owner mutations used by the single-mutation services
	// layered on top of the tree engine.
	AddPassword(ctx context.Context, objectID, displayName string, end time.Time) (*PasswordCredential, error)
	RemovePassword(ctx context.Context, objectID, keyID string) error
	RemoveKey(ctx context.Context, objectID, keyID string) error
	AddOwner(ctx context.Context, objectID, userObjectID string) error
	RemoveOwner(ctx context.Context, objectID, userObjectID string) error

	Delete(ctx context.Context, objectID string) error
	Restore(ctx context.Context, objectID string) error
}
