// Package directory models application registrations held in a remote
// directory tenant and the client used to read and mutate them.
package directory

import "time"

// AppSummary is the id+displayName projection returned by listings.
type AppSummary struct {
	ObjectID        string     `json:"id"`
	AppID           string     `json:"appId"`
	DisplayName     string     `json:"displayName"`
	DeletedDateTime *time.Time `json:"deletedDateTime,omitempty"`
}

// Application is the (partial) application resource. Fields outside the
// requested projection are zero; collection fields distinguish "absent from
// projection" (nil) from "present and empty" (non-nil, len 0) because the
// tree builder keys its lazy/eager decision on reported collection size.
type Application struct {
	ObjectID        string     `json:"id"`
	AppID           string     `json:"appId"`
	DisplayName     string     `json:"displayName"`
	SignInAudience  string     `json:"signInAudience,omitempty"`
	IdentifierURIs  []string   `json:"identifierUris,omitempty"`
	DeletedDateTime *time.Time `json:"deletedDateTime,omitempty"`

	Web          *WebSection          `json:"web,omitempty"`
	SPA          *SPASection          `json:"spa,omitempty"`
	PublicClient *PublicClientSection `json:"publicClient,omitempty"`
	API          *APISection          `json:"api,omitempty"`

	PasswordCredentials    []PasswordCredential     `json:"passwordCredentials,omitempty"`
	KeyCredentials         []KeyCredential          `json:"keyCredentials,omitempty"`
	RequiredResourceAccess []RequiredResourceAccess `json:"requiredResourceAccess,omitempty"`
	AppRoles               []AppRole                `json:"appRoles,omitempty"`

	// Owners is populated only when the fetch expanded owners.
	Owners []User `json:"owners,omitempty"`
}

// WebSection holds the browser redirect configuration.
type WebSection struct {
	RedirectURIs []string `json:"redirectUris"`
	LogoutURL    string   `json:"logoutUrl,omitempty"`
}

// SPASection holds single-page-application redirect URIs.
type SPASection struct {
	RedirectURIs []string `json:"redirectUris"`
}

// PublicClientSection holds native/mobile redirect URIs.
type PublicClientSection struct {
	RedirectURIs []string `json:"redirectUris"`
}

// APISection holds the scopes this application exposes to other callers.
type APISection struct {
	OAuth2PermissionScopes []PermissionScope `json:"oauth2PermissionScopes"`
}

// PasswordCredential is a client secret.
type PasswordCredential struct {
	KeyID         string    `json:"keyId"`
	DisplayName   string    `json:"displayName,omitempty"`
	Hint          string    `json:"hint,omitempty"`
	SecretText    string    `json:"secretText,omitempty"` // only on creation
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
}

// KeyCredential is a certificate credential.
type KeyCredential struct {
	KeyID         string    `json:"keyId"`
	DisplayName   string    `json:"displayName,omitempty"`
	Type          string    `json:"type,omitempty"`
	Usage         string    `json:"usage,omitempty"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
}

// RequiredResourceAccess groups the permissions requested against one
// resource application (e.g. the graph service itself).
type RequiredResourceAccess struct {
	ResourceAppID  string           `json:"resourceAppId"`
	ResourceAccess []ResourceAccess `json:"resourceAccess"`
}

// ResourceAccess is a single requested permission. Type is "Scope" for
// delegated permissions and "Role" for application permissions.
type ResourceAccess struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// PermissionScope is a delegated permission exposed by an application.
type PermissionScope struct {
	ID                      string `json:"id"`
	Value                   string `json:"value"`
	Type                    string `json:"type,omitempty"` // "User" or "Admin"
	IsEnabled               bool   `json:"isEnabled"`
	AdminConsentDisplayName string `json:"adminConsentDisplayName,omitempty"`
}

// AppRole is an application role definition.
type AppRole struct {
	ID                 string   `json:"id"`
	Value              string   `json:"value,omitempty"`
	DisplayName        string   `json:"displayName,omitempty"`
	IsEnabled          bool     `json:"isEnabled"`
	AllowedMemberTypes []string `json:"allowedMemberTypes,omitempty"`
}

// User is a directory user, as seen through owner relationships.
type User struct {
	ObjectID          string `json:"id"`
	DisplayName       string `json:"displayName,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	Mail              string `json:"mail,omitempty"`
}

// Label returns the best display string for a user.
func (u User) Label() string {
	if u.UserPrincipalName != "" {
		return u.UserPrincipalName
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ObjectID
}
