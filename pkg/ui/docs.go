package ui

// docsForTopic returns the embedded markdown for an in-app documentation
// topic. Unknown topics get a stub rather than an empty overlay.
func docsForTopic(topic string) string {
	switch topic {
	case "sign-in-audience":
		return signInAudienceDocs
	default:
		return "# Documentation\n\nNo documentation available for this topic."
	}
}

const signInAudienceDocs = `# Sign-in audience restrictions

The sign-in audience of an application constrains several other fields.
When an update is rejected with a sign-in audience error, the new value is
not allowed under the application's current audience.

| Audience | Who can sign in |
|----------|-----------------|
| AzureADMyOrg | Accounts in this organizational directory only |
| AzureADMultipleOrgs | Accounts in any organizational directory |
| AzureADandPersonalMicrosoftAccount | Organizational and personal accounts |
| PersonalMicrosoftAccount | Personal accounts only |

Common rejections:

- Identifier URIs using the api:// scheme with a custom domain require a
  single-tenant audience.
- Some legacy redirect URI forms are only accepted for single-tenant
  applications.
- Switching to an audience that includes personal accounts enforces
  stricter manifest validation on existing fields.

Fix the conflicting field first, or pick an audience compatible with the
application's current configuration, then retry the change.
`
