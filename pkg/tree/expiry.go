package tree

import "time"

// ExpiryWarningWindow is how far ahead a credential end date counts as
// "expiring soon".
const ExpiryWarningWindow = 30 * 24 * time.Hour

// CredentialHealth partitions a credential's end date against the current
// time. Exactly three partitions; no credential is ever in two.
type CredentialHealth int

const (
	// HealthHealthy means the end date is more than the warning window
	// away.
	HealthHealthy CredentialHealth = iota
	// HealthExpiring means the end date is in the future but within the
	// warning window.
	HealthExpiring
	// HealthExpired means the end date has passed.
	HealthExpired
)

func (h CredentialHealth) String() string {
	switch h {
	case HealthExpiring:
		return "expiring"
	case HealthExpired:
		return "expired"
	default:
		return "healthy"
	}
}

// Suffix returns the label decoration for a credential leaf, empty when
// healthy.
func (h CredentialHealth) Suffix() string {
	switch h {
	case HealthExpiring:
		return " (expiring soon)"
	case HealthExpired:
		return " (expired)"
	default:
		return ""
	}
}

// ClassifyCredential maps an end date to its health at the given instant.
// Deterministic in its inputs; callers pass time.Now() outside of tests.
func ClassifyCredential(endDateTime, now time.Time) CredentialHealth {
	if !endDateTime.After(now) {
		return HealthExpired
	}
	if endDateTime.Sub(now) <= ExpiryWarningWindow {
		return HealthExpiring
	}
	return HealthHealthy
}

func credentialIcon(h CredentialHealth, base Icon) Icon {
	switch h {
	case HealthExpired:
		return IconError
	case HealthExpiring:
		return IconWarning
	default:
		return base
	}
}
