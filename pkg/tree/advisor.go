package tree

// AdvisoryThreshold is the application count above which the
// eventually-consistent query path pays for itself and below which it only
// costs consistency.
const AdvisoryThreshold = 200

// Advice is the output of the count advisor. It is an intent only; the
// caller decides whether and how to apply it.
type Advice int

const (
	// AdviceNone means the current query mode fits the tenant size.
	AdviceNone Advice = iota
	// AdviceDisableEventual suggests turning the eventually-consistent
	// query mode off for a small tenant.
	AdviceDisableEventual
	// AdviceEnableEventual suggests turning it on for a large tenant.
	AdviceEnableEventual
)

func (a Advice) String() string {
	switch a {
	case AdviceDisableEventual:
		return "disable-eventual"
	case AdviceEnableEventual:
		return "enable-eventual"
	default:
		return "none"
	}
}

// Advise decides whether the query mode should change given the total
// application count. Pure; never mutates configuration.
func Advise(totalCount int, useEventualConsistency bool) Advice {
	switch {
	case totalCount > 0 && totalCount <= AdvisoryThreshold && useEventualConsistency:
		return AdviceDisableEventual
	case totalCount > AdvisoryThreshold && !useEventualConsistency:
		return AdviceEnableEventual
	default:
		return AdviceNone
	}
}

// Resolution is how the operator answered an advisory.
type Resolution int

const (
	// ResolutionDecline leaves everything as is.
	ResolutionDecline Resolution = iota
	// ResolutionAccept flips the setting the advice suggests.
	ResolutionAccept
	// ResolutionSuppress declines and persists a don't-show-again flag.
	ResolutionSuppress
)

// Advisory prompt choices, also used by the host view's overlay.
const (
	ChoiceYes      = "Yes"
	ChoiceNo       = "No"
	ChoiceDontShow = "Don't show this again"
)

// ResolutionFromChoice maps a prompt choice back to a resolution. Unknown
// or empty choices (dismissed prompt) decline.
func ResolutionFromChoice(choice string) Resolution {
	switch choice {
	case ChoiceYes:
		return ResolutionAccept
	case ChoiceDontShow:
		return ResolutionSuppress
	default:
		return ResolutionDecline
	}
}
