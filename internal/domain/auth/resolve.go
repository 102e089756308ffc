package auth

// SignalSource names where a role opinion came from.
type SignalSource string

const (
	SourceStatic    SignalSource = "static"
	SourceAllowList SignalSource = "allowlist"
	SourceProfile   SignalSource = "profile"
	SourceCached    SignalSource = "cached"
	SourceDefault   SignalSource = "default"
)

// SignalOutcome records how the read behind a signal settled.
type SignalOutcome string

const (
	OutcomeFound       SignalOutcome = "found"
	OutcomeNotFound    SignalOutcome = "not_found"
	OutcomeTimeout     SignalOutcome = "timeout"
	OutcomeUnavailable SignalOutcome = "unavailable"
	OutcomeUnknownRole SignalOutcome = "unknown_role"
)

// RoleSignal is one source's opinion about a role. An empty Role means absent.
type RoleSignal struct {
	Source  SignalSource
	Role    Role
	Outcome SignalOutcome
	// Profile is set when the profile read returned a row, even if its role is unusable.
	Profile *ProfileRecord
}

// Present reports whether the signal carries a role.
func (s RoleSignal) Present() bool { return s.Role != "" }

// Resolution is the outcome of Resolve.
type Resolution struct {
	Role   Role
	Source SignalSource
	// OverrideApplied is true when a static override decided the role.
	OverrideApplied bool
	// ProfileExists is true when the profile store returned a row.
	ProfileExists bool
	// NonRegression is true when a privileged previous role was kept because every signal was absent.
	NonRegression bool
}

// Resolve combines role signals with the previous session into one role.
// Order: static override, profile role, allow-list (only while the profile has no role),
// then the previous role if it was privileged, else customer.
// previous must already be scoped to the identity being resolved (see Session.For).
func Resolve(previous *Session, signals []RoleSignal) Resolution {
	var (
		res                    Resolution
		static, profile, allow *RoleSignal
	)
	for i := range signals {
		sig := &signals[i]
		switch sig.Source {
		case SourceStatic:
			static = sig
		case SourceProfile:
			profile = sig
			res.ProfileExists = sig.Profile != nil
		case SourceAllowList:
			allow = sig
		}
	}

	for _, sig := range []*RoleSignal{static, profile, allow} {
		if sig != nil && sig.Present() {
			res.Role = sig.Role
			res.Source = sig.Source
			res.OverrideApplied = sig.Source == SourceStatic
			return res
		}
	}

	if previous != nil && previous.Role.IsPrivileged() {
		res.Role = previous.Role
		res.Source = SourceCached
		res.NonRegression = true
		return res
	}
	res.Role = RoleCustomer
	res.Source = SourceDefault
	return res
}
