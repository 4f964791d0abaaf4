// Package onboarding decides which screen a session may see. It is pure:
// callers supply the session facts and act on the returned screen.
package onboarding

// State is the onboarding position of a session.
type State int

const (
	Unauthenticated State = iota
	AuthenticatedNoPrefs
	AuthenticatedWithPrefs
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedNoPrefs:
		return "authenticated_no_prefs"
	case AuthenticatedWithPrefs:
		return "authenticated_with_prefs"
	default:
		return "unknown"
	}
}

// Screen is a user-facing destination. Its string form is the redirect
// target sent to clients.
type Screen string

const (
	Login            Screen = "login"
	Register         Screen = "register"
	PreferencesSetup Screen = "preferences_setup"
	PreferencesEdit  Screen = "preferences_edit"
	Dashboard        Screen = "dashboard"
)

func (s Screen) String() string { return string(s) }

// StateOf derives the state from whether the session is authenticated and
// whether the identity has a preference record.
func StateOf(authenticated, hasPrefs bool) State {
	switch {
	case !authenticated:
		return Unauthenticated
	case hasPrefs:
		return AuthenticatedWithPrefs
	default:
		return AuthenticatedNoPrefs
	}
}

// Landing is where a session in state s goes when it has not asked for anything.
func Landing(s State) Screen {
	switch s {
	case AuthenticatedNoPrefs:
		return PreferencesSetup
	case AuthenticatedWithPrefs:
		return Dashboard
	default:
		return Login
	}
}

// Route returns the single screen allowed for a session in state s that
// requested the given screen. It is requested itself when allowed.
func Route(s State, requested Screen) Screen {
	switch s {
	case AuthenticatedNoPrefs:
		return PreferencesSetup
	case AuthenticatedWithPrefs:
		switch requested {
		case Dashboard, PreferencesEdit:
			return requested
		default:
			return Dashboard
		}
	default:
		switch requested {
		case Login, Register:
			return requested
		default:
			return Login
		}
	}
}

// Allowed reports whether requested can be served as-is in state s.
func Allowed(s State, requested Screen) bool {
	return Route(s, requested) == requested
}

// AfterLogout is where any authenticated session goes once logged out.
func AfterLogout() Screen { return Login }
