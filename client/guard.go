package client

import "classroom/pkg/constraints"

type Decision int

const (
	Allow Decision = iota
	Wait
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	}
	return "unknown"
}

// Target is the view a redirect decision points at, or "".
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return constraints.ViewLogin
	case RedirectHome:
		return constraints.ViewHome
	}
	return ""
}

// GuardState is the part of the session a guard may look at.
type GuardState struct {
	Ready         bool
	Authenticated bool
	Roles         Roles
}

type Guard func(GuardState) Decision

func RequireAuth(s GuardState) Decision {
	switch {
	case !s.Ready:
		return Wait
	case !s.Authenticated:
		return RedirectLogin
	}
	return Allow
}

func RequireAdminOrInstructor(s GuardState) Decision {
	if d := RequireAuth(s); d != Allow {
		return d
	}
	if !s.Roles.IsAdminOrInstructor {
		return RedirectHome
	}
	return Allow
}

func RequireAdmin(s GuardState) Decision {
	if d := RequireAuth(s); d != Allow {
		return d
	}
	if !s.Roles.IsAdmin {
		return RedirectHome
	}
	return Allow
}
