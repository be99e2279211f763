package router

import "context"

// Authenticator reports whether a session is signed in.
type Authenticator interface {
	IsAuthenticated() bool
}

// RequiresAuth reports whether any route in l's matched chain is protected.
func RequiresAuth(l Location) bool {
	for _, rt := range l.Matched {
		if rt.RequiresAuth {
			return true
		}
	}
	return false
}

// RequireAuth returns a guard that sends signed-out navigation of protected
// routes to the route named loginRoute. The guard holds no state of its own;
// each call consults auth.
func RequireAuth(auth Authenticator, loginRoute string) Guard {
	return func(_ context.Context, to, _ Location) Decision {
		if RequiresAuth(to) && !auth.IsAuthenticated() {
			return Redirect(Named(loginRoute, nil))
		}
		return Allow()
	}
}
