// Package auth defines the contract between the admin toolkit and an
// authentication backend, and the Store that owns the resulting session.
//
// A backend implements Provider (login, logout, error classification) and
// any of the optional capability interfaces: Registerer, PasswordForgetter,
// PasswordUpdater, Checker and PermissionChecker. Capabilities are queried
// with Has or Capabilities rather than assumed:
//
//	if auth.Has(p, auth.CapRegister) {
//	    // offer a sign-up form
//	}
//
// Store drives a session through three states:
//
//	Unknown ──login ok──▶ Authenticated ──logout/check fail──▶ Unauthenticated
//
// Every failed ActionResult that leaves the Store carries a message; when the
// provider omits one a localized fallback is filled in.
package auth
