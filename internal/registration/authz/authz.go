// Package authz resolves a caller's effective account and scopes from request
// credentials. All checks run before any data access.
package authz

import (
	dErrors "mhreg/pkg/domain-errors"
)

// Role names carried in JWT claims.
const (
	// RoleMHR is the primary domain role; every permitted caller holds it.
	RoleMHR = "mhr"
	// RoleStaff may act on behalf of other accounts.
	RoleStaff = "staff"
	// RoleHelpdesk is mapped to the shared helpdesk account.
	RoleHelpdesk = "helpdesk"
)

// HelpdeskAccountID is the reserved account all helpdesk callers resolve to.
const HelpdeskAccountID = "HELPDESK_ACCOUNT"

// Scope is a capability granted to a role.
type Scope string

const (
	// ScopeView allows listing and fetching the resolved account's records.
	ScopeView Scope = "registrations.view"
	// ScopeViewAll allows fetching records owned by any account.
	ScopeViewAll Scope = "registrations.view_all"
	// ScopeCreate allows filing new registrations.
	ScopeCreate Scope = "registrations.create"
)

// rolePolicy is the enumerated permission table. Roles not listed here grant
// nothing; a caller whose role set grants no scope at all is unauthorized.
var rolePolicy = map[string][]Scope{
	RoleMHR:      {ScopeView},
	RoleStaff:    {ScopeView, ScopeViewAll, ScopeCreate},
	RoleHelpdesk: {ScopeView, ScopeViewAll},
}

// Caller is the resolved authorization context for one request. It is
// stateless; a fresh value is produced per request.
type Caller struct {
	AccountID string
	Username  string
	Roles     []string
	scopes    map[Scope]bool
}

// Has reports whether the caller holds the given scope.
func (c Caller) Has(scope Scope) bool {
	return c.scopes[scope]
}

// IsStaff reports whether the caller holds the staff role.
func (c Caller) IsStaff() bool {
	for _, r := range c.Roles {
		if r == RoleStaff {
			return true
		}
	}
	return false
}

// Resolve produces the effective (account, scopes) for a caller.
//
// accountID is the caller-supplied account context header; targetAccountID is
// the staff-only override header. Non-staff callers are always scoped to
// their own account and the override is ignored. Helpdesk callers resolve to
// the reserved helpdesk account regardless of headers.
func Resolve(username string, roles []string, accountID, targetAccountID string) (Caller, error) {
	scopes := make(map[Scope]bool)
	for _, role := range roles {
		for _, scope := range rolePolicy[role] {
			scopes[scope] = true
		}
	}
	if !scopes[ScopeView] {
		return Caller{}, dErrors.New(dErrors.CodeUnauthorized, "role set is not authorized for MH registrations")
	}

	caller := Caller{Username: username, Roles: roles, scopes: scopes}

	switch {
	case hasRole(roles, RoleHelpdesk):
		caller.AccountID = HelpdeskAccountID
	case hasRole(roles, RoleStaff) && targetAccountID != "":
		caller.AccountID = targetAccountID
	case accountID != "":
		caller.AccountID = accountID
	default:
		return Caller{}, dErrors.New(dErrors.CodeBadRequest, "account ID is required")
	}
	return caller, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
