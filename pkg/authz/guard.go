// Package authz holds the per-request authorization decision. Every protected
// operation goes through Guard.Authorize with the permission set it declares.
package authz

import (
	"errors"

	"github.com/Skotchmaster/registry_portal/pkg/rbac"
	"github.com/Skotchmaster/registry_portal/pkg/tokens"
)

type Outcome int

const (
	Allow Outcome = iota
	Unauthenticated
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision is the result of Authorize. Claims is nil for anonymous callers on
// public operations and for every Unauthenticated decision.
type Decision struct {
	Outcome Outcome
	Claims  *tokens.AccessClaims
	Err     error
}

func (d Decision) Allowed() bool { return d.Outcome == Allow }

var (
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	ErrForbidden       = errors.New("authz: forbidden")
)

type TokenVerifier interface {
	Verify(raw string) (*tokens.AccessClaims, error)
}

type Guard struct {
	verifier TokenVerifier
}

func NewGuard(v TokenVerifier) *Guard {
	return &Guard{verifier: v}
}

func (g *Guard) Authorize(token string, required rbac.Set) Decision {
	if len(required) == 0 {
		if token == "" {
			return Decision{Outcome: Allow}
		}
		claims, err := g.verifier.Verify(token)
		if err != nil {
			return Decision{Outcome: Allow}
		}
		return Decision{Outcome: Allow, Claims: claims}
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		return Decision{Outcome: Unauthenticated, Err: errors.Join(ErrUnauthenticated, err)}
	}

	// The only role-specific branch outside the registry.
	role := rbac.Role(claims.Role)
	if role == rbac.RoleSuperAdmin {
		return Decision{Outcome: Allow, Claims: claims}
	}

	if rbac.HasAllWithGrants(role, rbac.SetOf(claims.Grants...), required) {
		return Decision{Outcome: Allow, Claims: claims}
	}
	return Decision{Outcome: Forbidden, Claims: claims, Err: ErrForbidden}
}

// Authenticate requires a valid token without any permission.
func (g *Guard) Authenticate(token string) Decision {
	claims, err := g.verifier.Verify(token)
	if err != nil {
		return Decision{Outcome: Unauthenticated, Err: errors.Join(ErrUnauthenticated, err)}
	}
	return Decision{Outcome: Allow, Claims: claims}
}
