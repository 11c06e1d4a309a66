package permissions

import (
	"errors"
	"fmt"
	"strings"
)

// Scope is the breadth of a grant. Scopes are totally ordered: own < team < all.
type Scope string

const (
	ScopeOwn  Scope = "own"
	ScopeTeam Scope = "team"
	ScopeAll  Scope = "all"
)

// DefaultScope is reported for matrix cells that have never been granted.
const DefaultScope = ScopeOwn

// ErrInvalidScope reports a scope outside own, team and all.
var ErrInvalidScope = errors.New("permission: invalid scope")

// Ordinal returns 1, 2 or 3 for the known scopes and 0 otherwise.
func (s Scope) Ordinal() int {
	switch s {
	case ScopeOwn:
		return 1
	case ScopeTeam:
		return 2
	case ScopeAll:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	return s.Ordinal() > 0
}

func (s Scope) String() string {
	return string(s)
}

// ParseScope normalises raw input into a Scope.
func ParseScope(raw string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(raw)))
	if !scope.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidScope, raw)
	}
	return scope, nil
}

// Satisfies reports whether a grant at scope granted covers a request for scope required.
// Unknown scopes on either side never satisfy.
func Satisfies(granted, required Scope) bool {
	g, r := granted.Ordinal(), required.Ordinal()
	if g == 0 || r == 0 {
		return false
	}
	return g >= r
}

// Scopes lists the known scopes in ascending order.
func Scopes() []Scope {
	return []Scope{ScopeOwn, ScopeTeam, ScopeAll}
}
