package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ResourceDef declares a protected resource.
type ResourceDef struct {
	Name        string
	DisplayName string
	Description string
}

// ActionDef declares an action that can be performed on resources.
type ActionDef struct {
	Name        string
	DisplayName string
	Description string
}

// GrantDef is a default grant seeded for a role.
type GrantDef struct {
	Resource string
	Action   string
	Scope    Scope
}

// RoleDef declares a built-in role and its default grants.
type RoleDef struct {
	Name        string
	DisplayName string
	Description string
	Hierarchy   int
	Grants      []GrantDef
}

type catalogRegistry struct {
	mu        sync.RWMutex
	resources map[string]*ResourceDef
	actions   map[string]*ActionDef
	roles     map[string]*RoleDef
}

var globalCatalog = newCatalogRegistry()

func newCatalogRegistry() *catalogRegistry {
	return &catalogRegistry{
		resources: make(map[string]*ResourceDef),
		actions:   make(map[string]*ActionDef),
		roles:     make(map[string]*RoleDef),
	}
}

var (
	errEmptyName       = errors.New("permission catalog: name is required")
	errDuplicateName   = errors.New("permission catalog: already registered")
	errUnknownResource = errors.New("permission catalog: unknown resource")
	errUnknownAction   = errors.New("permission catalog: unknown action")
)

// RegisterResource adds a resource to the catalog.
func RegisterResource(def ResourceDef) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errEmptyName
	}
	def.Name = name
	if def.DisplayName == "" {
		def.DisplayName = name
	}

	globalCatalog.mu.Lock()
	defer globalCatalog.mu.Unlock()

	if _, exists := globalCatalog.resources[name]; exists {
		return fmt.Errorf("%w: resource %s", errDuplicateName, name)
	}
	globalCatalog.resources[name] = &def
	return nil
}

// RegisterAction adds an action to the catalog.
func RegisterAction(def ActionDef) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errEmptyName
	}
	def.Name = name
	if def.DisplayName == "" {
		def.DisplayName = name
	}

	globalCatalog.mu.Lock()
	defer globalCatalog.mu.Unlock()

	if _, exists := globalCatalog.actions[name]; exists {
		return fmt.Errorf("%w: action %s", errDuplicateName, name)
	}
	globalCatalog.actions[name] = &def
	return nil
}

// RegisterRole adds a role. Its grants must reference registered resources and actions.
func RegisterRole(def RoleDef) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errEmptyName
	}
	def.Name = name
	if def.DisplayName == "" {
		def.DisplayName = name
	}

	globalCatalog.mu.Lock()
	defer globalCatalog.mu.Unlock()

	if _, exists := globalCatalog.roles[name]; exists {
		return fmt.Errorf("%w: role %s", errDuplicateName, name)
	}
	for _, grant := range def.Grants {
		if _, ok := globalCatalog.resources[grant.Resource]; !ok {
			return fmt.Errorf("%w %q in role %s", errUnknownResource, grant.Resource, name)
		}
		if _, ok := globalCatalog.actions[grant.Action]; !ok {
			return fmt.Errorf("%w %q in role %s", errUnknownAction, grant.Action, name)
		}
		if !grant.Scope.Valid() {
			return fmt.Errorf("%w %q in role %s", ErrInvalidScope, grant.Scope, name)
		}
	}

	globalCatalog.roles[name] = cloneRole(&def)
	return nil
}

// Resources returns the registered resources ordered by name.
func Resources() []ResourceDef {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()

	out := make([]ResourceDef, 0, len(globalCatalog.resources))
	for _, def := range globalCatalog.resources {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Actions returns the registered actions ordered by name.
func Actions() []ActionDef {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()

	out := make([]ActionDef, 0, len(globalCatalog.actions))
	for _, def := range globalCatalog.actions {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Roles returns copies of the registered roles ordered by hierarchy.
func Roles() []RoleDef {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()

	out := make([]RoleDef, 0, len(globalCatalog.roles))
	for _, def := range globalCatalog.roles {
		out = append(out, *cloneRole(def))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hierarchy < out[j].Hierarchy })
	return out
}

// LookupRole returns a copy of the named role.
func LookupRole(name string) (RoleDef, bool) {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()

	def, ok := globalCatalog.roles[name]
	if !ok {
		return RoleDef{}, false
	}
	return *cloneRole(def), true
}

func knownResource(name string) bool {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()
	_, ok := globalCatalog.resources[name]
	return ok
}

func knownAction(name string) bool {
	globalCatalog.mu.RLock()
	defer globalCatalog.mu.RUnlock()
	_, ok := globalCatalog.actions[name]
	return ok
}

func cloneRole(def *RoleDef) *RoleDef {
	cp := *def
	if len(def.Grants) > 0 {
		cp.Grants = append([]GrantDef(nil), def.Grants...)
	}
	return &cp
}
