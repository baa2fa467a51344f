package model

import "fmt"

// ScopeKind distinguishes the global partition from a specific workspace.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeWorkspace
)

// Scope selects which papers and chat messages a query considers. The global
// scope matches only rows without a workspace; it never means "every workspace".
type Scope struct {
	Kind        ScopeKind
	WorkspaceID uint
}

func GlobalScope() Scope {
	return Scope{Kind: ScopeGlobal}
}

func WorkspaceScope(id uint) Scope {
	if id == 0 {
		return GlobalScope()
	}
	return Scope{Kind: ScopeWorkspace, WorkspaceID: id}
}

// ScopeFromRef maps an optional workspace id (nil or 0 = global) to a Scope.
func ScopeFromRef(id *uint) Scope {
	if id == nil {
		return GlobalScope()
	}
	return WorkspaceScope(*id)
}

func (s Scope) IsGlobal() bool {
	return s.Kind != ScopeWorkspace
}

// WorkspaceRef returns the value to store in a nullable workspace_id column.
func (s Scope) WorkspaceRef() *uint {
	if s.IsGlobal() {
		return nil
	}
	id := s.WorkspaceID
	return &id
}

// Matches reports whether a row with the given workspace reference is in scope.
func (s Scope) Matches(ref *uint) bool {
	if s.IsGlobal() {
		return ref == nil
	}
	return ref != nil && *ref == s.WorkspaceID
}

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return fmt.Sprintf("ws:%d", s.WorkspaceID)
}
