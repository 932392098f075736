package authz

import (
	"sort"

	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/internal/models"
)

// Source tags where an effective tuple came from.
type Source string

const (
	// SourceRole marks tuples inherited from the user's role baseline.
	SourceRole Source = "role"
	// SourceOverride marks tuples added by a per-user grant override.
	SourceOverride Source = "override"
)

// Tuple is a capability key: what may be done, to what, how broadly.
type Tuple struct {
	Resource catalog.Resource `json:"resource"`
	Action   catalog.Action   `json:"action"`
	Scope    catalog.Scope    `json:"scope"`
}

// Entry is a resolved tuple tagged with its provenance.
type Entry struct {
	Tuple
	Source Source `json:"source"`
}

// EffectiveSet is the resolved capability set of a single user, keyed for
// O(1) membership tests on the authorization hot path.
type EffectiveSet map[Tuple]Source

// ComputeEffective merges a role's baseline permissions with a user's
// overrides into the effective set:
//
//	start from the role tuples, then for each override either union the
//	tuple in (granted) or remove it (denied).
//
// Deny therefore wins over both role grants and grant overrides for the
// identical tuple, while a deny on a different tuple leaves broader grants
// untouched. Pure: no I/O, inputs are snapshots of the two stores.
func ComputeEffective(rolePerms []models.RolePermission, overrides []models.PermissionOverride) EffectiveSet {
	result := make(EffectiveSet, len(rolePerms)+len(overrides))

	for _, perm := range rolePerms {
		result[Tuple{Resource: perm.Resource, Action: perm.Action, Scope: perm.Scope}] = SourceRole
	}

	for _, ov := range overrides {
		key := Tuple{Resource: ov.Resource, Action: ov.Action, Scope: ov.Scope}
		if ov.Granted {
			// Union is idempotent on membership; provenance records the
			// grant layer that last touched the tuple.
			result[key] = SourceOverride
			continue
		}
		delete(result, key)
	}

	return result
}

// Has reports membership under scope dominance: an exact tuple match, or an
// "all"-scope entry for the same resource/action pair.
func (s EffectiveSet) Has(resource catalog.Resource, action catalog.Action, scope catalog.Scope) bool {
	if _, ok := s[Tuple{Resource: resource, Action: action, Scope: scope}]; ok {
		return true
	}
	if scope == catalog.ScopeAll {
		return false
	}
	_, ok := s[Tuple{Resource: resource, Action: action, Scope: catalog.ScopeAll}]
	return ok
}

// Source returns the provenance of the entry satisfying the requested tuple,
// preferring an exact match over an "all"-scope dominating entry.
func (s EffectiveSet) Source(resource catalog.Resource, action catalog.Action, scope catalog.Scope) (Source, bool) {
	if src, ok := s[Tuple{Resource: resource, Action: action, Scope: scope}]; ok {
		return src, true
	}
	if scope != catalog.ScopeAll {
		if src, ok := s[Tuple{Resource: resource, Action: action, Scope: catalog.ScopeAll}]; ok {
			return src, true
		}
	}
	return "", false
}

// Entries lists the set in a stable order for API responses.
func (s EffectiveSet) Entries() []Entry {
	entries := make([]Entry, 0, len(s))
	for tuple, source := range s {
		entries = append(entries, Entry{Tuple: tuple, Source: source})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.Action != b.Action {
			return a.Action < b.Action
		}
		return a.Scope < b.Scope
	})

	return entries
}
