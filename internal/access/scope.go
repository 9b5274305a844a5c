package access

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/access-api/internal/model"
)

// ScopeKind selects how wide a search request reaches.
type ScopeKind string

const (
	ScopeCurrent     ScopeKind = "current"
	ScopeAllOffices  ScopeKind = "all_offices"
	ScopeOfficeGroup ScopeKind = "office_group"
)

// Scope is the requested search scope. OfficeID is used by ScopeCurrent and
// GroupID by ScopeOfficeGroup.
type Scope struct {
	Kind     ScopeKind `json:"kind"`
	OfficeID string    `json:"office_id,omitempty"`
	GroupID  string    `json:"group_id,omitempty"`
}

func CurrentOffice(officeID string) Scope { return Scope{Kind: ScopeCurrent, OfficeID: officeID} }
func AllOffices() Scope                   { return Scope{Kind: ScopeAllOffices} }
func InOfficeGroup(groupID string) Scope  { return Scope{Kind: ScopeOfficeGroup, GroupID: groupID} }

// ParseScope builds a Scope from its wire form.
func ParseScope(kind, officeID, groupID string) (Scope, error) {
	switch ScopeKind(kind) {
	case ScopeCurrent:
		if NormalizeOfficeID(officeID) == "" {
			return Scope{}, fmt.Errorf("office_id is required for scope %q", kind)
		}
		return CurrentOffice(officeID), nil
	case ScopeAllOffices:
		return AllOffices(), nil
	case ScopeOfficeGroup:
		if groupID == "" {
			return Scope{}, fmt.Errorf("group_id is required for scope %q", kind)
		}
		return InOfficeGroup(groupID), nil
	}
	return Scope{}, fmt.Errorf("unknown scope %q", kind)
}

// Directory is the tenant's office snapshot for one evaluation.
type Directory struct {
	Offices []model.Office
	Groups  map[string]model.OfficeGroup
}

// OfficeSet is a sorted, duplicate-free set of normalized office ids. An
// empty set means no office is authorized, which is not an error.
type OfficeSet []string

func newOfficeSet(ids []string) OfficeSet {
	set := OfficeSet(NormalizeOfficeIDs(ids))
	sort.Strings(set)
	return set
}

func (s OfficeSet) Contains(id string) bool {
	id = NormalizeOfficeID(id)
	i := sort.SearchStrings(s, id)
	return i < len(s) && s[i] == id
}

func (s OfficeSet) Empty() bool {
	return len(s) == 0
}

// ResolveScope computes the concrete offices a request may query. Group scope
// never widens beyond what AllOffices grants this user.
func ResolveScope(u *model.User, scope Scope, dir Directory) OfficeSet {
	allowed := allowedOffices(u, dir)
	switch scope.Kind {
	case ScopeCurrent:
		if allowed.Contains(scope.OfficeID) {
			return OfficeSet{NormalizeOfficeID(scope.OfficeID)}
		}
		return OfficeSet{}
	case ScopeAllOffices:
		return allowed
	case ScopeOfficeGroup:
		group, ok := dir.Groups[scope.GroupID]
		if !ok {
			return OfficeSet{}
		}
		out := OfficeSet{}
		for _, id := range newOfficeSet(group.OfficeIDs) {
			if allowed.Contains(id) {
				out = append(out, id)
			}
		}
		return out
	}
	return OfficeSet{}
}

// allowedOffices is the AllOffices answer: every active office for "all"
// users, otherwise exactly the assigned offices.
func allowedOffices(u *model.User, dir Directory) OfficeSet {
	if u.PatientAccessLevel != model.PatientAccessAll {
		return newOfficeSet(u.AssignedOfficeIDs)
	}
	ids := make([]string, 0, len(dir.Offices))
	for _, o := range dir.Offices {
		if o.Active {
			ids = append(ids, o.OfficeID)
		}
	}
	return newOfficeSet(ids)
}
