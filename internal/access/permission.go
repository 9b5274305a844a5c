package access

import (
	"sort"

	"github.com/jwalitptl/access-api/internal/model"
)

// CapabilityTable maps a security group code to the capabilities it grants.
// Unknown codes grant nothing.
type CapabilityTable interface {
	GroupCapabilities(code string) []model.Capability
}

// StaticCapabilityTable is an in-memory CapabilityTable.
type StaticCapabilityTable map[string][]model.Capability

func (t StaticCapabilityTable) GroupCapabilities(code string) []model.Capability {
	return t[code]
}

// EffectivePermissions is the role profile plus the union of every group's capabilities.
type EffectivePermissions struct {
	Role         string             `json:"role"`
	Capabilities []model.Capability `json:"capabilities"`
}

func (p EffectivePermissions) Has(c model.Capability) bool {
	i := sort.Search(len(p.Capabilities), func(i int) bool { return p.Capabilities[i] >= c })
	return i < len(p.Capabilities) && p.Capabilities[i] == c
}

// Includes reports whether every capability of other is also granted here.
func (p EffectivePermissions) Includes(other EffectivePermissions) bool {
	for _, c := range other.Capabilities {
		if !p.Has(c) {
			return false
		}
	}
	return true
}

// ResolvePermissions unions the capabilities of all groups. Groups never
// revoke each other, so the result does not depend on group order and only
// grows as groups are added.
func ResolvePermissions(role string, groups []string, table CapabilityTable) EffectivePermissions {
	set := make(map[model.Capability]struct{})
	if table != nil {
		for _, g := range groups {
			for _, c := range table.GroupCapabilities(g) {
				set[c] = struct{}{}
			}
		}
	}
	caps := make([]model.Capability, 0, len(set))
	for c := range set {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return EffectivePermissions{Role: role, Capabilities: caps}
}
