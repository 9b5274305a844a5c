// Package access holds the office-scoped access-control decisions: office id
// normalization, user assignment validation, permission resolution, search
// scope resolution and the login gate. Every function here is pure; callers
// supply a consistent snapshot of users and offices.
package access

import (
	"strings"

	"github.com/jwalitptl/access-api/internal/model"
)

// UnknownOfficeName is returned by ResolveOfficeName when nothing matches.
const UnknownOfficeName = "Unknown Office"

// NormalizeOfficeID turns "O-123" into "123". Bare ids are returned as-is.
func NormalizeOfficeID(raw string) string {
	id := strings.TrimSpace(raw)
	for strings.HasPrefix(id, model.OIDPrefix) {
		id = strings.TrimSpace(strings.TrimPrefix(id, model.OIDPrefix))
	}
	return id
}

// FormatOID is the display form of an office id.
func FormatOID(officeID string) string {
	return model.OIDPrefix + NormalizeOfficeID(officeID)
}

// NormalizeOfficeIDs normalizes and de-duplicates ids, keeping first-seen order.
func NormalizeOfficeIDs(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		id := NormalizeOfficeID(r)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ResolveOfficeName looks the office up by exact id first, then by normalized
// oid. Misses degrade to UnknownOfficeName; the result is display-only.
func ResolveOfficeName(officeID string, directory []model.Office) string {
	for _, o := range directory {
		if o.OfficeID == officeID {
			return o.Name
		}
	}
	want := NormalizeOfficeID(officeID)
	for _, o := range directory {
		if NormalizeOfficeID(o.OID) == want {
			return o.Name
		}
	}
	return UnknownOfficeName
}
