package access

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwalitptl/access-api/internal/model"
)

var userPayloadKeys = map[string]string{
	"id":                 "id",
	"pgid":               "pgid",
	"username":           "username",
	"firstname":          "first_name",
	"lastname":           "last_name",
	"email":              "email",
	"phone":              "phone",
	"active":             "active",
	"homeofficeid":       "home_office_id",
	"assignedofficeids":  "assigned_office_ids",
	"role":               "role",
	"securitygroups":     "security_groups",
	"permittedips":       "permitted_ips",
	"loginrestriction":   "login_restriction",
	"patientaccesslevel": "patient_access_level",
}

var restrictionPayloadKeys = map[string]string{
	"restricted":   "restricted",
	"alloweddays":  "allowed_days",
	"allowedfrom":  "allowed_from",
	"alloweduntil": "allowed_until",
	"timezone":     "time_zone",
}

// DecodeUserPayload is the only place raw user payloads are interpreted. It
// accepts snake_case and camelCase keys (snake_case wins when both appear),
// numeric or "O-" office ids, and produces the canonical model.User.
func DecodeUserPayload(data []byte) (*model.User, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid user payload: %w", err)
	}
	fields := canonicalKeys(raw, userPayloadKeys)

	var home string
	if v, ok := fields["home_office_id"]; ok {
		id, err := decodeOfficeID(v)
		if err != nil {
			return nil, fmt.Errorf("invalid home_office_id: %w", err)
		}
		home = id
		delete(fields, "home_office_id")
	}
	var assigned []string
	if v, ok := fields["assigned_office_ids"]; ok {
		ids, err := decodeOfficeIDs(v)
		if err != nil {
			return nil, fmt.Errorf("invalid assigned_office_ids: %w", err)
		}
		assigned = ids
		delete(fields, "assigned_office_ids")
	}
	if v, ok := fields["login_restriction"]; ok {
		r, err := decodeRestriction(v)
		if err != nil {
			return nil, fmt.Errorf("invalid login_restriction: %w", err)
		}
		fields["login_restriction"] = r
	}

	canonical, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := json.Unmarshal(canonical, &u); err != nil {
		return nil, fmt.Errorf("invalid user payload: %w", err)
	}
	u.HomeOfficeID = home
	u.AssignedOfficeIDs = assigned
	if u.Phone != nil && strings.TrimSpace(*u.Phone) == "" {
		u.Phone = nil
	}
	return &u, nil
}

func compactKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

func canonicalKeys(raw map[string]json.RawMessage, known map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		canon, ok := known[compactKey(k)]
		if !ok {
			continue
		}
		if _, taken := out[canon]; taken && k != canon {
			continue
		}
		out[canon] = v
	}
	return out
}

func decodeOfficeID(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return NormalizeOfficeID(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func decodeOfficeIDs(v json.RawMessage) ([]string, error) {
	if string(v) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := decodeOfficeID(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return NormalizeOfficeIDs(ids), nil
}

func decodeRestriction(v json.RawMessage) (json.RawMessage, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if strings.EqualFold(s, "unrestricted") || s == "" {
			return json.RawMessage(`{"restricted":false}`), nil
		}
		return nil, fmt.Errorf("unknown restriction %q", s)
	}
	if string(v) == "null" {
		return json.RawMessage(`{"restricted":false}`), nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(v, &raw); err != nil {
		return nil, err
	}
	fields := canonicalKeys(raw, restrictionPayloadKeys)
	if _, ok := fields["restricted"]; !ok {
		_, hasDays := fields["allowed_days"]
		fields["restricted"] = json.RawMessage(fmt.Sprintf("%t", hasDays))
	}
	return json.Marshal(fields)
}
