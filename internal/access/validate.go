package access

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/access-api/internal/model"
)

// Reason codes attached to field errors.
const (
	ReasonRequired              = "required"
	ReasonEmpty                 = "empty"
	ReasonHomeOfficeNotAssigned = "home_office_not_assigned"
	ReasonInvalidIP             = "invalid_ip"
	ReasonDuplicate             = "duplicate"
	ReasonInvalidAccessLevel    = "invalid_access_level"
	ReasonInvalidWindow         = "invalid_window"
	ReasonInvalidTimeZone       = "invalid_timezone"
	ReasonUnknownOffice         = "unknown_office"
	ReasonUnknownSecurityGroup  = "unknown_security_group"
)

// FieldError is one field-scoped validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return e.Field + " " + e.Reason
}

// ValidationErrors is the ordered list of every violation found in a candidate.
// A nil or empty list means the candidate is valid.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Valid() bool {
	return len(v) == 0
}

// Err returns nil for a valid result so callers can use plain error flow.
func (v ValidationErrors) Err() error {
	if v.Valid() {
		return nil
	}
	return v
}

func (v *ValidationErrors) add(field, reason string) {
	*v = append(*v, FieldError{Field: field, Reason: reason})
}

// ValidateUser checks every structural invariant of a user record and returns
// all violations at once. Office ids are compared in normalized form.
func ValidateUser(u *model.User) ValidationErrors {
	var errs ValidationErrors

	home := NormalizeOfficeID(u.HomeOfficeID)
	required := []struct {
		field string
		value string
	}{
		{"username", u.Username},
		{"first_name", u.FirstName},
		{"last_name", u.LastName},
		{"email", u.Email},
		{"home_office_id", home},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.add(r.field, ReasonRequired)
		}
	}

	assigned := NormalizeOfficeIDs(u.AssignedOfficeIDs)
	if len(assigned) == 0 {
		errs.add("assigned_office_ids", ReasonEmpty)
	}
	if home != "" && len(assigned) > 0 && !contains(assigned, home) {
		errs.add("home_office_id", ReasonHomeOfficeNotAssigned)
	}

	for i, entry := range u.PermittedIPs {
		if _, err := ParsePermittedIP(entry); err != nil {
			errs.add(fmt.Sprintf("permitted_ips[%d]", i), ReasonInvalidIP)
		}
	}

	seen := make(map[string]struct{}, len(u.SecurityGroups))
	for _, g := range u.SecurityGroups {
		if _, dup := seen[g]; dup {
			errs.add("security_groups", ReasonDuplicate)
			break
		}
		seen[g] = struct{}{}
	}

	if u.PatientAccessLevel != "" && !u.PatientAccessLevel.Valid() {
		errs.add("patient_access_level", ReasonInvalidAccessLevel)
	}

	errs = append(errs, validateRestriction(u.LoginRestriction)...)
	return errs
}

func validateRestriction(r model.LoginRestriction) ValidationErrors {
	var errs ValidationErrors
	if !r.Restricted {
		return errs
	}
	if len(r.AllowedDays) == 0 {
		errs.add("login_restriction.allowed_days", ReasonEmpty)
	}
	if !r.AllowedFrom.Valid() || !r.AllowedUntil.Valid() || r.AllowedFrom == r.AllowedUntil {
		errs.add("login_restriction.allowed_until", ReasonInvalidWindow)
	}
	if r.TimeZone != "" {
		if _, err := time.LoadLocation(r.TimeZone); err != nil {
			errs.add("login_restriction.time_zone", ReasonInvalidTimeZone)
		}
	}
	return errs
}

// ValidateOfficesInTenant flags assigned or home offices missing from the
// tenant's directory. It complements ValidateUser, which needs no directory.
func ValidateOfficesInTenant(u *model.User, directory []model.Office) ValidationErrors {
	var errs ValidationErrors
	known := make(map[string]struct{}, len(directory))
	for _, o := range directory {
		known[NormalizeOfficeID(o.OfficeID)] = struct{}{}
	}
	for i, id := range u.AssignedOfficeIDs {
		if _, ok := known[NormalizeOfficeID(id)]; !ok {
			errs.add(fmt.Sprintf("assigned_office_ids[%d]", i), ReasonUnknownOffice)
		}
	}
	return errs
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
