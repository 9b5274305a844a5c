package access

import (
	"time"

	"github.com/jwalitptl/access-api/internal/model"
)

// DenyReason explains a denied login. It is meant for internal logs, not end users.
type DenyReason string

const (
	AccountInactive     DenyReason = "account_inactive"
	IPNotPermitted      DenyReason = "ip_not_permitted"
	OutsideAllowedDays  DenyReason = "outside_allowed_days"
	OutsideAllowedHours DenyReason = "outside_allowed_hours"
)

// Decision is the login gate outcome. Reason is empty when Allowed.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

var allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// LoginAttempt is supplied by the caller. Location is the zone used when the
// user's restriction names none; nil means UTC.
type LoginAttempt struct {
	SourceIP string
	At       time.Time
	Location *time.Location
}

// Authorize runs the gates in a fixed order so the reason is deterministic:
// active, IP allow-list, day, then hour.
func Authorize(u *model.User, attempt LoginAttempt) Decision {
	if !u.Active {
		return deny(AccountInactive)
	}
	if !ipPermitted(u.PermittedIPs, attempt.SourceIP) {
		return deny(IPNotPermitted)
	}
	if reason, ok := withinWindow(u.LoginRestriction, attempt); !ok {
		return deny(reason)
	}
	return allow
}

func ipPermitted(entries []string, source string) bool {
	// An empty allow-list is unrestricted.
	if len(entries) == 0 {
		return true
	}
	addr, ok := parseSourceIP(source)
	if !ok {
		return false
	}
	for _, e := range entries {
		p, err := ParsePermittedIP(e)
		if err != nil {
			continue
		}
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func withinWindow(r model.LoginRestriction, attempt LoginAttempt) (DenyReason, bool) {
	if !r.Restricted {
		return "", true
	}
	at := attempt.At.In(restrictionLocation(r, attempt.Location))
	if !r.AllowedDays.Contains(at.Weekday()) {
		return OutsideAllowedDays, false
	}
	if !inHalfOpen(model.ClockOf(at), r.AllowedFrom, r.AllowedUntil) {
		return OutsideAllowedHours, false
	}
	return "", true
}

// inHalfOpen checks [from, until). A window with from > until wraps midnight.
func inHalfOpen(t, from, until model.ClockTime) bool {
	if from <= until {
		return t >= from && t < until
	}
	return t >= from || t < until
}

func restrictionLocation(r model.LoginRestriction, fallback *time.Location) *time.Location {
	if r.TimeZone != "" {
		if loc, err := time.LoadLocation(r.TimeZone); err == nil {
			return loc
		}
	}
	if fallback != nil {
		return fallback
	}
	return time.UTC
}
