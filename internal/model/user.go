package model

import (
	"time"
)

// PatientAccessLevel controls how far a user's patient searches may reach.
type PatientAccessLevel string

const (
	PatientAccessAll          PatientAccessLevel = "all"
	PatientAccessAssignedOnly PatientAccessLevel = "assigned_only"
)

func (l PatientAccessLevel) Valid() bool {
	return l == PatientAccessAll || l == PatientAccessAssignedOnly
}

// User represents an operator account within one organization.
type User struct {
	Base
	PGID               string             `json:"pgid" db:"pgid"`
	Username           string             `json:"username" db:"username"`
	FirstName          string             `json:"first_name" db:"first_name"`
	LastName           string             `json:"last_name" db:"last_name"`
	Email              string             `json:"email" db:"email"`
	Phone              *string            `json:"phone,omitempty" db:"phone"`
	Active             bool               `json:"active" db:"active"`
	HomeOfficeID       string             `json:"home_office_id" db:"home_office_id"`
	AssignedOfficeIDs  []string           `json:"assigned_office_ids" db:"-"`
	Role               string             `json:"role" db:"role"`
	SecurityGroups     []string           `json:"security_groups" db:"-"`
	PermittedIPs       []string           `json:"permitted_ips" db:"-"`
	LoginRestriction   LoginRestriction   `json:"login_restriction" db:"login_restriction"`
	PatientAccessLevel PatientAccessLevel `json:"patient_access_level" db:"patient_access_level"`
	LastLoginAt        *time.Time         `json:"last_login_at,omitempty" db:"last_login_at"`
}

// Clone returns a deep copy so callers can mutate a candidate without touching the original.
func (u *User) Clone() *User {
	c := *u
	c.AssignedOfficeIDs = append([]string(nil), u.AssignedOfficeIDs...)
	c.SecurityGroups = append([]string(nil), u.SecurityGroups...)
	c.PermittedIPs = append([]string(nil), u.PermittedIPs...)
	c.LoginRestriction.AllowedDays = append(Weekdays(nil), u.LoginRestriction.AllowedDays...)
	if u.Phone != nil {
		p := *u.Phone
		c.Phone = &p
	}
	return &c
}

// UserFilters represents user search parameters
type UserFilters struct {
	PGID       string `json:"pgid" form:"pgid"`
	OfficeID   string `json:"office_id" form:"office_id"`
	Role       string `json:"role" form:"role"`
	Active     *bool  `json:"active" form:"active"`
	SearchTerm string `json:"search_term" form:"search_term"`
}
