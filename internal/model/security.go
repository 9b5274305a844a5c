package model

// Capability names one action a security group grants, e.g. "patients:search".
type Capability string

// SecurityGroup is an additive permission bundle. A user may hold several.
type SecurityGroup struct {
	PGID         string       `json:"pgid"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`
}

// Role constants for the exclusive operating profile.
const (
	RoleAdmin     = "admin"
	RoleProvider  = "provider"
	RoleFrontDesk = "front_desk"
	RoleBilling   = "billing"
)
